// Package periodhttp exposes period lifecycle operations: creating, listing
// and switching periods, restoring a backup, and streaming the change signal.
package periodhttp

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tillbook/tillbook/internal/period"
	"github.com/tillbook/tillbook/internal/platform/httpx"
)

// Handler serves the period endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     *period.Repository
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, repo *period.Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// Routes mounts the period endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/periods", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/active", h.active)
		r.Post("/{id}/activate", h.activate)
	})
	r.Post("/restore", h.restore)
	r.Get("/events", h.events)
}

type createRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Input", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.repo.Create(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("create period", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id, "name": req.Name})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ids, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": ids, "active": h.repo.ActiveID()})
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	id := h.repo.ActiveID()
	if id == "" {
		httpx.RespondError(w, period.ErrNoActivePeriod)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.repo.SwitchActive(r.Context(), id)
	httpx.JSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
	if err != nil {
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "Too Large", err.Error())
		return
	}
	if err := h.repo.Restore(raw); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"restored": true})
}

// events streams the payload-less change signal as server-sent events. The
// client re-reads whatever state it cares about on each ping.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusNotImplemented, "Streaming Unsupported", "")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	signal, cancel := h.repo.Notifier().Subscribe()
	defer cancel()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-signal:
			if _, err := io.WriteString(w, "event: changed\ndata: {}\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
