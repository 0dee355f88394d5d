// Package closehttp exposes the period rollover endpoint.
package closehttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tillbook/tillbook/internal/close"
	"github.com/tillbook/tillbook/internal/platform/httpx"
)

// Handler serves the close-period endpoint.
type Handler struct {
	logger   *slog.Logger
	service  *close.Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *close.Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the rollover endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/close", h.closePeriod)
}

type closeRequest struct {
	NextName string `json:"nextName" validate:"required"`
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Input", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.service.ClosePeriod(r.Context(), req.NextName)
	if err != nil {
		h.logger.Error("close period", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id, "name": req.NextName})
}
