package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillbook/tillbook/internal/auth"
	closehttp "github.com/tillbook/tillbook/internal/close/http"
	ledgerhttp "github.com/tillbook/tillbook/internal/ledger/http"
	"github.com/tillbook/tillbook/internal/observability"
	periodhttp "github.com/tillbook/tillbook/internal/period/http"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Metrics       *observability.Metrics
	AuthHandler   *auth.Handler
	LedgerHandler *ledgerhttp.Handler
	PeriodHandler *periodhttp.Handler
	CloseHandler  *closehttp.Handler
}

// NewRouter assembles the middleware stack and mounts every handler.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config, Metrics: p.Metrics}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		p.AuthHandler.Routes(r)
		p.PeriodHandler.Routes(r)
		p.CloseHandler.Routes(r)
		p.LedgerHandler.Routes(r)
	})

	return r
}
