package closehttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tillbook/tillbook/internal/close"
	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/period"
	"github.com/tillbook/tillbook/internal/platform/store"
)

func TestClosePeriodEndpoint(t *testing.T) {
	mem := store.NewMemory()
	logger := slog.Default()
	metrics := observability.NewMetrics()
	repo := period.NewRepository(mem, period.NewSyncWriter(mem, logger, metrics), period.NewNotifier(), logger)

	id, err := repo.Create(context.Background(), "FY 2024")
	require.NoError(t, err)
	repo.SwitchActive(context.Background(), id)
	require.NoError(t, repo.Update(func(e *ledger.Engine) error {
		return e.AddParty(&ledger.Party{ID: "c1", Name: "Debtor", Kind: ledger.PartyCustomer, Balance: decimal.NewFromInt(250)})
	}))

	h := NewHandler(logger, close.NewService(repo, logger, metrics))
	r := chi.NewRouter()
	r.Route("/api", h.Routes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/close", "application/json", strings.NewReader(`{"nextName":"FY 2025"}`))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "FY 2025", body["name"])
	require.NotEqual(t, id, body["id"])
	require.Equal(t, body["id"], repo.ActiveID())

	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		p, ok := e.Party("c1")
		require.True(t, ok)
		require.Equal(t, "250", p.Balance.String())
		require.Len(t, e.Period().Transactions, 1)
		return nil
	}))
}

func TestClosePeriodRequiresName(t *testing.T) {
	mem := store.NewMemory()
	logger := slog.Default()
	metrics := observability.NewMetrics()
	repo := period.NewRepository(mem, period.NewSyncWriter(mem, logger, metrics), period.NewNotifier(), logger)

	h := NewHandler(logger, close.NewService(repo, logger, metrics))
	r := chi.NewRouter()
	r.Route("/api", h.Routes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/close", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
