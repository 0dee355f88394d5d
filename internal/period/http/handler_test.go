package periodhttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/period"
	"github.com/tillbook/tillbook/internal/platform/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *period.Repository) {
	t.Helper()
	mem := store.NewMemory()
	logger := slog.Default()
	repo := period.NewRepository(mem, period.NewSyncWriter(mem, logger, observability.NewMetrics()), period.NewNotifier(), logger)

	h := NewHandler(logger, repo)
	r := chi.NewRouter()
	r.Route("/api", h.Routes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestPeriodLifecycleOverHTTP(t *testing.T) {
	srv, repo := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/periods/active")
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Post(srv.URL+"/api/periods/", "application/json", strings.NewReader(`{"name":"FY 2024"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	_ = resp.Body.Close()
	require.NotEmpty(t, created["id"])

	resp, err = http.Post(srv.URL+"/api/periods/"+created["id"]+"/activate", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
	require.Equal(t, created["id"], repo.ActiveID())

	resp, err = http.Get(srv.URL + "/api/periods/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Periods []string `json:"periods"`
		Active  string   `json:"active"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	_ = resp.Body.Close()
	require.Equal(t, []string{created["id"]}, listing.Periods)
	require.Equal(t, created["id"], listing.Active)
}

func TestRestoreOverHTTP(t *testing.T) {
	srv, repo := newTestServer(t)

	id, err := repo.Create(context.Background(), "FY 2024")
	require.NoError(t, err)
	repo.SwitchActive(context.Background(), id)

	backup := `{"parties":[{"id":"c1","name":"Restored","kind":"customer","balance":"120"}]}`
	resp, err := http.Post(srv.URL+"/api/restore", "application/json", strings.NewReader(backup))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		p, ok := e.Party("c1")
		require.True(t, ok)
		require.Equal(t, "Restored", p.Name)
		return nil
	}))
}

func TestRestoreRejectsGarbage(t *testing.T) {
	srv, repo := newTestServer(t)

	id, err := repo.Create(context.Background(), "FY 2024")
	require.NoError(t, err)
	repo.SwitchActive(context.Background(), id)

	resp, err := http.Post(srv.URL+"/api/restore", "application/json", strings.NewReader("[1,2,3]"))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
