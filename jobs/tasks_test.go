package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/platform/store"
)

func TestPersistHandlerWritesSnapshot(t *testing.T) {
	mem := store.NewMemory()
	handler := NewPersistHandler(mem, slog.Default(), observability.NewMetrics())

	blob := []byte(`{"id":"fy24","name":"FY 2024"}`)
	task, err := NewPersistTask(PersistPayload{PeriodID: "fy24", Blob: blob})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))

	stored, err := mem.Get(context.Background(), "fy24")
	require.NoError(t, err)
	require.JSONEq(t, string(blob), string(stored))
}

func TestPersistHandlerSkipsMalformedPayload(t *testing.T) {
	mem := store.NewMemory()
	handler := NewPersistHandler(mem, slog.Default(), observability.NewMetrics())

	err := handler(context.Background(), asynq.NewTask(TaskPeriodPersist, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestStockScanFlagsLowStock(t *testing.T) {
	mem := store.NewMemory()
	p := ledger.NewPeriod("fy24", "FY 2024", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	p.Products = []*ledger.Product{
		{ID: "p1", Name: "Cable", Kind: ledger.ProductGoods, Stock: 1, MinStockLevel: 5},
		{ID: "p2", Name: "Charger", Kind: ledger.ProductGoods, Stock: 50, MinStockLevel: 5},
		{ID: "p3", Name: "Repair", Kind: ledger.ProductService},
	}
	blob, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, mem.Put(context.Background(), "fy24", blob))

	metrics := observability.NewMetrics()
	handler := NewStockScanHandler(mem, slog.Default(), metrics)
	require.NoError(t, handler(context.Background(), NewStockScanTask()))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.LowStockProducts))
}
