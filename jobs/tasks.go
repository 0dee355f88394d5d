// Package jobs defines the background tasks: queued persistence writes and
// the periodic low-stock scan.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/platform/store"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPeriodPersist writes one period snapshot to the backing store.
	TaskPeriodPersist = "period:persist"
	// TaskStockScan flags products at or below their minimum stock level.
	TaskStockScan = "stock:scan"
)

// PersistPayload carries a full period snapshot. The write is last-write-wins;
// a lost task is healed by the next mutation's snapshot.
type PersistPayload struct {
	PeriodID string          `json:"periodId"`
	Blob     json.RawMessage `json:"blob"`
}

// NewPersistTask constructs an Asynq task for one snapshot.
func NewPersistTask(payload PersistPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPeriodPersist, data), nil
}

// NewPersistHandler returns the worker-side handler writing snapshots to the
// store. Store failures are returned so asynq retries, but they are logged
// here because the originating caller has long since moved on.
func NewPersistHandler(s store.Store, logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PersistPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := s.Put(ctx, payload.PeriodID, payload.Blob); err != nil {
			logger.Error("queued persist", slog.String("period", payload.PeriodID), slog.Any("error", err))
			if metrics != nil {
				metrics.PersistFailures.Inc()
			}
			return err
		}
		return nil
	}
}

// NewStockScanTask constructs the periodic low-stock scan task.
func NewStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskStockScan, nil)
}

// NewStockScanHandler walks every stored period and logs goods at or below
// their minimum stock level, updating the low-stock gauge from the most
// recently stored period.
func NewStockScanHandler(s store.Store, logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		ids, err := s.List(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			blob, err := s.Get(ctx, id)
			if err != nil {
				logger.Warn("stock scan read", slog.String("period", id), slog.Any("error", err))
				continue
			}
			var p ledger.Period
			if err := json.Unmarshal(blob, &p); err != nil {
				logger.Warn("stock scan decode", slog.String("period", id), slog.Any("error", err))
				continue
			}
			low := 0
			for _, prod := range p.Products {
				if prod.Kind != ledger.ProductGoods {
					continue
				}
				if prod.Stock <= prod.MinStockLevel {
					low++
					logger.Info("low stock",
						slog.String("period", id),
						slog.String("product", prod.Name),
						slog.Float64("stock", prod.Stock),
						slog.Float64("minStockLevel", prod.MinStockLevel))
				}
			}
			if metrics != nil {
				metrics.LowStockProducts.Set(float64(low))
			}
		}
		return nil
	}
}
