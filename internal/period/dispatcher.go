package period

import (
	"context"
	"log/slog"
	"time"

	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/platform/store"
)

// Dispatcher hands a period snapshot off for persistence. Implementations
// are fire-and-forget: the mutating call does not wait for the write, and a
// failed write is logged, counted and otherwise swallowed. The next
// mutation's persist naturally re-attempts a full-state write.
type Dispatcher interface {
	Dispatch(id string, blob []byte)
}

// AsyncWriter writes snapshots straight to the store on a background
// goroutine. It is the default dispatcher when no task queue is configured.
type AsyncWriter struct {
	store   store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
	timeout time.Duration
}

// NewAsyncWriter builds a dispatcher around the given store.
func NewAsyncWriter(s store.Store, logger *slog.Logger, metrics *observability.Metrics) *AsyncWriter {
	return &AsyncWriter{store: s, logger: logger, metrics: metrics, timeout: 10 * time.Second}
}

// Dispatch schedules the write and returns immediately.
func (w *AsyncWriter) Dispatch(id string, blob []byte) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.store.Put(ctx, id, blob); err != nil {
			w.logger.Error("persist period", slog.String("period", id), slog.Any("error", err))
			if w.metrics != nil {
				w.metrics.PersistFailures.Inc()
			}
		}
	}()
}

// SyncWriter persists inline. Used in tests so assertions can run right
// after the mutating call returns.
type SyncWriter struct {
	store   store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSyncWriter builds the inline dispatcher.
func NewSyncWriter(s store.Store, logger *slog.Logger, metrics *observability.Metrics) *SyncWriter {
	return &SyncWriter{store: s, logger: logger, metrics: metrics}
}

// Dispatch writes the snapshot before returning.
func (w *SyncWriter) Dispatch(id string, blob []byte) {
	if err := w.store.Put(context.Background(), id, blob); err != nil {
		w.logger.Error("persist period", slog.String("period", id), slog.Any("error", err))
		if w.metrics != nil {
			w.metrics.PersistFailures.Inc()
		}
	}
}
