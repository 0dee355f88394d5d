package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tillbook/tillbook/internal/jobs"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/platform/store"
)

// Worker wraps the Asynq server and scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Store     store.Store
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	// StockScanSpec is the cron spec for the low-stock scan; empty disables it.
	StockScanSpec string
}

// NewWorker constructs a Worker instance with the persistence and stock-scan
// handlers registered.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	taskMetrics := jobmetrics.NewMetrics(cfg.Metrics.Registerer())

	mux := asynq.NewServeMux()
	mux.Use(func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			tracker := taskMetrics.Track(t.Type())
			return tracker.End(next.ProcessTask(ctx, t))
		})
	})
	mux.HandleFunc(TaskPeriodPersist, NewPersistHandler(cfg.Store, cfg.Logger, cfg.Metrics))
	mux.HandleFunc(TaskStockScan, NewStockScanHandler(cfg.Store, cfg.Logger, cfg.Metrics))

	var scheduler *asynq.Scheduler
	if cfg.StockScanSpec != "" {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		if _, err := scheduler.Register(cfg.StockScanSpec, NewStockScanTask(), asynq.Queue(QueueDefault)); err != nil {
			return nil, err
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
		defer w.scheduler.Shutdown()
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}
