package jobs

import (
	"log/slog"

	"github.com/hibiken/asynq"
)

// QueueDispatcher implements period.Dispatcher by enqueueing persistence
// tasks for the worker. Enqueue failures are logged and swallowed, matching
// the fire-and-forget persistence contract.
type QueueDispatcher struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewQueueDispatcher wraps an asynq client.
func NewQueueDispatcher(client *asynq.Client, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{client: client, logger: logger}
}

// Dispatch enqueues the snapshot and returns without waiting for the write.
func (d *QueueDispatcher) Dispatch(id string, blob []byte) {
	task, err := NewPersistTask(PersistPayload{PeriodID: id, Blob: blob})
	if err != nil {
		d.logger.Error("build persist task", slog.String("period", id), slog.Any("error", err))
		return
	}
	if _, err := d.client.Enqueue(task, asynq.Queue(QueueDefault)); err != nil {
		d.logger.Error("enqueue persist task", slog.String("period", id), slog.Any("error", err))
	}
}
