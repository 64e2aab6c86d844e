package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Worker drains the audit outbox into Kafka. It polls on an interval, produces
// pending entries synchronously and stamps them published. Failed produces are
// left pending and picked up on the next tick.
type Worker struct {
	store    *PostgresStore
	client   *kgo.Client
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

type WorkerOption func(*Worker)

func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.interval = d }
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) { w.batch = n }
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

func NewWorker(store *PostgresStore, client *kgo.Client, topic string, opts ...WorkerOption) (*Worker, error) {
	if store == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("kafka client is required")
	}
	w := &Worker{
		store:    store,
		client:   client,
		topic:    topic,
		interval: 2 * time.Second,
		batch:    100,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	entries, err := w.store.Unpublished(ctx, w.batch)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		record := &kgo.Record{
			Topic: w.topic,
			Key:   []byte(entry.EventType),
			Value: entry.Payload,
		}
		if err := w.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			// Leave the entry pending; ordering within the outbox is
			// preserved by retrying from the same point next tick.
			return fmt.Errorf("produce audit event %s: %w", entry.ID, err)
		}
		if err := w.store.MarkPublished(ctx, entry.ID); err != nil {
			return err
		}
	}
	return nil
}
