// Package worker decouples audit writes from the request path. Submissions go
// into a bounded inbox and a single background goroutine persists them, so a
// slow store can never block a response and a cancelled caller connection
// never abandons a pending write.
package worker

import (
	"context"
	"log/slog"
	"time"

	"identra/internal/audit"
	"identra/internal/audit/metrics"
)

// Writer persists one prepared audit input. Satisfied by *audit.Recorder.
type Writer interface {
	Append(ctx context.Context, input audit.Input) (*audit.Entry, error)
}

// Worker consumes audit inputs from a bounded inbox and persists them.
type Worker struct {
	writer  Writer
	logger  *slog.Logger
	metrics *metrics.Metrics
	inbox   chan audit.Input
}

// Option configures a Worker.
type Option func(*Worker)

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// New constructs a worker with an inbox of the given size.
func New(writer Writer, logger *slog.Logger, inboxSize int, opts ...Option) *Worker {
	if inboxSize <= 0 {
		inboxSize = 1024
	}
	w := &Worker{
		writer: writer,
		logger: logger,
		inbox:  make(chan audit.Input, inboxSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Submit hands an audit input to the background writer without blocking.
// When the inbox is full the input is dropped and counted: audit delivery is
// best-effort and the request path always wins.
func (w *Worker) Submit(input audit.Input) {
	select {
	case w.inbox <- input:
	default:
		w.metrics.IncDropped()
		w.logger.Warn("audit inbox full, dropping entry",
			"action", input.Action,
			"entity_type", input.EntityType,
		)
	}
}

// Run consumes the inbox until ctx is cancelled, then drains whatever is
// still queued. Write failures are logged and discarded, never retried.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case input := <-w.inbox:
			w.write(input)
		}
	}
}

// drain flushes queued inputs after shutdown begins. Each write gets a
// bounded deadline so a dead store cannot stall process exit.
func (w *Worker) drain() {
	for {
		select {
		case input := <-w.inbox:
			w.write(input)
		default:
			return
		}
	}
}

// write persists one input on a fresh context: the originating request may be
// long gone, and its cancellation must not cancel the audit write.
func (w *Worker) write(input audit.Input) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := w.writer.Append(ctx, input); err != nil {
		w.logger.Error("audit write failed, entry discarded",
			"action", input.Action,
			"entity_type", input.EntityType,
			"error", err,
		)
	}
}
