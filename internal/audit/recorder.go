package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"identra/internal/audit/metrics"
	"identra/internal/audit/statscache"
	dErrors "identra/pkg/domain-errors"
	"identra/pkg/requestcontext"
)

// Store is the persistence surface for audit entries. Implementations only
// persist; sanitization happens in the recorder so every backend stores the
// same shape.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter Filter) ([]*Entry, int, error)
	Statistics(ctx context.Context, since time.Time) (*Statistics, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Query pagination bounds.
const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 500
)

// Recorder owns audit entry lifecycle: it sanitizes inputs, assigns identity
// and timestamps, and persists through the store. It is the only writer.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	stats   *statscache.Cache
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// WithStatsCache attaches a cache for statistics aggregates. Cache failures
// degrade to direct store reads.
func WithStatsCache(c *statscache.Cache) RecorderOption {
	return func(r *Recorder) { r.stats = c }
}

// NewRecorder constructs a recorder over the given store.
func NewRecorder(store Store, logger *slog.Logger, opts ...RecorderOption) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Append sanitizes the input and persists exactly one entry. Callers on the
// request path must treat a returned error as non-fatal to their own work.
func (r *Recorder) Append(ctx context.Context, input Input) (*Entry, error) {
	entry := r.prepare(ctx, input)

	if err := r.store.Append(ctx, entry); err != nil {
		r.metrics.IncWriteFailure()
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	r.metrics.IncWritten()
	return entry, nil
}

// prepare applies sanitization and normalization rules and stamps identity.
func (r *Recorder) prepare(ctx context.Context, input Input) *Entry {
	entry := &Entry{
		ID:          uuid.New(),
		IPAddress:   NormalizeIP(input.IPAddress),
		UserAgent:   NormalizeUserAgent(input.UserAgent),
		Action:      input.Action,
		EntityType:  input.EntityType,
		Description: input.Description,
		Metadata:    SanitizeValues(input.Metadata),
		OldValues:   SanitizeValues(input.OldValues),
		NewValues:   SanitizeValues(input.NewValues),
		Success:     input.Success,
		Source:      input.Source,
		CreatedAt:   requestcontext.Now(ctx).UTC(),
	}

	if input.ActorID != "" {
		actorID := input.ActorID
		entry.ActorID = &actorID
	}
	if input.EntityID != "" {
		entityID := input.EntityID
		entry.EntityID = &entityID
	}
	if entry.Source == "" {
		entry.Source = ClassifySource(input.UserAgent)
	}

	// Failed operations always carry an error message.
	if !input.Success {
		msg := input.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		entry.ErrorMessage = &msg
	}

	return entry
}

// Query returns matching entries ordered by creation time descending, plus
// the total match count for pagination.
func (r *Recorder) Query(ctx context.Context, filter Filter) ([]*Entry, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultQueryLimit
	}
	if filter.Limit > MaxQueryLimit {
		filter.Limit = MaxQueryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	entries, total, err := r.store.Query(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	return entries, total, nil
}

// Statistics aggregates entries created within the trailing window.
func (r *Recorder) Statistics(ctx context.Context, windowDays int) (*Statistics, error) {
	if windowDays <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "window must be a positive number of days")
	}

	var cached Statistics
	if statscache.Get(ctx, r.stats, windowDays, &cached) {
		return &cached, nil
	}

	since := requestcontext.Now(ctx).UTC().AddDate(0, 0, -windowDays)
	stats, err := r.store.Statistics(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("aggregate audit statistics: %w", err)
	}

	statscache.Set(ctx, r.stats, windowDays, stats)
	return stats, nil
}

// PurgeOlderThan hard-deletes entries older than the cutoff. This is the only
// delete path; an external scheduler invokes it.
func (r *Recorder) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "retention must be a positive number of days")
	}

	cutoff := requestcontext.Now(ctx).UTC().AddDate(0, 0, -days)
	deleted, err := r.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}

	r.metrics.AddPurged(deleted)
	r.logger.InfoContext(ctx, "audit retention sweep completed",
		"cutoff", cutoff,
		"deleted", deleted,
	)
	return deleted, nil
}
