// Package postgres persists audit entries in PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"identra/internal/audit"
)

// Store implements audit.Store on a pgx connection pool. The pool is the only
// shared mutable resource in the subsystem; every write inserts a new row, so
// there is no update-in-place contention.
type Store struct {
	db *pgxpool.Pool
}

// New constructs a PostgreSQL-backed audit store.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// schema is applied by EnsureSchema. Indexes match the query surface: actor
// history, entity history, action timelines, and retention sweeps.
const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id            UUID PRIMARY KEY,
	actor_id      TEXT,
	ip_address    TEXT,
	user_agent    TEXT,
	action        TEXT NOT NULL,
	entity_type   TEXT NOT NULL,
	entity_id     TEXT,
	description   TEXT NOT NULL,
	metadata      JSONB,
	old_values    JSONB,
	new_values    JSONB,
	success       BOOLEAN NOT NULL,
	error_message TEXT,
	source        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_actor_created ON audit_entries (actor_id, created_at);
CREATE INDEX IF NOT EXISTS idx_audit_entries_entity ON audit_entries (entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_entries_action_created ON audit_entries (action, created_at);
CREATE INDEX IF NOT EXISTS idx_audit_entries_created ON audit_entries (created_at);
`

// EnsureSchema creates the audit table and its indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Append inserts one entry. Entries are never updated afterwards.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	query := `
		INSERT INTO audit_entries (
			id, actor_id, ip_address, user_agent, action, entity_type,
			entity_id, description, metadata, old_values, new_values,
			success, error_message, source, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.Exec(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.IPAddress,
		entry.UserAgent,
		string(entry.Action),
		string(entry.EntityType),
		entry.EntityID,
		entry.Description,
		entry.Metadata,
		entry.OldValues,
		entry.NewValues,
		entry.Success,
		entry.ErrorMessage,
		string(entry.Source),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns filtered entries ordered by creation time descending, plus
// the total match count. Absent filters mean no constraint.
func (s *Store) Query(ctx context.Context, filter audit.Filter) ([]*audit.Entry, int, error) {
	var baseQuery strings.Builder
	baseQuery.WriteString(`
		SELECT id, actor_id, ip_address, user_agent, action, entity_type,
		       entity_id, description, metadata, old_values, new_values,
		       success, error_message, source, created_at
		FROM audit_entries
		WHERE 1=1`)

	var countQuery strings.Builder
	countQuery.WriteString(`SELECT COUNT(*) FROM audit_entries WHERE 1=1`)

	args := []any{}
	argCount := 1

	addFilter := func(condition string, value any) {
		clause := fmt.Sprintf(" AND %s $%d", condition, argCount)
		baseQuery.WriteString(clause)
		countQuery.WriteString(clause)
		args = append(args, value)
		argCount++
	}

	if filter.ActorID != "" {
		addFilter("actor_id =", filter.ActorID)
	}
	if filter.Action != "" {
		addFilter("action =", string(filter.Action))
	}
	if filter.EntityType != "" {
		addFilter("entity_type =", string(filter.EntityType))
	}
	if filter.EntityID != "" {
		addFilter("entity_id =", filter.EntityID)
	}
	if filter.Success != nil {
		addFilter("success =", *filter.Success)
	}
	if filter.Source != "" {
		addFilter("source =", string(filter.Source))
	}
	if filter.CreatedFrom != nil {
		addFilter("created_at >=", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		addFilter("created_at <=", *filter.CreatedTo)
	}

	var total int
	if err := s.db.QueryRow(ctx, countQuery.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}
	if total == 0 {
		return []*audit.Entry{}, 0, nil
	}

	baseQuery.WriteString(" ORDER BY created_at DESC")
	if filter.Limit > 0 {
		baseQuery.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, filter.Limit)
		argCount++
	}
	if filter.Offset > 0 {
		baseQuery.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		entry := &audit.Entry{}
		var action, entityType, source string
		if err := rows.Scan(
			&entry.ID, &entry.ActorID, &entry.IPAddress, &entry.UserAgent,
			&action, &entityType, &entry.EntityID, &entry.Description,
			&entry.Metadata, &entry.OldValues, &entry.NewValues,
			&entry.Success, &entry.ErrorMessage, &source, &entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = audit.ActionKind(action)
		entry.EntityType = audit.EntityKind(entityType)
		entry.Source = audit.RequestSource(source)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, total, nil
}

// Statistics aggregates entries created at or after since.
func (s *Store) Statistics(ctx context.Context, since time.Time) (*audit.Statistics, error) {
	stats := &audit.Statistics{
		ByAction:     make(map[audit.ActionKind]int64),
		ByEntityType: make(map[audit.EntityKind]int64),
	}

	totalsQuery := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE success),
		       COUNT(*) FILTER (WHERE NOT success),
		       COUNT(DISTINCT actor_id) FILTER (WHERE actor_id IS NOT NULL)
		FROM audit_entries
		WHERE created_at >= $1
	`
	err := s.db.QueryRow(ctx, totalsQuery, since).Scan(
		&stats.Total, &stats.SuccessCount, &stats.FailureCount, &stats.DistinctActors,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate audit totals: %w", err)
	}

	byAction, err := s.countsBy(ctx, "action", since)
	if err != nil {
		return nil, err
	}
	for k, v := range byAction {
		stats.ByAction[audit.ActionKind(k)] = v
	}

	byEntity, err := s.countsBy(ctx, "entity_type", since)
	if err != nil {
		return nil, err
	}
	for k, v := range byEntity {
		stats.ByEntityType[audit.EntityKind(k)] = v
	}

	return stats, nil
}

// countsBy groups entries by a known column name. column is never
// caller-supplied.
func (s *Store) countsBy(ctx context.Context, column string, since time.Time) (map[string]int64, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*)
		FROM audit_entries
		WHERE created_at >= $1
		GROUP BY %s
	`, column, column)

	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("aggregate audit entries by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan %s aggregate: %w", column, err)
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s aggregates: %w", column, err)
	}
	return counts, nil
}

// PurgeOlderThan hard-deletes entries created before the cutoff and reports
// how many rows went away.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM audit_entries WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ audit.Store = (*Store)(nil)
