// Package memory provides an in-memory audit store. It backs unit tests and
// local development; production uses the postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"identra/internal/audit"
)

// InMemoryStore keeps entries in a slice guarded by a RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*audit.Entry
}

// New constructs an empty in-memory store.
func New() *InMemoryStore {
	return &InMemoryStore{}
}

// Clear drops all entries. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Append stores a copy of the entry.
func (s *InMemoryStore) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries = append(s.entries, &copied)
	return nil
}

// Query filters, sorts by creation time descending, and paginates.
func (s *InMemoryStore) Query(_ context.Context, filter audit.Filter) ([]*audit.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*audit.Entry
	for _, entry := range s.entries {
		if matches(entry, filter) {
			matched = append(matched, entry)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)

	if filter.Offset >= total {
		return []*audit.Entry{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]*audit.Entry, len(matched))
	for i, entry := range matched {
		copied := *entry
		out[i] = &copied
	}
	return out, total, nil
}

func matches(entry *audit.Entry, filter audit.Filter) bool {
	if filter.ActorID != "" && (entry.ActorID == nil || *entry.ActorID != filter.ActorID) {
		return false
	}
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	if filter.EntityType != "" && entry.EntityType != filter.EntityType {
		return false
	}
	if filter.EntityID != "" && (entry.EntityID == nil || *entry.EntityID != filter.EntityID) {
		return false
	}
	if filter.Success != nil && entry.Success != *filter.Success {
		return false
	}
	if filter.Source != "" && entry.Source != filter.Source {
		return false
	}
	if filter.CreatedFrom != nil && entry.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && entry.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}

// Statistics aggregates entries created at or after since.
func (s *InMemoryStore) Statistics(_ context.Context, since time.Time) (*audit.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &audit.Statistics{
		ByAction:     make(map[audit.ActionKind]int64),
		ByEntityType: make(map[audit.EntityKind]int64),
	}
	actors := make(map[string]struct{})

	for _, entry := range s.entries {
		if entry.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		if entry.Success {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}
		if entry.ActorID != nil {
			actors[*entry.ActorID] = struct{}{}
		}
		stats.ByAction[entry.Action]++
		stats.ByEntityType[entry.EntityType]++
	}

	stats.DistinctActors = int64(len(actors))
	return stats, nil
}

// PurgeOlderThan deletes entries created before the cutoff.
func (s *InMemoryStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*audit.Entry
	var deleted int64
	for _, entry := range s.entries {
		if entry.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
	return deleted, nil
}
