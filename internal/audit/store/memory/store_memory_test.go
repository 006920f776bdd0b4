package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identra/internal/audit"
)

func entryAt(created time.Time, mutate func(*audit.Entry)) *audit.Entry {
	entry := &audit.Entry{
		ID:          uuid.New(),
		Action:      audit.ActionView,
		EntityType:  audit.EntityProperty,
		Description: "List properties",
		Success:     true,
		Source:      audit.SourceWeb,
		CreatedAt:   created,
	}
	if mutate != nil {
		mutate(entry)
	}
	return entry
}

func strPtr(s string) *string { return &s }

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()
	store := New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, entryAt(base, func(e *audit.Entry) {
		e.ActorID = strPtr("u1")
		e.Action = audit.ActionCreate
		e.EntityID = strPtr("p1")
	})))
	require.NoError(t, store.Append(ctx, entryAt(base.Add(time.Hour), func(e *audit.Entry) {
		e.ActorID = strPtr("u2")
		e.EntityType = audit.EntityContract
		e.Success = false
		e.ErrorMessage = strPtr("boom")
		e.Source = audit.SourceAPI
	})))
	require.NoError(t, store.Append(ctx, entryAt(base.Add(2*time.Hour), func(e *audit.Entry) {
		e.ActorID = strPtr("u1")
	})))

	t.Run("no filter matches all, newest first", func(t *testing.T) {
		entries, total, err := store.Query(ctx, audit.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, entries, 3)
		assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))
		assert.True(t, entries[1].CreatedAt.After(entries[2].CreatedAt))
	})

	t.Run("by actor", func(t *testing.T) {
		_, total, err := store.Query(ctx, audit.Filter{ActorID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})

	t.Run("by action", func(t *testing.T) {
		entries, _, err := store.Query(ctx, audit.Filter{Action: audit.ActionCreate})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "p1", *entries[0].EntityID)
	})

	t.Run("by entity type and id", func(t *testing.T) {
		_, total, err := store.Query(ctx, audit.Filter{EntityType: audit.EntityProperty, EntityID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("by success flag", func(t *testing.T) {
		failed := false
		entries, _, err := store.Query(ctx, audit.Filter{Success: &failed})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "boom", *entries[0].ErrorMessage)
	})

	t.Run("by source", func(t *testing.T) {
		_, total, err := store.Query(ctx, audit.Filter{Source: audit.SourceAPI})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("by time range", func(t *testing.T) {
		from := base.Add(30 * time.Minute)
		to := base.Add(90 * time.Minute)
		_, total, err := store.Query(ctx, audit.Filter{CreatedFrom: &from, CreatedTo: &to})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("pagination", func(t *testing.T) {
		entries, total, err := store.Query(ctx, audit.Filter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, entries, 1)
	})

	t.Run("offset past end", func(t *testing.T) {
		entries, total, err := store.Query(ctx, audit.Filter{Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Empty(t, entries)
	})
}

func TestAppendStoresCopy(t *testing.T) {
	ctx := context.Background()
	store := New()

	entry := entryAt(time.Now(), nil)
	require.NoError(t, store.Append(ctx, entry))

	// Mutating the caller's entry must not reach the store.
	entry.Description = "changed"

	entries, _, err := store.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "List properties", entries[0].Description)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now().UTC()

	require.NoError(t, store.Append(ctx, entryAt(now.AddDate(0, 0, -40), nil)))
	require.NoError(t, store.Append(ctx, entryAt(now, func(e *audit.Entry) {
		e.ActorID = strPtr("u1")
	})))
	require.NoError(t, store.Append(ctx, entryAt(now, func(e *audit.Entry) {
		e.ActorID = strPtr("u1")
		e.Success = false
	})))

	stats, err := store.Statistics(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.SuccessCount)
	assert.Equal(t, int64(1), stats.FailureCount)
	assert.Equal(t, int64(1), stats.DistinctActors)
}

func TestPurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now().UTC()

	require.NoError(t, store.Append(ctx, entryAt(now.AddDate(0, 0, -90), nil)))
	require.NoError(t, store.Append(ctx, entryAt(now, nil)))

	deleted, err := store.PurgeOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err := store.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
