package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolld/pkg/domain"
)

func TestTrackerLastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	tracker, err := NewTracker(store)
	require.NoError(t, err)

	ctx := context.Background()
	batchID := domain.BatchID("batch-2026-08")

	require.NoError(t, tracker.MarkError(ctx, "jane@example.com", batchID))
	require.NoError(t, tracker.MarkApplied(ctx, "jane@example.com", batchID))

	state, ok := store.State("jane@example.com", batchID)
	require.True(t, ok)
	assert.Equal(t, StateApplied, state)

	// Reruns overwrite again.
	require.NoError(t, tracker.MarkSkipped(ctx, "jane@example.com", batchID))
	state, _ = store.State("jane@example.com", batchID)
	assert.Equal(t, StateSkipped, state)
}

func TestTrackerIgnoresNilBatch(t *testing.T) {
	store := NewMemoryStore()
	tracker, err := NewTracker(store)
	require.NoError(t, err)

	require.NoError(t, tracker.MarkApplied(context.Background(), "jane@example.com", domain.BatchID("")))

	entries, err := store.ListByBatch(context.Background(), domain.BatchID(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTrackerKeysPerBatch(t *testing.T) {
	store := NewMemoryStore()
	tracker, err := NewTracker(store)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tracker.MarkApplied(ctx, "jane@example.com", domain.BatchID("batch-1")))
	require.NoError(t, tracker.MarkError(ctx, "jane@example.com", domain.BatchID("batch-2")))

	state, _ := store.State("jane@example.com", domain.BatchID("batch-1"))
	assert.Equal(t, StateApplied, state)
	state, _ = store.State("jane@example.com", domain.BatchID("batch-2"))
	assert.Equal(t, StateError, state)
}
