package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolld/pkg/domain"
)

func TestEmitStampsMissingTimestamp(t *testing.T) {
	store := NewMemoryStore()
	publisher := NewPublisher(store)

	err := publisher.Emit(context.Background(), Event{
		Email:   "jane@example.com",
		Action:  ActionSignupCompleted,
		Outcome: OutcomeSuccess,
	})
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 1)
	assert.WithinDuration(t, time.Now(), events[0].Timestamp, time.Second)
}

func TestEmitKeepsCallerTimestamp(t *testing.T) {
	store := NewMemoryStore()
	publisher := NewPublisher(store)

	stamp := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	err := publisher.Emit(context.Background(), Event{
		Timestamp: stamp,
		Email:     "jane@example.com",
		Action:    ActionIdentityUpgraded,
		Outcome:   OutcomeSuccess,
		MemberID:  domain.MemberID("MSW12345678901"),
		BatchID:   domain.BatchID("batch-2026-08"),
	})
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, stamp, events[0].Timestamp)
	assert.Equal(t, domain.MemberID("MSW12345678901"), events[0].MemberID)
}
