package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"enrolld/internal/ledger"
	"enrolld/internal/migration"
	pstore "enrolld/internal/profile/store"
	"enrolld/internal/signup/allocator"
	"enrolld/internal/signup/models"
	"enrolld/internal/signup/ports/mocks"
	"enrolld/pkg/domain"
)

// recordingStore tags every write with its origin so tests can assert on
// cross-system ordering.
type recordingStore struct {
	*pstore.MemoryStore
	calls *[]string
}

func (s *recordingStore) InsertProfile(ctx context.Context, p models.Profile) error {
	*s.calls = append(*s.calls, "store.insert_profile")
	return s.MemoryStore.InsertProfile(ctx, p)
}

func (s *recordingStore) InsertCredential(ctx context.Context, email, hash, salt string) error {
	*s.calls = append(*s.calls, "store.insert_credential")
	return s.MemoryStore.InsertCredential(ctx, email, hash, salt)
}

// The identity provider account must exist before any store row is written;
// a store row without a login-capable account is unreachable.
func TestProvisionNewProviderWriteComesFirst(t *testing.T) {
	ctrl := gomock.NewController(t)

	var calls []string
	mockProvider := mocks.NewMockProviderClient(ctrl)
	store := &recordingStore{MemoryStore: pstore.NewMemory(), calls: &calls}

	mockProvider.EXPECT().
		CreateAccount(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.ProviderAccount) (string, error) {
			calls = append(calls, "provider.create_account")
			return "acct-1", nil
		})
	mockProvider.EXPECT().
		SetCredential(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, string) error {
			calls = append(calls, "provider.set_credential")
			return nil
		})
	mockProvider.EXPECT().
		AddToGroup(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, domain.MembershipGroup) error {
			calls = append(calls, "provider.add_to_group")
			return nil
		})

	alloc, err := allocator.New([]byte("test-allocation-secret"), store)
	require.NoError(t, err)
	failureLedger, err := ledger.New(ledger.NewMemoryStore())
	require.NoError(t, err)
	tracker, err := migration.NewTracker(migration.NewMemoryStore())
	require.NoError(t, err)

	coord, err := New(mockProvider, store, alloc, failureLedger, tracker)
	require.NoError(t, err)

	_, err = coord.ProvisionNew(context.Background(), models.SignupRequest{
		Email:       "jane.doe@example.com",
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: "1990-04-01",
		Group:       domain.GroupStandard,
		Credential:  models.CredentialMaterial{Password: "correct horse battery"},
		Source:      domain.SourceWeb,
	})
	require.NoError(t, err)

	require.Equal(t, "provider.create_account", calls[0])
	firstStore := -1
	for i, call := range calls {
		if call == "store.insert_profile" {
			firstStore = i
			break
		}
	}
	require.Greater(t, firstStore, 0, "store insert never happened")
	for _, call := range calls[:firstStore] {
		require.NotContains(t, call, "store.insert_credential")
	}
}
