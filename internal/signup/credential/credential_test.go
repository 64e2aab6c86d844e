package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"enrolld/internal/signup/models"
	dErrors "enrolld/pkg/domain-errors"
)

func TestPrepare_Interactive(t *testing.T) {
	req := models.SignupRequest{
		Email:      "jane@example.com",
		Credential: models.CredentialMaterial{Password: "s3cret-pass"},
	}

	prepared, err := Prepare(req)
	require.NoError(t, err)

	t.Run("provider receives the raw password", func(t *testing.T) {
		assert.Equal(t, "s3cret-pass", prepared.Provider)
	})

	t.Run("store hash verifies against the password", func(t *testing.T) {
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(prepared.StoreHash), []byte("s3cret-pass")))
	})

	t.Run("missing password is rejected", func(t *testing.T) {
		_, err := Prepare(models.SignupRequest{Email: "jane@example.com"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestPrepare_Migrated(t *testing.T) {
	t.Run("pre-hashed material is kept", func(t *testing.T) {
		req := models.SignupRequest{
			IsMigration: true,
			Credential: models.CredentialMaterial{
				PreHashedHash: "legacy-hash",
				PreHashedSalt: "legacy-salt",
			},
		}

		prepared, err := Prepare(req)
		require.NoError(t, err)
		assert.Equal(t, "legacy-hash", prepared.StoreHash)
		assert.Equal(t, "legacy-salt", prepared.StoreSalt)
		assert.Equal(t, "legacy-hash"+migratedTag, prepared.Provider)
	})

	t.Run("no material yields a throwaway credential", func(t *testing.T) {
		req := models.SignupRequest{IsMigration: true}

		prepared, err := Prepare(req)
		require.NoError(t, err)
		assert.NotEmpty(t, prepared.StoreHash)
		assert.NotEmpty(t, prepared.StoreSalt)
		assert.True(t, strings.HasSuffix(prepared.Provider, migratedTag))
		assert.Equal(t, prepared.StoreHash+migratedTag, prepared.Provider)
	})

	t.Run("provider credential is always tagged", func(t *testing.T) {
		// The tag guarantees a migrated provider credential can never equal a
		// genuine password.
		req := models.SignupRequest{
			IsMigration: true,
			Credential:  models.CredentialMaterial{PreHashedHash: "hash"},
		}
		prepared, err := Prepare(req)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(prepared.Provider, migratedTag))
	})

	t.Run("two passwordless signups never share a credential", func(t *testing.T) {
		a, err := Prepare(models.SignupRequest{IsMigration: true})
		require.NoError(t, err)
		b, err := Prepare(models.SignupRequest{IsMigration: true})
		require.NoError(t, err)
		assert.NotEqual(t, a.StoreHash, b.StoreHash)
		assert.NotEqual(t, a.StoreSalt, b.StoreSalt)
	})
}
