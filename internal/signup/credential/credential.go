// Package credential builds the two system-specific credential
// representations for a signup mode. No network I/O happens here.
package credential

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"enrolld/internal/signup/models"
	dErrors "enrolld/pkg/domain-errors"
)

// migratedTag marks provider-side credentials for migrated accounts. The tag
// keeps a stored hash from ever colliding with a password a user could type.
const migratedTag = "{mig}"

// Prepared holds both credential representations for one signup.
type Prepared struct {
	// StoreHash and StoreSalt go into the profile store's credential
	// sub-record.
	StoreHash string
	StoreSalt string
	// Provider is what the identity provider's credential-set operation
	// receives: the raw password for interactive signups, the tagged store
	// hash for migrated ones.
	Provider string
}

// Prepare builds the credential pair for a request.
//
// Interactive signups hash the supplied password for the store and pass the
// raw password to the provider. Migrated signups keep the caller's pre-hashed
// value when present; otherwise a throwaway random value is hashed so the
// account cannot be logged into by password until a reset, and the provider
// side gets the store hash with the migrated tag appended.
func Prepare(req models.SignupRequest) (Prepared, error) {
	if req.IsMigration {
		return prepareMigrated(req)
	}
	return prepareInteractive(req)
}

func prepareInteractive(req models.SignupRequest) (Prepared, error) {
	password := req.Credential.Password
	if password == "" {
		return Prepared{}, dErrors.New(dErrors.CodeInvalidInput, "password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Prepared{}, fmt.Errorf("hash password: %w", err)
	}

	return Prepared{
		StoreHash: string(hash),
		Provider:  password,
	}, nil
}

func prepareMigrated(req models.SignupRequest) (Prepared, error) {
	if req.Credential.PreHashedHash != "" {
		return Prepared{
			StoreHash: req.Credential.PreHashedHash,
			StoreSalt: req.Credential.PreHashedSalt,
			Provider:  req.Credential.PreHashedHash + migratedTag,
		}, nil
	}

	// No material supplied: hash a throwaway random value and discard it.
	throwaway := make([]byte, 32)
	if _, err := rand.Read(throwaway); err != nil {
		return Prepared{}, fmt.Errorf("read throwaway credential: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword(throwaway, bcrypt.DefaultCost)
	if err != nil {
		return Prepared{}, fmt.Errorf("hash throwaway credential: %w", err)
	}

	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return Prepared{}, fmt.Errorf("read credential salt: %w", err)
	}

	return Prepared{
		StoreHash: string(hash),
		StoreSalt: hex.EncodeToString(salt),
		Provider:  string(hash) + migratedTag,
	}, nil
}
