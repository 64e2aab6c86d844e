package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"enrolld/internal/signup/models"
	"enrolld/pkg/domain"
	"enrolld/pkg/platform/sentinel"
)

// Fake is an in-memory provider for tests and local development. Accounts are
// keyed by lowercased email like the real provider.
type Fake struct {
	mu          sync.Mutex
	accounts    map[string]*models.ProviderAccount
	credentials map[string]string
	nextID      int
}

func NewFake() *Fake {
	return &Fake{
		accounts:    make(map[string]*models.ProviderAccount),
		credentials: make(map[string]string),
	}
}

func fakeKey(email string) string { return strings.ToLower(email) }

// Seed installs an account directly, bypassing the create flow.
func (f *Fake) Seed(account models.ProviderAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := account
	f.accounts[fakeKey(account.Email)] = &copied
}

func (f *Fake) CreateAccount(_ context.Context, account models.ProviderAccount) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[fakeKey(account.Email)]; ok {
		return "", sentinel.ErrConflict
	}
	f.nextID++
	copied := account
	f.accounts[fakeKey(account.Email)] = &copied
	return fmt.Sprintf("acct-%d", f.nextID), nil
}

func (f *Fake) SetCredential(_ context.Context, email, credential string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[fakeKey(email)]; !ok {
		return sentinel.ErrNotFound
	}
	f.credentials[fakeKey(email)] = credential
	return nil
}

func (f *Fake) AddToGroup(_ context.Context, email string, group domain.MembershipGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[fakeKey(email)]
	if !ok {
		return sentinel.ErrNotFound
	}
	for _, g := range account.Groups {
		if g == group {
			return nil
		}
	}
	account.Groups = append(account.Groups, group)
	return nil
}

func (f *Fake) AccountByEmail(_ context.Context, email string) (*models.ProviderAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[fakeKey(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *account
	copied.Groups = append([]domain.MembershipGroup(nil), account.Groups...)
	return &copied, nil
}

func (f *Fake) UpdateAttributes(_ context.Context, email string, attrs map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[fakeKey(email)]
	if !ok {
		return sentinel.ErrNotFound
	}
	for name, value := range attrs {
		switch name {
		case models.AttrMemberID:
			account.MemberID = domain.MemberID(value)
		case models.AttrFirstName:
			account.FirstName = value
		case models.AttrLastName:
			account.LastName = value
		case models.AttrDisplayName:
			account.DisplayName = value
		case models.AttrDateOfBirth:
			account.DateOfBirth = value
		}
	}
	return nil
}

// Account returns the stored account for inspection in tests.
func (f *Fake) Account(email string) (models.ProviderAccount, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[fakeKey(email)]
	if !ok {
		return models.ProviderAccount{}, false
	}
	return *account, true
}

// Credential returns the stored credential for inspection in tests.
func (f *Fake) Credential(email string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.credentials[fakeKey(email)]
	return c, ok
}
