package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"enrolld/internal/signup/models"
	"enrolld/pkg/domain"
	"enrolld/pkg/platform/sentinel"
)

// MemoryStore is an in-memory ProfileStore for tests and local development.
// Keys are lowercased emails, matching the postgres store's case-insensitive
// lookups.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]models.Profile
	memberIDs   map[domain.MemberID]bool
	credentials map[string]memoryCredential
	memberships map[string][]memoryMembership
	newsletters map[string]bool
	contacts    map[string]memoryContact
}

type memoryCredential struct {
	hash string
	salt string
}

type memoryMembership struct {
	group    domain.MembershipGroup
	joinedAt time.Time
}

type memoryContact struct {
	phone   string
	country string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]models.Profile),
		memberIDs:   make(map[domain.MemberID]bool),
		credentials: make(map[string]memoryCredential),
		memberships: make(map[string][]memoryMembership),
		newsletters: make(map[string]bool),
		contacts:    make(map[string]memoryContact),
	}
}

func key(email string) string { return strings.ToLower(email) }

func (s *MemoryStore) MemberIDExists(_ context.Context, id domain.MemberID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memberIDs[id], nil
}

func (s *MemoryStore) ProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[key(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *MemoryStore) InsertProfile(_ context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberIDs[p.MemberID] {
		return fmt.Errorf("insert profile: %w", sentinel.ErrIDTaken)
	}
	if _, ok := s.profiles[key(p.Email)]; ok {
		return fmt.Errorf("insert profile: %w", sentinel.ErrConflict)
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.profiles[key(p.Email)] = p
	s.memberIDs[p.MemberID] = true
	return nil
}

func (s *MemoryStore) UpsertCoreFields(_ context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[key(p.Email)]
	if !ok {
		// First profile row for an account that predates the store, such as
		// an upgraded newsletter subscriber. The member ID is kept.
		now := time.Now()
		p.CreatedAt, p.UpdatedAt = now, now
		s.profiles[key(p.Email)] = p
		s.memberIDs[p.MemberID] = true
		return nil
	}
	existing.FirstName = p.FirstName
	existing.LastName = p.LastName
	existing.DateOfBirth = p.DateOfBirth
	existing.Country = p.Country
	existing.UpdatedAt = time.Now()
	s.profiles[key(p.Email)] = existing
	return nil
}

func (s *MemoryStore) InsertCredential(_ context.Context, email, hash, salt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[key(email)]; ok {
		return fmt.Errorf("insert credential: %w", sentinel.ErrConflict)
	}
	s.credentials[key(email)] = memoryCredential{hash: hash, salt: salt}
	return nil
}

func (s *MemoryStore) UpdateCredential(_ context.Context, email, hash, salt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[key(email)] = memoryCredential{hash: hash, salt: salt}
	return nil
}

func (s *MemoryStore) InsertMembership(_ context.Context, email string, group domain.MembershipGroup, joinedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships[key(email)] {
		if m.group == group {
			return fmt.Errorf("insert membership: %w", sentinel.ErrConflict)
		}
	}
	s.memberships[key(email)] = append(s.memberships[key(email)], memoryMembership{group: group, joinedAt: joinedAt})
	return nil
}

func (s *MemoryStore) InsertNewsletterPref(_ context.Context, email string, optedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.newsletters[key(email)]; ok {
		return fmt.Errorf("insert newsletter preference: %w", sentinel.ErrConflict)
	}
	s.newsletters[key(email)] = optedIn
	return nil
}

func (s *MemoryStore) InsertContactDetail(_ context.Context, email, phone, country string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[key(email)]; ok {
		return fmt.Errorf("insert contact detail: %w", sentinel.ErrConflict)
	}
	s.contacts[key(email)] = memoryContact{phone: phone, country: country}
	return nil
}

func (s *MemoryStore) UpsertContactDetail(_ context.Context, email, phone, country string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[key(email)] = memoryContact{phone: phone, country: country}
	return nil
}

// Transaction in memory just runs fn; there is nothing to roll back.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Test inspection helpers.

// Credential returns the stored credential pair for an email.
func (s *MemoryStore) Credential(email string) (hash, salt string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[key(email)]
	return c.hash, c.salt, ok
}

// Memberships returns the stored membership groups for an email.
func (s *MemoryStore) Memberships(email string) []domain.MembershipGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.MembershipGroup
	for _, m := range s.memberships[key(email)] {
		out = append(out, m.group)
	}
	return out
}

// NewsletterPref returns the stored newsletter preference for an email.
func (s *MemoryStore) NewsletterPref(email string) (optedIn, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	optedIn, ok = s.newsletters[key(email)]
	return optedIn, ok
}

// ContactDetail returns the stored contact detail for an email.
func (s *MemoryStore) ContactDetail(email string) (phone, country string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[key(email)]
	return c.phone, c.country, ok
}
