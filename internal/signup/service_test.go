package signup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"enrolld/internal/audit"
	"enrolld/internal/ledger"
	"enrolld/internal/migration"
	pstore "enrolld/internal/profile/store"
	"enrolld/internal/provider"
	"enrolld/internal/signup/allocator"
	"enrolld/internal/signup/coordinator"
	"enrolld/internal/signup/models"
	"enrolld/internal/signup/resolver"
	"enrolld/pkg/domain"
	dErrors "enrolld/pkg/domain-errors"
)

const allocSecret = "test-allocation-secret"

type ServiceSuite struct {
	suite.Suite
	provider     *provider.Fake
	store        *pstore.MemoryStore
	alloc        *allocator.Allocator
	trackerStore *migration.MemoryStore
	auditStore   *audit.MemoryStore
	service      *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.buildService(false)
}

func (s *ServiceSuite) buildService(updateExisting bool) {
	s.provider = provider.NewFake()
	s.store = pstore.NewMemory()

	var err error
	s.alloc, err = allocator.New([]byte(allocSecret), s.store)
	s.Require().NoError(err)

	failureLedger, err := ledger.New(ledger.NewMemoryStore())
	s.Require().NoError(err)

	s.trackerStore = migration.NewMemoryStore()
	tracker, err := migration.NewTracker(s.trackerStore)
	s.Require().NoError(err)

	s.auditStore = audit.NewMemoryStore()
	publisher := audit.NewPublisher(s.auditStore)

	coord, err := coordinator.New(s.provider, s.store, s.alloc, failureLedger, tracker,
		coordinator.WithAuditPublisher(publisher),
	)
	s.Require().NoError(err)

	res, err := resolver.New(s.provider, s.store)
	s.Require().NoError(err)

	s.service, err = NewService(res, coord, tracker,
		WithAuditPublisher(publisher),
		WithUpdateExisting(updateExisting),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) newRequest() models.SignupRequest {
	return models.SignupRequest{
		Email:       "jane.doe@example.com",
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: "1990-04-01",
		Group:       domain.GroupStandard,
		Country:     "GB",
		Credential:  models.CredentialMaterial{Password: "correct horse battery"},
		Source:      domain.SourceWeb,
	}
}

// === Validation ===

func (s *ServiceSuite) TestValidationRejects() {
	tests := []struct {
		name   string
		mutate func(*models.SignupRequest)
	}{
		{"implausible email", func(r *models.SignupRequest) { r.Email = "not-an-email" }},
		{"unknown group", func(r *models.SignupRequest) { r.Group = domain.MembershipGroup("board-members") }},
		{"newsletter group not signable", func(r *models.SignupRequest) { r.Group = domain.GroupNewsletter }},
		{"unknown source", func(r *models.SignupRequest) { r.Source = domain.SourceChannel("fax") }},
		{"garbled date of birth", func(r *models.SignupRequest) { r.DateOfBirth = "01.04.1990" }},
		{"missing name", func(r *models.SignupRequest) { r.FirstName = "" }},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.newRequest()
			tt.mutate(&req)

			_, err := s.service.Signup(context.Background(), req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func (s *ServiceSuite) TestMigrationDerivesMissingNames() {
	req := s.newRequest()
	req.Email = "sam.smith@example.com"
	req.FirstName = ""
	req.LastName = ""
	req.IsMigration = true
	req.Credential = models.CredentialMaterial{}

	result, err := s.service.Signup(context.Background(), req)
	s.Require().NoError(err)
	s.Equal(models.PathNew, result.Path)

	account, ok := s.provider.Account(req.Email)
	s.Require().True(ok)
	s.Equal("Sam", account.FirstName)
	s.Equal("Smith", account.LastName)
}

// === Scenario walk-throughs ===

func (s *ServiceSuite) TestNewSignupReturnsFirstProbeID() {
	req := s.newRequest()

	result, err := s.service.Signup(context.Background(), req)
	s.Require().NoError(err)
	s.Equal(models.PathNew, result.Path)

	// An uncontested signup lands on the counter-0 ID, reproducible from the
	// request alone.
	expected := s.alloc.Allocate(allocator.Input{
		Group:       req.Group,
		Source:      req.Source,
		Email:       req.Email,
		DateOfBirth: req.DateOfBirth,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
	}, 0, "")
	s.Equal(expected, result.MemberID)
}

func (s *ServiceSuite) TestNewsletterSubscriberIsUpgraded() {
	s.provider.Seed(models.ProviderAccount{
		Email:    "jane.doe@example.com",
		MemberID: domain.MemberID("MSW99988877766"),
		Groups:   []domain.MembershipGroup{domain.GroupNewsletter},
	})

	result, err := s.service.Signup(context.Background(), s.newRequest())
	s.Require().NoError(err)
	s.Equal(models.PathUpgrade, result.Path)
	s.Equal(domain.MemberID("MSW99988877766"), result.MemberID)

	account, ok := s.provider.Account("jane.doe@example.com")
	s.Require().True(ok)
	s.ElementsMatch(
		[]domain.MembershipGroup{domain.GroupNewsletter, domain.GroupStandard},
		account.Groups,
	)
}

func (s *ServiceSuite) TestBlockedMigrationWithoutSwitchIsConflict() {
	s.provider.Seed(models.ProviderAccount{
		Email:    "jane.doe@example.com",
		MemberID: domain.MemberID("MSW99988877766"),
		Groups:   []domain.MembershipGroup{domain.GroupStandard},
	})

	req := s.newRequest()
	req.IsMigration = true
	req.BatchID = domain.BatchID("batch-2026-08")

	_, err := s.service.Signup(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIdentityConflict))

	state, ok := s.trackerStore.State("jane.doe@example.com", req.BatchID)
	s.Require().True(ok)
	s.Equal(migration.StateError, state)

	events := s.auditStore.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionSignupConflict, events[0].Action)
}

func (s *ServiceSuite) TestBlockedMigrationWithSwitchRefreshesInPlace() {
	s.buildService(true)
	s.provider.Seed(models.ProviderAccount{
		Email:    "jane.doe@example.com",
		MemberID: domain.MemberID("MSW99988877766"),
		Groups:   []domain.MembershipGroup{domain.GroupStandard},
	})

	req := s.newRequest()
	req.IsMigration = true
	req.Credential = models.CredentialMaterial{PreHashedHash: "$2a$10$hash", PreHashedSalt: "salt"}

	result, err := s.service.Signup(context.Background(), req)
	s.Require().NoError(err)
	s.Equal(models.PathBlockedDuplicate, result.Path)
	s.Equal(domain.MemberID("MSW99988877766"), result.MemberID)

	hash, salt, ok := s.store.Credential("jane.doe@example.com")
	s.Require().True(ok)
	s.Equal("$2a$10$hash", hash)
	s.Equal("salt", salt)
}

func (s *ServiceSuite) TestExistingProfileIsConflict() {
	s.Require().NoError(s.store.InsertProfile(context.Background(), models.Profile{
		Email:    "jane.doe@example.com",
		MemberID: domain.MemberID("MSW11122233344"),
	}))

	req := s.newRequest()
	req.BatchID = domain.BatchID("batch-2026-08")

	_, err := s.service.Signup(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIdentityConflict))

	// Conflicts on reruns converge to skipped, not error.
	state, ok := s.trackerStore.State("jane.doe@example.com", req.BatchID)
	s.Require().True(ok)
	s.Equal(migration.StateSkipped, state)
}
