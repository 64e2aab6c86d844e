package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	pstore "enrolld/internal/profile/store"
	"enrolld/internal/provider"
	"enrolld/internal/signup/models"
	"enrolld/pkg/domain"
)

type ResolverSuite struct {
	suite.Suite
	provider *provider.Fake
	store    *pstore.MemoryStore
	resolver *Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.provider = provider.NewFake()
	s.store = pstore.NewMemory()

	var err error
	s.resolver, err = New(s.provider, s.store)
	s.Require().NoError(err)
}

// === Classification matrix ===

func (s *ResolverSuite) TestUnknownEmailResolvesNew() {
	res, err := s.resolver.Resolve(context.Background(), "nobody@example.com")
	s.Require().NoError(err)
	s.Equal(models.PathNew, res.Path)
	s.Nil(res.Account)
	s.Nil(res.Profile)
}

func (s *ResolverSuite) TestProfileRowAlwaysWinsAsConflict() {
	// Even with an upgrade-shaped provider account, an existing profile row
	// means the identity was fully provisioned before.
	s.provider.Seed(models.ProviderAccount{
		Email:    "jane@example.com",
		MemberID: domain.MemberID("MSW12345678901"),
		Groups:   []domain.MembershipGroup{domain.GroupNewsletter},
	})
	s.Require().NoError(s.store.InsertProfile(context.Background(), models.Profile{
		Email:    "jane@example.com",
		MemberID: domain.MemberID("MSW12345678901"),
	}))

	res, err := s.resolver.Resolve(context.Background(), "jane@example.com")
	s.Require().NoError(err)
	s.Equal(models.PathConflict, res.Path)
	s.NotNil(res.Profile)
	s.NotNil(res.Account)
}

func (s *ResolverSuite) TestNewsletterOnlyAccountResolvesUpgrade() {
	s.provider.Seed(models.ProviderAccount{
		Email:    "jane@example.com",
		MemberID: domain.MemberID("MSW12345678901"),
		Groups:   []domain.MembershipGroup{domain.GroupNewsletter},
	})

	res, err := s.resolver.Resolve(context.Background(), "jane@example.com")
	s.Require().NoError(err)
	s.Equal(models.PathUpgrade, res.Path)
	s.Require().NotNil(res.Account)
	s.Equal(domain.MemberID("MSW12345678901"), res.Account.MemberID)
}

func (s *ResolverSuite) TestBlockedDuplicateShapes() {
	s.Run("account with a full membership", func() {
		s.SetupTest()
		s.provider.Seed(models.ProviderAccount{
			Email:    "jane@example.com",
			MemberID: domain.MemberID("MSW12345678901"),
			Groups:   []domain.MembershipGroup{domain.GroupStandard},
		})

		res, err := s.resolver.Resolve(context.Background(), "jane@example.com")
		s.Require().NoError(err)
		s.Equal(models.PathBlockedDuplicate, res.Path)
	})

	s.Run("newsletter account plus another group", func() {
		s.SetupTest()
		s.provider.Seed(models.ProviderAccount{
			Email:    "jane@example.com",
			MemberID: domain.MemberID("MSW12345678901"),
			Groups:   []domain.MembershipGroup{domain.GroupNewsletter, domain.GroupTrial},
		})

		res, err := s.resolver.Resolve(context.Background(), "jane@example.com")
		s.Require().NoError(err)
		s.Equal(models.PathBlockedDuplicate, res.Path)
	})

	s.Run("newsletter account without a member id", func() {
		s.SetupTest()
		s.provider.Seed(models.ProviderAccount{
			Email:  "jane@example.com",
			Groups: []domain.MembershipGroup{domain.GroupNewsletter},
		})

		res, err := s.resolver.Resolve(context.Background(), "jane@example.com")
		s.Require().NoError(err)
		s.Equal(models.PathBlockedDuplicate, res.Path)
	})
}

func (s *ResolverSuite) TestLookupIsCaseInsensitive() {
	s.provider.Seed(models.ProviderAccount{
		Email:    "jane@example.com",
		MemberID: domain.MemberID("MSW12345678901"),
		Groups:   []domain.MembershipGroup{domain.GroupNewsletter},
	})

	res, err := s.resolver.Resolve(context.Background(), "  Jane@Example.COM ")
	s.Require().NoError(err)
	s.Equal(models.PathUpgrade, res.Path)
}

func TestResolverRequiresCollaborators(t *testing.T) {
	_, err := New(nil, pstore.NewMemory())
	require.Error(t, err)

	_, err = New(provider.NewFake(), nil)
	require.Error(t, err)
}
