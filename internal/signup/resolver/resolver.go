// Package resolver classifies a signup request against the current state of
// the identity provider and the profile store. It reads both systems and has
// no other side effects.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"enrolld/internal/signup/models"
	"enrolld/internal/signup/ports"
	"enrolld/pkg/domain"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/email"
	"enrolld/pkg/platform/sentinel"
)

type Resolver struct {
	provider     ports.ProviderClient
	profiles     ports.ProfileStore
	upgradeGroup domain.MembershipGroup
	logger       *slog.Logger
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithUpgradeGroup overrides the group whose sole membership makes an account
// upgrade-eligible. Defaults to the newsletter group.
func WithUpgradeGroup(g domain.MembershipGroup) Option {
	return func(r *Resolver) { r.upgradeGroup = g }
}

func New(provider ports.ProviderClient, profiles ports.ProfileStore, opts ...Option) (*Resolver, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	r := &Resolver{
		provider:     provider,
		profiles:     profiles,
		upgradeGroup: domain.GroupNewsletter,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve reads both systems for the email and classifies the signup path.
// Both reads always run so the resolution carries the full picture, whichever
// path wins.
func (r *Resolver) Resolve(ctx context.Context, rawEmail string) (models.Resolution, error) {
	addr := email.Normalize(rawEmail)

	profile, err := r.profiles.ProfileByEmail(ctx, addr)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return models.Resolution{}, dErrors.Wrap(err, dErrors.CodeSignupFailed, "profile lookup failed")
	}

	account, err := r.provider.AccountByEmail(ctx, addr)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return models.Resolution{}, dErrors.Wrap(err, dErrors.CodeSignupFailed, "identity provider lookup failed")
	}

	res := models.Resolution{Account: account, Profile: profile}
	switch {
	case profile != nil:
		res.Path = models.PathConflict
	case account == nil:
		res.Path = models.PathNew
	case !account.MemberID.IsNil() && account.HasOnlyGroup(r.upgradeGroup):
		res.Path = models.PathUpgrade
	default:
		// Covers accounts with other memberships and accounts without a
		// member ID: conflict-safe, optionally refreshable on migration runs.
		res.Path = models.PathBlockedDuplicate
	}

	r.logger.DebugContext(ctx, "signup path resolved",
		"email", addr,
		"path", res.Path.String(),
	)
	return res, nil
}
