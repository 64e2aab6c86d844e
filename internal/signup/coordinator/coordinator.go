// Package coordinator executes the write sequence for each classified signup
// path. The identity provider write always precedes the store write: the
// provider is the durable source of truth for "this identity exists", and a
// store row without a login-capable account would be unreachable.
//
// Failures after a successful provider account creation are contained per
// sub-write: each one is recorded in the failure ledger and on the typed
// partial outcome instead of aborting the remaining sub-writes, maximizing
// the usable fraction of the profile and leaving a replayable gap record.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"enrolld/internal/audit"
	"enrolld/internal/platform/metrics"
	"enrolld/internal/signup/allocator"
	"enrolld/internal/signup/credential"
	"enrolld/internal/signup/models"
	"enrolld/internal/signup/ports"
	"enrolld/pkg/domain"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/email"
	"enrolld/pkg/platform/sentinel"
	"enrolld/pkg/requestcontext"
)

// maxStoreAttempts bounds the insert retry loop backing the member-ID unique
// constraint. It matches the allocator's probe bound: past six collisions the
// uniqueness guarantee is considered violated, not raced.
const maxStoreAttempts = 6

type Coordinator struct {
	provider ports.ProviderClient
	store    ports.ProfileStore
	alloc    *allocator.Allocator
	ledger   ports.FailureLedger
	tracker  ports.MigrationTracker
	audit    ports.AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(c *Coordinator) { c.audit = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func New(
	provider ports.ProviderClient,
	store ports.ProfileStore,
	alloc *allocator.Allocator,
	ledger ports.FailureLedger,
	tracker ports.MigrationTracker,
	opts ...Option,
) (*Coordinator, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if alloc == nil {
		return nil, fmt.Errorf("allocator is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("failure ledger is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("migration tracker is required")
	}
	c := &Coordinator{
		provider: provider,
		store:    store,
		alloc:    alloc,
		ledger:   ledger,
		tracker:  tracker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ProvisionNew runs the new-identity path: allocate a member ID, create the
// provider account, then build out the store profile.
func (c *Coordinator) ProvisionNew(ctx context.Context, req models.SignupRequest) (models.ProvisionResult, error) {
	phone, err := SanitizePhone(req.PhoneNumber)
	if err != nil {
		return c.fail(ctx, req, err)
	}

	prepared, err := credential.Prepare(req)
	if err != nil {
		return c.fail(ctx, req, err)
	}

	alloc, err := c.alloc.AllocateUnique(ctx, allocInput(req))
	if err != nil {
		return c.fail(ctx, req, err)
	}

	account := buildAccount(req, alloc.ID, phone)
	if _, err := c.provider.CreateAccount(ctx, account); err != nil {
		return c.fail(ctx, req, dErrors.Wrap(err, dErrors.CodeSignupFailed, "identity account creation failed"))
	}

	// The account now exists; from here every failure is contained and
	// replayed later rather than aborting the signup.
	addr := email.Normalize(req.Email)
	var partial []models.SubWriteFailure
	contain := func(subsystem, operation string, err error, payload any) {
		partial = append(partial, models.SubWriteFailure{
			Subsystem: subsystem,
			Operation: operation,
			Reason:    err.Error(),
		})
		c.ledger.Record(ctx, subsystem, operation, payload)
		if c.metrics != nil {
			c.metrics.IncLedgerRecords()
		}
		c.logger.WarnContext(ctx, "sub-write failed, recorded for replay",
			"subsystem", subsystem,
			"operation", operation,
			"email", addr,
			"error", err,
		)
	}

	if err := c.provider.SetCredential(ctx, addr, prepared.Provider); err != nil {
		contain(models.SubsystemProvider, models.OpSetCredential, err, map[string]string{"email": addr})
	}
	if err := c.provider.AddToGroup(ctx, addr, req.Group); err != nil {
		contain(models.SubsystemProvider, models.OpAddToGroup, err, map[string]string{
			"email": addr,
			"group": req.Group.String(),
		})
	}

	if req.Batch() {
		_ = c.tracker.MarkApplied(ctx, addr, req.BatchID)
	}

	alloc, err = c.insertProfile(ctx, req, alloc, contain)
	if err != nil {
		return c.fail(ctx, req, err)
	}

	// Sub-records are attempted even when the row insert was contained;
	// replay repairs the row independently of them.
	c.writeSubRecords(ctx, req, addr, phone, prepared, contain)

	outcome := audit.OutcomeSuccess
	detail := ""
	if len(partial) > 0 {
		outcome = audit.OutcomePartial
		detail = fmt.Sprintf("%d sub-writes recorded for replay", len(partial))
	}
	c.emit(ctx, req, audit.ActionSignupCompleted, outcome, alloc.ID, detail)

	return models.ProvisionResult{
		MemberID: alloc.ID,
		Path:     models.PathNew,
		Partial:  partial,
	}, nil
}

// insertProfile inserts the demographic row inside the bounded collision
// retry loop. A member-ID unique violation regenerates the ID and pushes it
// to the provider before retrying, keeping both systems on the same ID. Any
// other insert error is contained: the row is left for ledger replay and the
// sub-records are still attempted.
func (c *Coordinator) insertProfile(
	ctx context.Context,
	req models.SignupRequest,
	alloc allocator.Allocation,
	contain func(subsystem, operation string, err error, payload any),
) (allocator.Allocation, error) {
	addr := email.Normalize(req.Email)
	now := requestcontext.Now(ctx)

	for attempt := 1; attempt <= maxStoreAttempts; attempt++ {
		err := c.store.InsertProfile(ctx, profileFrom(req, alloc.ID, now))
		if err == nil {
			return alloc, nil
		}

		if errors.Is(err, sentinel.ErrIDTaken) {
			if c.metrics != nil {
				c.metrics.IncIDCollisions()
			}
			c.logger.WarnContext(ctx, "member id taken at insert, regenerating",
				"member_id", alloc.ID,
				"attempt", attempt,
			)
			alloc = c.alloc.Next(allocInput(req), alloc)

			// The provider already carries the old ID; push the new one so
			// the two systems agree before the row lands. A crash between
			// this update and the retry leaves a short-lived divergence that
			// ledger replay repairs.
			if uerr := c.provider.UpdateAttributes(ctx, addr, map[string]string{
				models.AttrMemberID: alloc.ID.String(),
			}); uerr != nil {
				contain(models.SubsystemProvider, models.OpPushMemberID, uerr, map[string]string{
					"email":     addr,
					"member_id": alloc.ID.String(),
				})
			}
			continue
		}

		contain(models.SubsystemProfile, models.OpInsertProfile, err, map[string]string{
			"email":     addr,
			"member_id": alloc.ID.String(),
		})
		return alloc, nil
	}

	return alloc, dErrors.Newf(dErrors.CodeAllocationExhausted,
		"member id still colliding after %d insert attempts", maxStoreAttempts)
}

func (c *Coordinator) writeSubRecords(
	ctx context.Context,
	req models.SignupRequest,
	addr, phone string,
	prepared credential.Prepared,
	contain func(subsystem, operation string, err error, payload any),
) {
	now := requestcontext.Now(ctx)

	if err := c.store.InsertCredential(ctx, addr, prepared.StoreHash, prepared.StoreSalt); err != nil {
		contain(models.SubsystemProfile, models.OpInsertCredential, err, map[string]string{"email": addr})
	}
	if err := c.store.InsertMembership(ctx, addr, req.Group, now); err != nil {
		contain(models.SubsystemProfile, models.OpInsertMembership, err, map[string]string{
			"email": addr,
			"group": req.Group.String(),
		})
	}
	if req.Newsletter {
		if err := c.store.InsertNewsletterPref(ctx, addr, true); err != nil {
			contain(models.SubsystemProfile, models.OpInsertNewsletter, err, map[string]string{"email": addr})
		}
	}
	if phone != "" || req.Country != "" {
		if err := c.store.InsertContactDetail(ctx, addr, phone, req.Country); err != nil {
			contain(models.SubsystemProfile, models.OpInsertContactDetail, err, map[string]string{
				"email":   addr,
				"phone":   phone,
				"country": req.Country,
			})
		}
	}
}

// fail is the terminal failure handler for a fatal step: audit, tracker, and
// the classified error back to the caller.
func (c *Coordinator) fail(ctx context.Context, req models.SignupRequest, err error) (models.ProvisionResult, error) {
	c.emit(ctx, req, audit.ActionSignupFailed, audit.OutcomeFailure, "", string(dErrors.CodeOf(err)))
	if req.Batch() {
		_ = c.tracker.MarkError(ctx, email.Normalize(req.Email), req.BatchID)
	}
	return models.ProvisionResult{}, err
}

func (c *Coordinator) emit(ctx context.Context, req models.SignupRequest, action audit.Action, outcome audit.Outcome, memberID domain.MemberID, detail string) {
	if c.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp:     time.Now(),
		Email:         email.Normalize(req.Email),
		Action:        action,
		Outcome:       outcome,
		MemberID:      memberID,
		Source:        req.Source.String(),
		CorrelationID: requestcontext.CorrelationID(ctx),
		BatchID:       req.BatchID,
		Detail:        detail,
	}
	if err := c.audit.Emit(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func allocInput(req models.SignupRequest) allocator.Input {
	return allocator.Input{
		Group:       req.Group,
		Source:      req.Source,
		Email:       req.Email,
		DateOfBirth: req.DateOfBirth,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
	}
}

func profileFrom(req models.SignupRequest, id domain.MemberID, now time.Time) models.Profile {
	return models.Profile{
		Email:       email.Normalize(req.Email),
		MemberID:    id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Country:     req.Country,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func buildAccount(req models.SignupRequest, id domain.MemberID, phone string) models.ProviderAccount {
	return models.ProviderAccount{
		Email:       email.Normalize(req.Email),
		MemberID:    id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DisplayName: strings.TrimSpace(req.FirstName + " " + req.LastName),
		DateOfBirth: req.DateOfBirth,
		Country:     req.Country,
		PhoneNumber: phone,
		Source:      req.Source.String(),
		Groups:      []domain.MembershipGroup{req.Group},
	}
}
