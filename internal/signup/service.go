// Package signup is the service façade over the signup pipeline: input
// validation, path resolution, dispatch to the write coordinator, and the
// audit and tracker side effects for the paths that never reach it.
package signup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"enrolld/internal/audit"
	"enrolld/internal/platform/metrics"
	"enrolld/internal/signup/coordinator"
	"enrolld/internal/signup/models"
	"enrolld/internal/signup/ports"
	"enrolld/internal/signup/resolver"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/email"
	"enrolld/pkg/requestcontext"
)

const dateLayout = "2006-01-02"

type Service struct {
	resolver *resolver.Resolver
	coord    *coordinator.Coordinator
	tracker  ports.MigrationTracker
	audit    ports.AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	// updateExisting lets migration runs refresh blocked-duplicate accounts
	// in place instead of rejecting them.
	updateExisting bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithUpdateExisting enables the in-place refresh of blocked duplicates on
// migration requests.
func WithUpdateExisting(enabled bool) Option {
	return func(s *Service) { s.updateExisting = enabled }
}

func NewService(res *resolver.Resolver, coord *coordinator.Coordinator, tracker ports.MigrationTracker, opts ...Option) (*Service, error) {
	if res == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if coord == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("migration tracker is required")
	}
	s := &Service{
		resolver: res,
		coord:    coord,
		tracker:  tracker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Signup validates, classifies and executes one signup request.
func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (models.ProvisionResult, error) {
	started := time.Now()

	req, err := s.validate(req)
	if err != nil {
		return models.ProvisionResult{}, err
	}

	res, err := s.resolver.Resolve(ctx, req.Email)
	if err != nil {
		return models.ProvisionResult{}, err
	}

	result, err := s.dispatch(ctx, req, res)
	s.observe(res.Path, result, err, time.Since(started))
	if err != nil {
		return models.ProvisionResult{}, err
	}

	s.logger.InfoContext(ctx, "signup completed",
		"path", result.Path.String(),
		"member_id", result.MemberID,
		"partial_writes", len(result.Partial),
	)
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, req models.SignupRequest, res models.Resolution) (models.ProvisionResult, error) {
	switch res.Path {
	case models.PathNew:
		return s.coord.ProvisionNew(ctx, req)

	case models.PathUpgrade:
		return s.coord.Upgrade(ctx, req, *res.Account)

	case models.PathConflict:
		// Fully provisioned before. Batch runs count it as a skip, not an
		// error, so reruns converge.
		if req.Batch() {
			_ = s.tracker.MarkSkipped(ctx, email.Normalize(req.Email), req.BatchID)
		}
		s.emitConflict(ctx, req, "profile already exists")
		return models.ProvisionResult{}, dErrors.New(dErrors.CodeIdentityConflict, "an account already exists for this email")

	case models.PathBlockedDuplicate:
		if req.IsMigration && s.updateExisting {
			return s.coord.RefreshExisting(ctx, req, *res.Account)
		}
		if req.Batch() {
			_ = s.tracker.MarkError(ctx, email.Normalize(req.Email), req.BatchID)
		}
		s.emitConflict(ctx, req, "identity exists outside the upgrade shape")
		return models.ProvisionResult{}, dErrors.New(dErrors.CodeIdentityConflict, "an account already exists for this email")

	default:
		return models.ProvisionResult{}, dErrors.Newf(dErrors.CodeInternal, "unhandled signup path %q", res.Path)
	}
}

// validate checks the request shape and fills migration defaults. Returns the
// possibly-amended request.
func (s *Service) validate(req models.SignupRequest) (models.SignupRequest, error) {
	if !email.IsPlausible(req.Email) {
		return req, dErrors.New(dErrors.CodeInvalidInput, "email address is not valid")
	}
	if req.Group.Code() == "" {
		return req, dErrors.New(dErrors.CodeInvalidInput, "membership group is not valid")
	}
	if req.Source.Code() == "" {
		return req, dErrors.New(dErrors.CodeInvalidInput, "source channel is not valid")
	}
	if req.DateOfBirth != "" {
		if _, err := time.Parse(dateLayout, req.DateOfBirth); err != nil {
			return req, dErrors.New(dErrors.CodeInvalidInput, "date of birth must be formatted YYYY-MM-DD")
		}
	}

	// Migrated records may arrive without names; derive a placeholder from
	// the address so downstream display names are never empty.
	if req.IsMigration && (req.FirstName == "" || req.LastName == "") {
		first, last := email.DeriveNameFromEmail(req.Email)
		if req.FirstName == "" {
			req.FirstName = first
		}
		if req.LastName == "" {
			req.LastName = last
		}
	}
	if req.FirstName == "" || req.LastName == "" {
		return req, dErrors.New(dErrors.CodeInvalidInput, "first and last name are required")
	}
	return req, nil
}

func (s *Service) emitConflict(ctx context.Context, req models.SignupRequest, detail string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp:     time.Now(),
		Email:         email.Normalize(req.Email),
		Action:        audit.ActionSignupConflict,
		Outcome:       audit.OutcomeFailure,
		Source:        req.Source.String(),
		CorrelationID: requestcontext.CorrelationID(ctx),
		BatchID:       req.BatchID,
		Detail:        detail,
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func (s *Service) observe(path models.Path, result models.ProvisionResult, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case err != nil:
		outcome = "failure"
	case !result.Complete():
		outcome = "partial"
	}
	s.metrics.ObserveSignup(path.String(), outcome, elapsed.Seconds())
}
