package migration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"enrolld/internal/signup/models"
	"enrolld/pkg/domain"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/email"
	"enrolld/pkg/requestcontext"
)

// SignupService is the slice of the signup façade the runner needs.
type SignupService interface {
	Signup(ctx context.Context, req models.SignupRequest) (models.ProvisionResult, error)
}

// Summary totals one batch run. Conflicts are requests whose email already
// holds an identity; they are expected on reruns and not failures.
type Summary struct {
	Succeeded int
	Conflicts int
	Failed    int
	Skipped   int
}

// Runner executes a batch of signup requests with bounded concurrency.
type Runner struct {
	service SignupService
	tracker *Tracker
	limit   int
	logger  *slog.Logger
}

type RunnerOption func(*Runner)

func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithConcurrency bounds the number of in-flight signups. Defaults to 4.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.limit = n
		}
	}
}

func NewRunner(service SignupService, tracker *Tracker, opts ...RunnerOption) (*Runner, error) {
	if service == nil {
		return nil, fmt.Errorf("signup service is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	r := &Runner{
		service: service,
		tracker: tracker,
		limit:   4,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes the batch. Each entry's outcome lands in the tracker; a single
// failing entry never aborts the rest, only context cancellation does.
// Duplicate emails within the batch are skipped after the first occurrence.
func (r *Runner) Run(ctx context.Context, batchID domain.BatchID, requests []models.SignupRequest) (Summary, error) {
	if batchID.IsNil() {
		return Summary{}, fmt.Errorf("batch id is required")
	}

	var (
		mu      sync.Mutex
		summary Summary
		seen    = make(map[string]bool, len(requests))
	)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.limit)

	for _, req := range requests {
		addr := email.Normalize(req.Email)
		if seen[addr] {
			// The first occurrence owns the tracker entry for this email.
			summary.Skipped++
			continue
		}
		seen[addr] = true

		req := req
		req.BatchID = batchID
		req.IsMigration = true

		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			_ = r.tracker.mark(ctx, addr, batchID, StatePending)
			_, err := r.service.Signup(requestcontext.WithBatchID(ctx, batchID), req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Succeeded++
			case dErrors.HasCode(err, dErrors.CodeIdentityConflict):
				summary.Conflicts++
			default:
				summary.Failed++
				r.logger.ErrorContext(ctx, "batch entry failed",
					"batch_id", batchID,
					"email", addr,
					"error", err,
				)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return summary, fmt.Errorf("batch run aborted: %w", err)
	}

	r.logger.InfoContext(ctx, "batch run finished",
		"batch_id", batchID,
		"succeeded", summary.Succeeded,
		"conflicts", summary.Conflicts,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return summary, nil
}
