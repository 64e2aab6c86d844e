package coordinator

import (
	"context"

	"enrolld/internal/audit"
	"enrolld/internal/signup/credential"
	"enrolld/internal/signup/models"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/email"
	"enrolld/pkg/requestcontext"
)

// Upgrade promotes an upgrade-eligible provider account (member ID present,
// sole group is the upgrade-source group) into the requested membership. The
// member ID is kept; the account gains the group, a fresh credential, and any
// corrected name or date of birth from the request.
func (c *Coordinator) Upgrade(ctx context.Context, req models.SignupRequest, account models.ProviderAccount) (models.ProvisionResult, error) {
	addr := email.Normalize(req.Email)

	prepared, err := credential.Prepare(req)
	if err != nil {
		return c.fail(ctx, req, err)
	}

	// Provider first, same ordering as the new path. Upgrade writes are not
	// contained: a half-upgraded account is worse than a retryable failure.
	if err := c.provider.SetCredential(ctx, addr, prepared.Provider); err != nil {
		return c.fail(ctx, req, dErrors.Wrap(err, dErrors.CodeIdentityConflict, "upgrade credential set failed"))
	}
	if err := c.provider.AddToGroup(ctx, addr, req.Group); err != nil {
		return c.fail(ctx, req, dErrors.Wrap(err, dErrors.CodeIdentityConflict, "upgrade group grant failed"))
	}
	if err := c.store.UpdateCredential(ctx, addr, prepared.StoreHash, prepared.StoreSalt); err != nil {
		return c.fail(ctx, req, dErrors.Wrap(err, dErrors.CodeIdentityConflict, "upgrade credential store failed"))
	}

	if coreFieldsDiffer(req, account) {
		if err := c.pushCoreFields(ctx, req, account); err != nil {
			return c.fail(ctx, req, dErrors.Wrap(err, dErrors.CodeIdentityConflict, "upgrade attribute update failed"))
		}
	}

	if req.Batch() {
		_ = c.tracker.MarkApplied(ctx, addr, req.BatchID)
	}
	c.emit(ctx, req, audit.ActionIdentityUpgraded, audit.OutcomeSuccess, account.MemberID, "")

	return models.ProvisionResult{
		MemberID: account.MemberID,
		Path:     models.PathUpgrade,
	}, nil
}

// RefreshExisting refreshes the credential and contact details of an account
// that is a blocked duplicate for signup purposes but still owned by the same
// person. Only called when the caller has already established ownership.
func (c *Coordinator) RefreshExisting(ctx context.Context, req models.SignupRequest, account models.ProviderAccount) (models.ProvisionResult, error) {
	addr := email.Normalize(req.Email)

	phone, err := SanitizePhone(req.PhoneNumber)
	if err != nil {
		return c.fail(ctx, req, err)
	}
	prepared, err := credential.Prepare(req)
	if err != nil {
		return c.fail(ctx, req, err)
	}

	if err := c.provider.SetCredential(ctx, addr, prepared.Provider); err != nil {
		return c.fail(ctx, req, dErrors.Wrap(err, dErrors.CodeSignupFailed, "refresh credential set failed"))
	}

	now := requestcontext.Now(ctx)
	err = c.store.Transaction(ctx, func(ctx context.Context) error {
		if err := c.store.UpdateCredential(ctx, addr, prepared.StoreHash, prepared.StoreSalt); err != nil {
			return err
		}
		p := profileFrom(req, account.MemberID, now)
		if err := c.store.UpsertCoreFields(ctx, p); err != nil {
			return err
		}
		if phone != "" || req.Country != "" {
			return c.store.UpsertContactDetail(ctx, addr, phone, req.Country)
		}
		return nil
	})
	if err != nil {
		return c.fail(ctx, req, dErrors.Wrap(err, dErrors.CodeSignupFailed, "refresh store update failed"))
	}

	if req.Batch() {
		_ = c.tracker.MarkApplied(ctx, addr, req.BatchID)
	}
	c.emit(ctx, req, audit.ActionIdentityRefreshed, audit.OutcomeSuccess, account.MemberID, "")

	return models.ProvisionResult{
		MemberID: account.MemberID,
		Path:     models.PathBlockedDuplicate,
	}, nil
}

func coreFieldsDiffer(req models.SignupRequest, account models.ProviderAccount) bool {
	return req.FirstName != account.FirstName ||
		req.LastName != account.LastName ||
		(req.DateOfBirth != "" && req.DateOfBirth != account.DateOfBirth)
}

// pushCoreFields writes corrected name and date of birth to both systems. The
// display name is rewritten token-wise so provider-added decorations survive.
func (c *Coordinator) pushCoreFields(ctx context.Context, req models.SignupRequest, account models.ProviderAccount) error {
	addr := email.Normalize(req.Email)

	attrs := map[string]string{
		models.AttrFirstName: req.FirstName,
		models.AttrLastName:  req.LastName,
		models.AttrDisplayName: email.RewriteDisplayName(
			account.DisplayName,
			account.FirstName, account.LastName,
			req.FirstName, req.LastName,
		),
	}
	if req.DateOfBirth != "" {
		attrs[models.AttrDateOfBirth] = req.DateOfBirth
	}
	if err := c.provider.UpdateAttributes(ctx, addr, attrs); err != nil {
		return err
	}

	return c.store.UpsertCoreFields(ctx, profileFrom(req, account.MemberID, requestcontext.Now(ctx)))
}
