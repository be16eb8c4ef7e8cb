package manage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oarkflow/resetpass"
	"github.com/oarkflow/resetpass/errors"
	"github.com/oarkflow/resetpass/generates"
	"github.com/oarkflow/resetpass/logging"
	"github.com/oarkflow/resetpass/metrics"
	"github.com/oarkflow/resetpass/models"
	"github.com/oarkflow/resetpass/store"
	"github.com/oarkflow/resetpass/validation"
)

// NewDefaultManager create to default reset form manager instance, backed
// by an in-memory attempt store
func NewDefaultManager() *Manager {
	m := NewManager()
	m.MapAttemptIDGenerate(generates.NewAttemptGenerate())
	m.MapAttemptStorage(store.NewMemoryStore())
	return m
}

// NewManager create to reset form manager instance
func NewManager() *Manager {
	return &Manager{
		cfg:       DefaultConfig,
		validator: validation.New(DefaultConfig.Policy),
		audit:     logging.NewAuditLogger(nil),
		now:       time.Now,
	}
}

// Manager drives the reset form: it owns attempt state, validates
// submissions and makes the single call to the recovery service.
type Manager struct {
	cfg       *Config
	attempts  resetpass.AttemptStore
	recoverer resetpass.Recoverer
	idGen     resetpass.AttemptIDGenerate
	validator *validation.Validator
	audit     *logging.AuditLogger
	now       func() time.Time
}

// SetConfig set the attempt lifetime and password policy
func (m *Manager) SetConfig(cfg *Config) {
	m.cfg = cfg
	m.validator = validation.New(cfg.Policy)
}

// MapAttemptStorage mapping the attempt store interface
func (m *Manager) MapAttemptStorage(s resetpass.AttemptStore) {
	m.attempts = s
}

// MapRecoverer mapping the account recovery interface
func (m *Manager) MapRecoverer(r resetpass.Recoverer) {
	m.recoverer = r
}

// MapAttemptIDGenerate mapping the attempt id generate interface
func (m *Manager) MapAttemptIDGenerate(gen resetpass.AttemptIDGenerate) {
	m.idGen = gen
}

// SetAuditLogger set the audit event logger
func (m *Manager) SetAuditLogger(a *logging.AuditLogger) {
	m.audit = a
}

// Policy in effect for submissions
func (m *Manager) Policy() validation.Policy {
	return m.validator.Policy()
}

// Mount open a reset page for the link. A link missing either parameter
// yields a failed attempt that is never stored, with
// errors.ErrMissingLinkParameters.
func (m *Manager) Mount(ctx context.Context, link *models.ResetLink) (*resetpass.Attempt, error) {
	if link.UserID == "" || link.Secret == "" {
		metrics.RecordMount(false)
		m.audit.LogEvent("attempt_rejected",
			zap.String("reason", "missing_link_parameters"),
			zap.Bool("has_user_id", link.UserID != ""),
			zap.Bool("has_secret", link.Secret != ""),
		)
		return preconditionFailed(errors.ErrMissingLinkParameters, m.now()), errors.ErrMissingLinkParameters
	}

	id, err := m.idGen.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("generating attempt id: %w", err)
	}
	attempt := &resetpass.Attempt{
		ID:        id,
		UserID:    link.UserID,
		Secret:    link.Secret,
		State:     resetpass.Idle,
		CreatedAt: m.now(),
	}
	if err := m.attempts.Create(ctx, attempt, m.cfg.AttemptTTL); err != nil {
		return nil, fmt.Errorf("storing attempt: %w", err)
	}
	metrics.RecordMount(true)
	m.audit.LogEvent("attempt_mounted",
		zap.String("attempt_id", attempt.ID),
		zap.String("user_id", attempt.UserID),
	)
	return attempt, nil
}

// Load according to the attempt id for the attempt. Unknown or expired ids
// come back as a failed attempt with errors.ErrAttemptNotFound so the page
// can ask for a new link.
func (m *Manager) Load(ctx context.Context, id string) (*resetpass.Attempt, error) {
	if id == "" {
		return preconditionFailed(errors.ErrAttemptNotFound, m.now()), errors.ErrAttemptNotFound
	}
	attempt, err := m.attempts.Get(ctx, id)
	if errors.Terminal(err) {
		return preconditionFailed(err, m.now()), err
	} else if err != nil {
		return nil, fmt.Errorf("loading attempt: %w", err)
	}
	return attempt, nil
}

// Toggle flip the masking of one password field. The entered values are
// echoed back unchanged and the submission state is left alone.
func (m *Manager) Toggle(ctx context.Context, form *models.ResetForm, field resetpass.Field) (*resetpass.Attempt, error) {
	if field != resetpass.FieldNew && field != resetpass.FieldConfirm {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownField, field)
	}
	if form.AttemptID == "" {
		return m.Load(ctx, "")
	}
	attempt, err := m.attempts.Update(ctx, form.AttemptID, func(a *resetpass.Attempt) error {
		if a.State == resetpass.Succeeded {
			return errors.ErrAttemptClosed
		}
		if field == resetpass.FieldNew {
			a.ShowNew = !a.ShowNew
		} else {
			a.ShowConfirm = !a.ShowConfirm
		}
		return nil
	})
	switch {
	case errors.Terminal(err):
		return preconditionFailed(err, m.now()), err
	case errors.Is(err, errors.ErrAttemptClosed):
		return attempt, nil
	case err != nil:
		return nil, fmt.Errorf("toggling %s password visibility: %w", field, err)
	}
	attempt.NewPassword = form.NewPassword
	attempt.ConfirmPassword = form.ConfirmPassword
	return attempt, nil
}

// Submit validate the form and, when it passes, make exactly one call to
// the recovery service. The returned error is nil on success and otherwise
// tells why the attempt did not succeed; the attempt is always returned
// unless the failure is internal.
func (m *Manager) Submit(ctx context.Context, form *models.ResetForm) (*resetpass.Attempt, error) {
	attempt, err := m.Load(ctx, form.AttemptID)
	if err != nil {
		return attempt, err
	}
	switch attempt.State {
	case resetpass.Succeeded:
		metrics.RecordSubmission(metrics.OutcomeClosed)
		return attempt, nil
	case resetpass.Submitting:
		return m.inFlight(attempt)
	}

	if verr := m.validator.Validate(attempt.UserID, form.NewPassword, form.ConfirmPassword); verr != nil {
		return m.reject(ctx, attempt, form, verr)
	}
	if m.recoverer == nil {
		return nil, errors.ErrRecovererMissing
	}

	ticket, claimed, err := resetpass.Claim(ctx, m.attempts, attempt.ID)
	switch {
	case errors.Is(err, errors.ErrSubmissionInFlight):
		return m.inFlight(claimed)
	case errors.Is(err, errors.ErrAttemptClosed):
		return claimed, nil
	case errors.Terminal(err):
		return preconditionFailed(err, m.now()), err
	case err != nil:
		return nil, fmt.Errorf("claiming submission: %w", err)
	}

	m.audit.LogEvent("recovery_submitted",
		zap.String("attempt_id", claimed.ID),
		zap.String("user_id", claimed.UserID),
	)

	// Once dispatched the call runs to completion; the slot must be
	// resolved even if the browser went away.
	callCtx := context.WithoutCancel(ctx)
	start := m.now()
	callErr := m.recoverer.UpdateRecovery(callCtx, claimed.UserID, claimed.Secret, form.NewPassword, form.ConfirmPassword)
	elapsed := m.now().Sub(start)

	if callErr != nil {
		var ext *errors.ExternalError
		if !errors.As(callErr, &ext) {
			callErr = &errors.ExternalError{Message: callErr.Error(), Err: callErr}
		}
	}

	resolved, err := ticket.Resolve(callCtx, m.attempts, callErr, errors.Message(callErr))
	if err != nil {
		// the call outcome is rendered even when the slot could not be
		// released; the stale attempt is dropped
		m.audit.LogFailure("submission_unresolved", err, zap.String("attempt_id", claimed.ID))
		if derr := m.attempts.Delete(callCtx, claimed.ID); derr != nil {
			m.audit.LogFailure("attempt_delete_failed", derr, zap.String("attempt_id", claimed.ID))
		}
		resolved = unresolved(claimed, callErr)
	}

	if callErr != nil {
		metrics.ObserveRecovery(metrics.OutcomeFailed, elapsed)
		metrics.RecordSubmission(metrics.OutcomeFailed)
		m.audit.LogEvent("recovery_failed",
			zap.String("attempt_id", resolved.ID),
			zap.String("user_id", resolved.UserID),
			zap.String("reason", callErr.Error()),
			zap.Duration("elapsed", elapsed),
		)
		resolved.NewPassword = form.NewPassword
		resolved.ConfirmPassword = form.ConfirmPassword
		return resolved, callErr
	}

	metrics.ObserveRecovery(metrics.OutcomeSucceeded, elapsed)
	metrics.RecordSubmission(metrics.OutcomeSucceeded)
	m.audit.LogEvent("recovery_succeeded",
		zap.String("attempt_id", resolved.ID),
		zap.String("user_id", resolved.UserID),
		zap.Duration("elapsed", elapsed),
	)
	return resolved, nil
}

func (m *Manager) reject(ctx context.Context, attempt *resetpass.Attempt, form *models.ResetForm, verr error) (*resetpass.Attempt, error) {
	message := errors.Message(verr)
	failed, err := m.attempts.Update(ctx, attempt.ID, func(a *resetpass.Attempt) error {
		switch a.State {
		case resetpass.Submitting:
			return errors.ErrSubmissionInFlight
		case resetpass.Succeeded:
			return errors.ErrAttemptClosed
		}
		a.State = resetpass.Failed
		a.Error = message
		return nil
	})
	switch {
	case errors.Is(err, errors.ErrSubmissionInFlight):
		return m.inFlight(failed)
	case errors.Is(err, errors.ErrAttemptClosed):
		return failed, nil
	case errors.Terminal(err):
		return preconditionFailed(err, m.now()), err
	case err != nil:
		return nil, fmt.Errorf("recording validation failure: %w", err)
	}

	reason := "invalid"
	var ve *errors.ValidationError
	if errors.As(verr, &ve) {
		reason = ve.Err.Error()
	}
	metrics.RecordValidationFailure(reason)
	metrics.RecordSubmission(metrics.OutcomeInvalid)
	m.audit.LogEvent("submission_rejected",
		zap.String("attempt_id", failed.ID),
		zap.String("reason", reason),
	)
	failed.NewPassword = form.NewPassword
	failed.ConfirmPassword = form.ConfirmPassword
	return failed, verr
}

func (m *Manager) inFlight(attempt *resetpass.Attempt) (*resetpass.Attempt, error) {
	metrics.RecordSubmission(metrics.OutcomeInFlight)
	m.audit.LogEvent("submission_in_flight", zap.String("attempt_id", attempt.ID))
	return attempt, errors.ErrSubmissionInFlight
}

// unresolved applies the call outcome to a claimed attempt whose slot
// could not be released in the store.
func unresolved(claimed *resetpass.Attempt, callErr error) *resetpass.Attempt {
	a := claimed.Clone()
	a.Claim = ""
	if callErr == nil {
		a.State = resetpass.Succeeded
		a.Error = ""
		return a
	}
	a.State = resetpass.Failed
	a.Error = errors.Message(callErr)
	return a
}

func preconditionFailed(err error, now time.Time) *resetpass.Attempt {
	return &resetpass.Attempt{
		State:     resetpass.Failed,
		Error:     errors.Message(err),
		CreatedAt: now,
	}
}
