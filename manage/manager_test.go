package manage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oarkflow/resetpass"
	"github.com/oarkflow/resetpass/errors"
	"github.com/oarkflow/resetpass/logging"
	"github.com/oarkflow/resetpass/models"
	"github.com/oarkflow/resetpass/store"
	"github.com/oarkflow/resetpass/validation"
)

type recoveryCall struct {
	userID, secret, password, passwordAgain string
	ctxErr                                  error
}

type fakeRecoverer struct {
	mu    sync.Mutex
	calls []recoveryCall
	err   error
}

func (f *fakeRecoverer) UpdateRecovery(ctx context.Context, userID, secret, password, passwordAgain string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recoveryCall{userID, secret, password, passwordAgain, ctx.Err()})
	return f.err
}

func (f *fakeRecoverer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestManager(t *testing.T, r resetpass.Recoverer) (*Manager, *store.MemoryStore, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	attempts := store.NewMemoryStore()
	m := NewDefaultManager()
	m.MapAttemptStorage(attempts)
	m.MapRecoverer(r)
	m.SetAuditLogger(logging.NewAuditLogger(zap.New(core)))
	return m, attempts, logs
}

func mount(t *testing.T, m *Manager) *resetpass.Attempt {
	t.Helper()
	a, err := m.Mount(context.Background(), &models.ResetLink{UserID: "user-42", Secret: "s3cr3t-token"})
	require.NoError(t, err)
	return a
}

func submitForm(a *resetpass.Attempt, password, confirm string) *models.ResetForm {
	return &models.ResetForm{
		AttemptID:       a.ID,
		NewPassword:     password,
		ConfirmPassword: confirm,
		Action:          models.ActionSubmit,
	}
}

func TestMountMissingLink(t *testing.T) {
	m, attempts, _ := newTestManager(t, &fakeRecoverer{})
	for _, link := range []models.ResetLink{{}, {UserID: "user-42"}, {Secret: "s3cr3t-token"}} {
		a, err := m.Mount(context.Background(), &link)
		assert.ErrorIs(t, err, errors.ErrMissingLinkParameters)
		require.NotNil(t, a)
		assert.Equal(t, resetpass.ViewPreconditionFailed, a.View())
		assert.Equal(t, "Invalid reset link. Please request a new password reset.", a.Error)
	}
	assert.Equal(t, 0, attempts.Len())
}

func TestMount(t *testing.T) {
	m, attempts, _ := newTestManager(t, &fakeRecoverer{})
	a := mount(t, m)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, resetpass.Idle, a.State)
	assert.Equal(t, resetpass.ViewEditing, a.View())
	assert.True(t, a.Masked(resetpass.FieldNew))
	assert.True(t, a.Masked(resetpass.FieldConfirm))
	assert.Equal(t, 1, attempts.Len())
}

func TestSubmitValidationMakesNoCall(t *testing.T) {
	tests := []struct {
		name, password, confirm, message string
	}{
		{"empty", "", "", "Please fill in all fields"},
		{"mismatch", "abcdefgh", "abcdefgX", "Passwords do not match"},
		{"too short", "short1", "short1", "Password must be at least 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRecoverer{}
			m, _, _ := newTestManager(t, r)
			a := mount(t, m)

			got, err := m.Submit(context.Background(), submitForm(a, tt.password, tt.confirm))
			require.Error(t, err)
			assert.Equal(t, tt.message, errors.Message(err))
			assert.Equal(t, resetpass.Failed, got.State)
			assert.Equal(t, tt.message, got.Error)
			assert.Equal(t, tt.password, got.NewPassword)
			assert.Equal(t, tt.confirm, got.ConfirmPassword)
			assert.Equal(t, 0, r.count())
		})
	}
}

func TestSubmitSuccess(t *testing.T) {
	r := &fakeRecoverer{}
	m, attempts, _ := newTestManager(t, r)
	a := mount(t, m)

	got, err := m.Submit(context.Background(), submitForm(a, "abcdefgh", "abcdefgh"))
	require.NoError(t, err)
	assert.Equal(t, resetpass.Succeeded, got.State)
	assert.Empty(t, got.Error)

	require.Equal(t, 1, r.count())
	assert.Equal(t, recoveryCall{"user-42", "s3cr3t-token", "abcdefgh", "abcdefgh", nil}, r.calls[0])

	stored, err := attempts.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, resetpass.Succeeded, stored.State)
	assert.Empty(t, stored.NewPassword)

	// terminal: a further submit is accepted quietly without a second call
	again, err := m.Submit(context.Background(), submitForm(a, "zzzzzzzz", "zzzzzzzz"))
	require.NoError(t, err)
	assert.Equal(t, resetpass.Succeeded, again.State)
	assert.Equal(t, 1, r.count())
}

func TestSubmitExternalError(t *testing.T) {
	r := &fakeRecoverer{err: &errors.ExternalError{StatusCode: 401, Message: "Invalid token passed in the request."}}
	m, _, _ := newTestManager(t, r)
	a := mount(t, m)

	got, err := m.Submit(context.Background(), submitForm(a, "abcdefgh", "abcdefgh"))
	require.Error(t, err)
	assert.Equal(t, "Invalid token passed in the request.", errors.Message(err))
	assert.Equal(t, resetpass.Failed, got.State)
	assert.Equal(t, "Invalid token passed in the request.", got.Error)
	assert.Equal(t, "abcdefgh", got.NewPassword)

	// failed attempts can be resubmitted
	r.err = nil
	got, err = m.Submit(context.Background(), submitForm(a, "abcdefgh", "abcdefgh"))
	require.NoError(t, err)
	assert.Equal(t, resetpass.Succeeded, got.State)
	assert.Equal(t, 2, r.count())
}

func TestSubmitPlainErrorIsExternal(t *testing.T) {
	r := &fakeRecoverer{err: errors.New("connection reset by peer")}
	m, _, _ := newTestManager(t, r)
	a := mount(t, m)

	got, err := m.Submit(context.Background(), submitForm(a, "abcdefgh", "abcdefgh"))
	var ext *errors.ExternalError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "connection reset by peer", got.Error)
}

func TestSubmitIgnoresCancellation(t *testing.T) {
	r := &fakeRecoverer{}
	m, _, _ := newTestManager(t, r)
	a := mount(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := m.Submit(ctx, submitForm(a, "abcdefgh", "abcdefgh"))
	require.NoError(t, err)
	assert.Equal(t, resetpass.Succeeded, got.State)
	require.Equal(t, 1, r.count())
	assert.NoError(t, r.calls[0].ctxErr)
}

type blockingRecoverer struct {
	started chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (b *blockingRecoverer) UpdateRecovery(context.Context, string, string, string, string) error {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	close(b.started)
	<-b.release
	return nil
}

func TestSubmitInFlight(t *testing.T) {
	r := &blockingRecoverer{started: make(chan struct{}), release: make(chan struct{})}
	m, _, _ := newTestManager(t, r)
	a := mount(t, m)

	type result struct {
		attempt *resetpass.Attempt
		err     error
	}
	first := make(chan result, 1)
	go func() {
		got, err := m.Submit(context.Background(), submitForm(a, "abcdefgh", "abcdefgh"))
		first <- result{got, err}
	}()

	select {
	case <-r.started:
	case <-time.After(5 * time.Second):
		t.Fatal("recovery call never started")
	}

	got, err := m.Submit(context.Background(), submitForm(a, "abcdefgh", "abcdefgh"))
	assert.ErrorIs(t, err, errors.ErrSubmissionInFlight)
	assert.Equal(t, resetpass.ViewSubmitting, got.View())

	// a toggle while submitting leaves the slot alone
	toggled, err := m.Toggle(context.Background(), &models.ResetForm{AttemptID: a.ID}, resetpass.FieldNew)
	require.NoError(t, err)
	assert.Equal(t, resetpass.Submitting, toggled.State)

	close(r.release)
	res := <-first
	require.NoError(t, res.err)
	assert.Equal(t, resetpass.Succeeded, res.attempt.State)
	assert.Equal(t, 1, r.calls)
}

func TestToggle(t *testing.T) {
	r := &fakeRecoverer{}
	m, attempts, _ := newTestManager(t, r)
	a := mount(t, m)
	form := &models.ResetForm{AttemptID: a.ID, NewPassword: "typed-new", ConfirmPassword: "typed-confirm"}

	got, err := m.Toggle(context.Background(), form, resetpass.FieldNew)
	require.NoError(t, err)
	assert.False(t, got.Masked(resetpass.FieldNew))
	assert.True(t, got.Masked(resetpass.FieldConfirm))
	assert.Equal(t, "typed-new", got.NewPassword)
	assert.Equal(t, "typed-confirm", got.ConfirmPassword)
	assert.Equal(t, resetpass.Idle, got.State)

	got, err = m.Toggle(context.Background(), form, resetpass.FieldConfirm)
	require.NoError(t, err)
	assert.False(t, got.Masked(resetpass.FieldConfirm))

	got, err = m.Toggle(context.Background(), form, resetpass.FieldNew)
	require.NoError(t, err)
	assert.True(t, got.Masked(resetpass.FieldNew))

	stored, err := attempts.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.NewPassword)
	assert.Empty(t, stored.ConfirmPassword)
	assert.Equal(t, 0, r.count())

	_, err = m.Toggle(context.Background(), form, resetpass.Field("other"))
	assert.ErrorIs(t, err, errors.ErrUnknownField)
}

func TestToggleKeepsFailure(t *testing.T) {
	m, _, _ := newTestManager(t, &fakeRecoverer{})
	a := mount(t, m)
	_, err := m.Submit(context.Background(), submitForm(a, "abcdefgh", "different"))
	require.Error(t, err)

	got, err := m.Toggle(context.Background(), &models.ResetForm{AttemptID: a.ID}, resetpass.FieldConfirm)
	require.NoError(t, err)
	assert.Equal(t, resetpass.Failed, got.State)
	assert.Equal(t, "Passwords do not match", got.Error)
}

func TestUnknownAttempt(t *testing.T) {
	r := &fakeRecoverer{}
	m, _, _ := newTestManager(t, r)

	for _, id := range []string{"", "NOPE"} {
		got, err := m.Submit(context.Background(), &models.ResetForm{AttemptID: id, NewPassword: "abcdefgh", ConfirmPassword: "abcdefgh"})
		assert.ErrorIs(t, err, errors.ErrAttemptNotFound)
		assert.Equal(t, resetpass.ViewPreconditionFailed, got.View())

		got, err = m.Toggle(context.Background(), &models.ResetForm{AttemptID: id}, resetpass.FieldNew)
		assert.ErrorIs(t, err, errors.ErrAttemptNotFound)
		assert.Equal(t, resetpass.ViewPreconditionFailed, got.View())
	}
	assert.Equal(t, 0, r.count())
}

func TestSubmitWithoutRecoverer(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	a := mount(t, m)
	got, err := m.Submit(context.Background(), submitForm(a, "abcdefgh", "abcdefgh"))
	assert.Nil(t, got)
	assert.ErrorIs(t, err, errors.ErrRecovererMissing)
}

func TestSetConfigPolicy(t *testing.T) {
	r := &fakeRecoverer{}
	m, _, _ := newTestManager(t, r)
	m.SetConfig(&Config{AttemptTTL: time.Minute, Policy: validation.Policy{MinLength: 12}})
	assert.Equal(t, 12, m.Policy().MinLength)

	a := mount(t, m)
	_, err := m.Submit(context.Background(), submitForm(a, "abcdefgh", "abcdefgh"))
	assert.Equal(t, "Password must be at least 12 characters", errors.Message(err))
	assert.Equal(t, 0, r.count())
}

func TestAuditLogOmitsSecrets(t *testing.T) {
	r := &fakeRecoverer{}
	m, _, logs := newTestManager(t, r)
	a := mount(t, m)
	_, err := m.Submit(context.Background(), submitForm(a, "short", "short"))
	require.Error(t, err)
	_, err = m.Submit(context.Background(), submitForm(a, "abcdefgh", "abcdefgh"))
	require.NoError(t, err)

	var events []string
	for _, entry := range logs.All() {
		events = append(events, entry.Message)
		for k, v := range entry.ContextMap() {
			s, ok := v.(string)
			if !ok {
				continue
			}
			assert.NotContains(t, s, "s3cr3t-token", "field %s of %s", k, entry.Message)
			assert.NotContains(t, s, "abcdefgh", "field %s of %s", k, entry.Message)
		}
	}
	assert.Equal(t, []string{"attempt_mounted", "submission_rejected", "recovery_submitted", "recovery_succeeded"}, events)
}

type deleteCounter struct {
	*store.MemoryStore
	mu      sync.Mutex
	deletes []string
}

func (d *deleteCounter) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	d.deletes = append(d.deletes, id)
	d.mu.Unlock()
	return d.MemoryStore.Delete(ctx, id)
}

func TestSubmitOutcomeSurvivesExpiry(t *testing.T) {
	tests := []struct {
		name    string
		callErr error
		state   resetpass.State
		message string
	}{
		{"success", nil, resetpass.Succeeded, ""},
		{"failure", &errors.ExternalError{StatusCode: 401, Message: "Invalid token passed in the request."}, resetpass.Failed, "Invalid token passed in the request."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			slow := resetpass.RecovererFunc(func(context.Context, string, string, string, string) error {
				calls++
				time.Sleep(80 * time.Millisecond)
				return tt.callErr
			})
			m, _, logs := newTestManager(t, slow)
			attempts := &deleteCounter{MemoryStore: store.NewMemoryStore()}
			m.MapAttemptStorage(attempts)
			m.SetConfig(&Config{AttemptTTL: 50 * time.Millisecond, Policy: validation.DefaultPolicy})
			a := mount(t, m)

			got, err := m.Submit(context.Background(), submitForm(a, "abcdefgh", "abcdefgh"))
			require.NotNil(t, got)
			assert.Equal(t, tt.state, got.State)
			assert.Equal(t, tt.message, got.Error)
			assert.Empty(t, got.Claim)
			if tt.callErr == nil {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.message, errors.Message(err))
			}
			assert.Equal(t, 1, calls)
			assert.Equal(t, []string{a.ID}, attempts.deletes)
			assert.Equal(t, 1, logs.FilterMessage("submission_unresolved").Len())
		})
	}
}
