package resetpass

import (
	"time"
)

// State is the submission state of a reset attempt.
type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// View is what the reset page shows for an attempt.
type View string

const (
	ViewPreconditionFailed View = "precondition_failed"
	ViewEditing            View = "editing"
	ViewSubmitting         View = "submitting"
	ViewSucceeded          View = "succeeded"
	ViewFailed             View = "failed"
)

// Field names a password input on the reset form.
type Field string

const (
	FieldNew     Field = "new"
	FieldConfirm Field = "confirm"
)

// Attempt is one reset page view. UserID and Secret come from the link and
// never change. The passwords are carried per request only and are not
// stored.
type Attempt struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Secret      string    `json:"secret"`
	State       State     `json:"state"`
	Error       string    `json:"error,omitempty"`
	ShowNew     bool      `json:"show_new,omitempty"`
	ShowConfirm bool      `json:"show_confirm,omitempty"`
	Claim       string    `json:"claim,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	NewPassword     string `json:"-"`
	ConfirmPassword string `json:"-"`
}

// HasLink reports whether both link parameters are present.
func (a *Attempt) HasLink() bool {
	return a.UserID != "" && a.Secret != ""
}

// View derives the page to render from the attempt state.
func (a *Attempt) View() View {
	if !a.HasLink() {
		return ViewPreconditionFailed
	}
	switch a.State {
	case Submitting:
		return ViewSubmitting
	case Succeeded:
		return ViewSucceeded
	case Failed:
		return ViewFailed
	}
	return ViewEditing
}

// Masked reports whether the given field is rendered as a password input.
func (a *Attempt) Masked(f Field) bool {
	switch f {
	case FieldNew:
		return !a.ShowNew
	case FieldConfirm:
		return !a.ShowConfirm
	}
	return true
}

// Clone returns a copy safe to hand out of a store.
func (a *Attempt) Clone() *Attempt {
	c := *a
	return &c
}
