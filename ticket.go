package resetpass

import (
	"context"

	"github.com/google/uuid"

	"github.com/oarkflow/resetpass/errors"
)

// Ticket is the handle on an attempt's single submission slot. Only the
// holder of a ticket can resolve the submission it started.
type Ticket struct {
	AttemptID string
	Nonce     string
}

// Claim takes the submission slot of the attempt, moving it from Idle or
// Failed to Submitting. It fails with errors.ErrSubmissionInFlight while
// another ticket holds the slot and with errors.ErrAttemptClosed once the
// attempt succeeded.
func Claim(ctx context.Context, store AttemptStore, id string) (*Ticket, *Attempt, error) {
	nonce := uuid.NewString()
	attempt, err := store.Update(ctx, id, func(a *Attempt) error {
		switch a.State {
		case Submitting:
			return errors.ErrSubmissionInFlight
		case Succeeded:
			return errors.ErrAttemptClosed
		}
		a.State = Submitting
		a.Error = ""
		a.Claim = nonce
		return nil
	})
	if err != nil {
		return nil, attempt, err
	}
	return &Ticket{AttemptID: id, Nonce: nonce}, attempt, nil
}

// Resolve releases the slot with the outcome of the submission: nil moves
// the attempt to Succeeded, anything else to Failed with message.
func (t *Ticket) Resolve(ctx context.Context, store AttemptStore, outcome error, message string) (*Attempt, error) {
	return store.Update(ctx, t.AttemptID, func(a *Attempt) error {
		if a.State != Submitting || a.Claim != t.Nonce {
			return errors.ErrInvalidTicket
		}
		a.Claim = ""
		if outcome == nil {
			a.State = Succeeded
			a.Error = ""
			return nil
		}
		a.State = Failed
		a.Error = message
		return nil
	})
}
