package resetpass

import (
	"context"
	"time"
)

type (
	// AttemptStore the reset attempt storage interface
	AttemptStore interface {
		// Create store a new attempt that expires after ttl
		Create(ctx context.Context, attempt *Attempt, ttl time.Duration) error

		// Get according to the ID for the attempt; errors.ErrAttemptNotFound
		// when it is unknown or expired
		Get(ctx context.Context, id string) (*Attempt, error)

		// Update atomically load the attempt, apply fn and write it back
		// keeping its expiry. When fn returns an error nothing is written
		// and the unchanged attempt is returned along with that error.
		Update(ctx context.Context, id string, fn func(attempt *Attempt) error) (*Attempt, error)

		// Delete remove the attempt
		Delete(ctx context.Context, id string) error
	}
)
