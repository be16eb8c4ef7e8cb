package resetpass

import "context"

// Recoverer completes an account recovery against the external service.
type Recoverer interface {
	// UpdateRecovery set the new password for userID, proving the request
	// with the one-time secret from the reset link
	UpdateRecovery(ctx context.Context, userID, secret, password, passwordAgain string) error
}

// RecovererFunc adapts an ordinary function to Recoverer.
type RecovererFunc func(ctx context.Context, userID, secret, password, passwordAgain string) error

func (f RecovererFunc) UpdateRecovery(ctx context.Context, userID, secret, password, passwordAgain string) error {
	return f(ctx, userID, secret, password, passwordAgain)
}
