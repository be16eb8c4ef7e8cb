package resetpass

import "context"

type (
	// AttemptIDGenerate generate the attempt id interface
	AttemptIDGenerate interface {
		Token(ctx context.Context) (id string, err error)
	}
)
