package manage

import (
	"time"

	"github.com/oarkflow/resetpass/validation"
)

// Config reset attempt configuration parameters
type Config struct {
	// AttemptTTL how long a reset page stays usable after it was opened
	AttemptTTL time.Duration
	// Policy password rules applied on submit
	Policy validation.Policy
}

// DefaultAttemptTTL default lifetime of a reset attempt
const DefaultAttemptTTL = 30 * time.Minute

// DefaultConfig default reset attempt configuration
var DefaultConfig = &Config{
	AttemptTTL: DefaultAttemptTTL,
	Policy:     validation.DefaultPolicy,
}
