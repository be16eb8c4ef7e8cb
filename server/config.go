package server

import (
	"time"
)

// Config configuration parameters
type Config struct {
	Title          string        // page title
	AppLink        string        // deep link back to the companion app
	FormAction     string        // path the reset form posts to
	RateLimit      int           // posts allowed per client per window; 0 disables
	RateWindow     time.Duration // rate limit window
	MetricsEnabled bool          // expose /metrics
}

// NewConfig create to configuration instance
func NewConfig() *Config {
	return &Config{
		Title:          "Reset Password",
		AppLink:        "momentum://",
		FormAction:     "/",
		RateLimit:      20,
		RateWindow:     time.Minute,
		MetricsEnabled: true,
	}
}
