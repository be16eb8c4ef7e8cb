package config

import (
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/oarkflow/resetpass/client"
	"github.com/oarkflow/resetpass/errors"
	"github.com/oarkflow/resetpass/manage"
	"github.com/oarkflow/resetpass/store"
	"github.com/oarkflow/resetpass/validation"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "RESETPASS"

// Config of the reset page server. Every field is read from
// RESETPASS_<TAG>.
type Config struct {
	Addr    string `envconfig:"ADDR" default:":8080"`
	AppLink string `envconfig:"APP_LINK" default:"momentum://"`

	Endpoint       string        `envconfig:"ENDPOINT" default:"https://cloud.appwrite.io/v1"`
	Project        string        `envconfig:"PROJECT" default:"67a919570017f0b49451"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`

	MinPasswordLength int           `envconfig:"MIN_PASSWORD_LENGTH" default:"8"`
	MinStrength       int           `envconfig:"MIN_STRENGTH" default:"0"`
	AttemptTTL        time.Duration `envconfig:"ATTEMPT_TTL" default:"30m"`

	Store         string `envconfig:"STORE" default:"memory"`
	BuntDBPath    string `envconfig:"BUNTDB_PATH" default:":memory:"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	RateLimit      int           `envconfig:"RATE_LIMIT" default:"20"`
	RateWindow     time.Duration `envconfig:"RATE_WINDOW" default:"1m"`
	MetricsEnabled bool          `envconfig:"METRICS_ENABLED" default:"true"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"DEVELOPMENT" default:"false"`

	GatewayTokenURL     string   `envconfig:"GATEWAY_TOKEN_URL"`
	GatewayClientID     string   `envconfig:"GATEWAY_CLIENT_ID"`
	GatewayClientSecret string   `envconfig:"GATEWAY_CLIENT_SECRET"`
	GatewayScopes       []string `envconfig:"GATEWAY_SCOPES"`
}

// Load reads the optional env files (".env" when none are given) and then
// the environment. Variables already set in the environment win over the
// files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", f, err)
		}
	}

	var c Config
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s_ENDPOINT: %q is not an absolute http(s) URL", EnvPrefix, c.Endpoint)
	}
	if c.Project == "" {
		return fmt.Errorf("%s_PROJECT: must be set", EnvPrefix)
	}
	if c.AppLink == "" {
		return fmt.Errorf("%s_APP_LINK: must be set", EnvPrefix)
	}
	if c.MinPasswordLength < 1 {
		return fmt.Errorf("%s_MIN_PASSWORD_LENGTH: must be at least 1, got %d", EnvPrefix, c.MinPasswordLength)
	}
	if c.MinStrength < 0 || c.MinStrength > 4 {
		return fmt.Errorf("%s_MIN_STRENGTH: must be between 0 and 4, got %d", EnvPrefix, c.MinStrength)
	}
	if c.AttemptTTL <= 0 {
		return fmt.Errorf("%s_ATTEMPT_TTL: must be positive", EnvPrefix)
	}
	switch store.Kind(c.Store) {
	case store.KindMemory, store.KindBuntDB, store.KindRedis:
	default:
		return fmt.Errorf("%s_STORE: unknown store %q", EnvPrefix, c.Store)
	}
	if c.GatewayTokenURL != "" && c.GatewayClientID == "" {
		return fmt.Errorf("%s_GATEWAY_CLIENT_ID: required with %s_GATEWAY_TOKEN_URL", EnvPrefix, EnvPrefix)
	}
	return nil
}

// ClientConfig for the recovery client
func (c *Config) ClientConfig() client.Config {
	cc := client.Config{
		Endpoint: c.Endpoint,
		Project:  c.Project,
		Timeout:  c.RequestTimeout,
	}
	if c.GatewayTokenURL != "" {
		cc.Gateway = &clientcredentials.Config{
			ClientID:     c.GatewayClientID,
			ClientSecret: c.GatewayClientSecret,
			TokenURL:     c.GatewayTokenURL,
			Scopes:       c.GatewayScopes,
		}
	}
	return cc
}

// ManagerConfig for the reset form manager
func (c *Config) ManagerConfig() *manage.Config {
	return &manage.Config{
		AttemptTTL: c.AttemptTTL,
		Policy: validation.Policy{
			MinLength:   c.MinPasswordLength,
			MinStrength: c.MinStrength,
		},
	}
}

// StoreOptions for the attempt store
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Kind:          store.Kind(c.Store),
		BuntDBPath:    c.BuntDBPath,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
	}
}
