package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/oarkflow/resetpass/errors"
	"github.com/oarkflow/resetpass/utils"
)

const (
	// DefaultEndpoint hosted account service API root
	DefaultEndpoint = "https://cloud.appwrite.io/v1"
	// DefaultProject project the reset links are issued for
	DefaultProject = "67a919570017f0b49451"
	// DefaultTimeout applied to each recovery call
	DefaultTimeout = 15 * time.Second

	recoveryPath  = "/account/recovery"
	projectHeader = "X-Appwrite-Project"
)

// Config recovery client configuration
type Config struct {
	Endpoint string
	Project  string
	Timeout  time.Duration
	// Gateway, when set, authenticates every call with an OAuth2 client
	// credentials token.
	Gateway *clientcredentials.Config
}

// New create account recovery client
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Project == "" {
		cfg.Project = DefaultProject
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		endpoint: cfg.Endpoint,
		project:  cfg.Project,
		http:     newHTTPClient(cfg),
	}
}

// Client calls the account recovery endpoint of the hosted account service.
type Client struct {
	endpoint string
	project  string
	http     *http.Client
}

type recoveryRequest struct {
	UserID        string `json:"userId"`
	Secret        string `json:"secret"`
	Password      string `json:"password"`
	PasswordAgain string `json:"passwordAgain"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

// UpdateRecovery completes the recovery for userID. Any failure is returned
// as *errors.ExternalError whose message is safe to show the user.
func (c *Client) UpdateRecovery(ctx context.Context, userID, secret, password, passwordAgain string) error {
	resp, err := c.Request(ctx, http.MethodPut, recoveryPath, &recoveryRequest{
		UserID:        userID,
		Secret:        secret,
		Password:      password,
		PasswordAgain: passwordAgain,
	})
	if err != nil {
		return &errors.ExternalError{Message: err.Error(), Err: err}
	}
	body, err := utils.ReadResponse(resp)
	if err != nil {
		return &errors.ExternalError{StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return decodeError(resp.StatusCode, body)
}

func decodeError(status int, body []byte) error {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err != nil || strings.TrimSpace(ae.Message) == "" {
		return &errors.ExternalError{StatusCode: status, Message: statusMessage(status)}
	}
	return &errors.ExternalError{StatusCode: status, Type: ae.Type, Message: ae.Message}
}

func statusMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("Unexpected response status %d", status)
}
