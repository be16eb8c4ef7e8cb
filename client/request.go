package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/oarkflow/resetpass/utils"
)

// Request performs a JSON request against the service API root
func (c *Client) Request(ctx context.Context, method, endpoint string, payload interface{}) (*http.Response, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, utils.AppendURL(c.endpoint, endpoint), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(projectHeader, c.project)
	return c.http.Do(req)
}

func newHTTPClient(cfg Config) *http.Client {
	base := &http.Client{Timeout: cfg.Timeout}
	if cfg.Gateway == nil {
		return base
	}
	// token requests reuse the same timeout
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	hc := cfg.Gateway.Client(ctx)
	hc.Timeout = cfg.Timeout
	return hc
}
