package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yuxishi/aiusage/internal/model"
)

const (
	userAgent        = "aiusage/1.0"
	maxErrorBodySize = 256
)

var validate = validator.New()

// Client performs the HTTP side of every adapter.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// NewClientWithHTTP wraps an existing http.Client (tests, custom transports).
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

type request struct {
	service string
	method  string
	url     string
	headers map[string]string
	body    any
}

// do sends the request and returns the response body of a 2xx reply. Every
// failure is an *model.APIError.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	var body io.Reader
	if r.body != nil {
		encoded, err := json.Marshal(r.body)
		if err != nil {
			return nil, model.NewAPIError(r.service, model.ErrorNetwork, "encode request", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, model.NewAPIError(r.service, model.ErrorNetwork, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewAPIError(r.service, model.ErrorNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewAPIError(r.service, model.ErrorNetwork, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &model.APIError{
			Kind:       model.ErrorHTTP,
			Service:    r.service,
			StatusCode: resp.StatusCode,
			Message:    "unexpected status",
		}
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			apiErr.Kind = model.ErrorAuth
			apiErr.Message = "authentication failed"
		case resp.StatusCode >= 500:
			apiErr.Kind = model.ErrorUnavailable
			apiErr.Message = "service unavailable"
		}
		if snippet := strings.TrimSpace(string(data)); snippet != "" {
			if len(snippet) > maxErrorBodySize {
				snippet = snippet[:maxErrorBodySize]
			}
			apiErr.Err = errors.New(snippet)
		}
		return nil, apiErr
	}

	return data, nil
}

// decodeValidated unmarshals data into dst and checks its validate tags.
func decodeValidated(service string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return model.NewAPIError(service, model.ErrorInvalidResponse, model.MsgInvalidResponse, err)
	}
	if err := validate.Struct(dst); err != nil {
		return model.NewAPIError(service, model.ErrorInvalidResponse, model.MsgInvalidResponse, err)
	}
	return nil
}

func parseError(service string, err error) error {
	return model.NewAPIError(service, model.ErrorParse, "could not normalize response", err)
}

func missingToken(service, name string) error {
	return model.NewAPIError(service, model.ErrorAuth, fmt.Sprintf("no token configured for %s", name), nil)
}

func bearer(token string) string {
	return "Bearer " + strings.TrimSpace(token)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
