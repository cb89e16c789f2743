// Package client is the Go client for the grade system backend. Every
// backend action has one method, and all traffic funnels through a single
// request helper which attaches the stored bearer token, encodes GET data
// as a query string, forces a logout on 401 and normalizes transport,
// decoding and server reported failures into one error shape.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIError is the uniform failure shape, callers never need to branch on
// transport versus application errors.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// TokenStore supplies and clears the stored credential, the browser
// client's localStorage analog.
type TokenStore interface {
	Token() string
	Clear()
}

type noTokens struct{}

func (noTokens) Token() string { return "" }
func (noTokens) Clear()        {}

// Option assign various settings to the client
type Option func(c *Client)

// WithHTTPClient use the provided http client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpc = hc
	}
}

// WithTokenStore use the provided token store for bearer credentials
func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithUnauthorizedHook invoke fn after a 401 response forces a logout
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// Client calls the grade system backend.
type Client struct {
	baseURL        string
	httpc          *http.Client
	tokens         TokenStore
	onUnauthorized func()
}

// New builds a client for the backend at baseURL.
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   http.DefaultClient,
		tokens:  noTokens{},
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// do performs one request, data travels as a query string for GET and as
// a JSON body otherwise. The decoded response lands in out when non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, data map[string]interface{}, skipAuth bool, out interface{}) error {
	u := c.baseURL + endpoint

	var body io.Reader

	if method == http.MethodGet {
		if len(data) > 0 {
			values := url.Values{}
			for k, v := range data {
				values.Set(k, fmt.Sprint(v))
			}

			sep := "?"
			if strings.Contains(u, "?") {
				sep = "&"
			}
			u += sep + values.Encode()
		}
	} else {
		payload, err := json.Marshal(data)
		if err != nil {
			return &APIError{Message: "failed to encode request"}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &APIError{Message: "failed to build request"}
	}

	req.Header.Set("Content-Type", "application/json")

	if !skipAuth {
		// guard against sentinel junk persisted by older clients
		if token := c.tokens.Token(); token != "" && token != "null" && token != "undefined" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.httpc.Do(req)
	if err != nil {
		return &APIError{Message: "network error, check the connection and retry"}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		c.tokens.Clear()
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &APIError{Message: "session expired, log in again"}
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return &APIError{Message: "failed to read response"}
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &APIError{Message: "invalid response from server"}
	}
	if envelope.Error != "" {
		return &APIError{Message: envelope.Error}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Message: "invalid response from server"}
	}

	return nil
}
