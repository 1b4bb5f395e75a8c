// Package graphql is a small client for the hosted GraphQL data service.
// Every request is made on behalf of a user session.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"boostclics/internal/upstream"
)

// ErrUnauthorized is returned when the service rejects the session token.
var ErrUnauthorized = errors.New("graphql: unauthorized")

type Config struct {
	URL     string
	Timeout time.Duration
	Retry   upstream.Policy
}

type Client struct {
	url        string
	httpClient *http.Client
	retry      upstream.Policy
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      cfg.Retry,
	}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []ErrorEntry    `json:"errors"`
}

type ErrorEntry struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Error carries the errors array of a GraphQL response.
type Error struct {
	Entries []ErrorEntry
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		msgs = append(msgs, entry.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// Permanent stops upstream.Retry: a query error will not go away on retry.
func (e *Error) Permanent() bool { return true }

// Do runs query with variables on behalf of bearer and decodes data into out.
func (c *Client) Do(ctx context.Context, bearer, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	var resp response
	err = upstream.Retry(ctx, c.retry, func(ctx context.Context) error {
		resp = response{}
		return c.doRequest(ctx, bearer, body, &resp)
	})
	if err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		if isAuthError(resp.Errors) {
			return fmt.Errorf("%w: %v", ErrUnauthorized, &Error{Entries: resp.Errors})
		}
		return &Error{Entries: resp.Errors}
	}

	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, bearer string, body []byte, out *response) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &authError{err: upstream.NewStatusError("graphql", resp)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return upstream.NewStatusError("graphql", resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Entries: []ErrorEntry{{Message: "decode response: " + err.Error()}}}
	}
	return nil
}

type authError struct{ err error }

func (e *authError) Error() string   { return e.err.Error() }
func (e *authError) Unwrap() []error { return []error{ErrUnauthorized, e.err} }
func (e *authError) Permanent() bool { return true }

// Hasura-style services report an expired or invalid JWT as a 200 with
// extensions.code set.
func isAuthError(entries []ErrorEntry) bool {
	for _, e := range entries {
		code, _ := e.Extensions["code"].(string)
		switch code {
		case "invalid-jwt", "invalid-headers", "access-denied", "UNAUTHENTICATED":
			return true
		}
	}
	return false
}
