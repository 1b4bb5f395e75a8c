// Package upstream holds the retry policy and error shapes shared by the
// outbound HTTP clients (identity provider, GraphQL service).
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxErrorBody = 512

// Policy controls retries of transient upstream failures.
type Policy struct {
	Retries         int
	InitialInterval time.Duration
}

// DefaultPolicy retries twice, starting at 500ms.
var DefaultPolicy = Policy{Retries: 2, InitialInterval: 500 * time.Millisecond}

// StatusError is a non-2xx upstream answer.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.Code, e.Body)
}

// Temporary reports whether retrying may help.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// NewStatusError reads a bounded part of resp.Body into the error.
func NewStatusError(service string, resp *http.Response) *StatusError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Service: service, Code: resp.StatusCode, Body: string(b)}
}

// Retry runs op until it succeeds, returns a non-temporary error, the retry
// budget is spent, or ctx is done. Network errors and temporary
// StatusErrors are retried.
func Retry(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = eb
	if p.Retries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(p.Retries))
	}
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var perm interface{ Permanent() bool }
	if errors.As(err, &perm) && perm.Permanent() {
		return false
	}
	return true
}
