// Package proposer talks to the external text-generation service that suggests foods and
// portions, and turns its free-text replies into typed plans.
package proposer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrMalformedResponse is returned when no parse strategy yields a usable plan
var ErrMalformedResponse = errors.New("malformed proposer response")

// Proposer returns free text expected to contain a JSON meal plan for the prompt
type Proposer interface {
	Propose(ctx context.Context, prompt string) (string, error)
}

// RateLimitError signals a quota or rate-limit rejection
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("proposer rate limited (retry after %s): %s", e.RetryAfter, e.Message)
}

// StatusError is a non-success HTTP reply from the proposer
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("proposer request failed with status %d: %s", e.Code, e.Body)
}

// HTTPStatusCode returns the response status
func (e *StatusError) HTTPStatusCode() int {
	return e.Code
}

// IsTransient reports whether a failed call is worth retrying right away: network
// errors, timeouts on the individual request, and 408/5xx replies. Rate limits are not
// transient; they trip the backoff gate instead.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 408 || (se.Code >= 500 && se.Code <= 599)
	}
	return false
}
