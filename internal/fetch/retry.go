// Package fetch holds the resilience policy shared by all providers: a
// retry loop with linear backoff, typed HTTP errors, and the common HTTP
// client configuration.
package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds one provider's network behaviour. The zero value is not
// usable; use DefaultPolicy as a base.
type Policy struct {
	// MaxAttempts is the total number of tries per endpoint, including
	// the first.
	MaxAttempts int
	// BaseDelay scales the linear backoff: attempt n sleeps n*BaseDelay.
	BaseDelay time.Duration
	// Timeout bounds a single HTTP request.
	Timeout time.Duration
}

// DefaultPolicy matches the providers' stock configuration.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Timeout:     10 * time.Second,
	}
}

// AuthError marks an HTTP 401/403. It is never retried; the provider
// decides between disabling itself and failing hard.
type AuthError struct {
	Status int
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("authentication failed with status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("authentication failed with status %d", e.Status)
}

// StatusError is a non-auth HTTP failure. 5xx and 429 are retryable.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// IsAuthStatus reports whether code indicates a credential problem.
func IsAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// linearBackOff implements backoff.BackOff with attempt*base delays.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.attempt++
	return time.Duration(l.attempt) * l.base
}

func (l *linearBackOff) Reset() {
	l.attempt = 0
}

// Retry runs op up to p.MaxAttempts times with linear backoff. Auth errors
// and other errors wrapped with backoff.Permanent stop the loop at once.
// Transient 5xx/429 statuses and transport errors are retried.
func (p Policy) Retry(op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return backoff.Permanent(err)
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !retryableStatus(statusErr.Status) {
			return backoff.Permanent(err)
		}
		return err
	}
	bo := backoff.WithMaxRetries(&linearBackOff{base: p.BaseDelay}, uint64(attempts-1))
	return backoff.Retry(wrapped, bo)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
