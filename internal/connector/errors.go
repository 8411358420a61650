package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrMissingCredentials is returned when a tenant lacks the credentials a
// connector needs. It is never transient.
var ErrMissingCredentials = errors.New("missing connector credentials")

// ConnectorError classifies transport failures as retryable or terminal.
type ConnectorError struct {
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *ConnectorError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "connector error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ConnectorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a send should be retried later.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingCredentials) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var connErr *ConnectorError
	if errors.As(err, &connErr) {
		return connErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func missingCredentials(channel string, keys []string) error {
	return fmt.Errorf("%w: %s requires %s", ErrMissingCredentials, channel, strings.Join(keys, ", "))
}
