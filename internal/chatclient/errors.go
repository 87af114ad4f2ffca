package chatclient

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Failure taxonomy. Every sync operation returns one of these (possibly
// wrapped); none of them is retried automatically.
var (
	// ErrUnauthenticated means the credential is missing or was rejected
	// (HTTP 401). Recovery is re-authentication at a higher layer.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAccessDenied means the credential is valid but the operation was
	// forbidden (HTTP 403).
	ErrAccessDenied = errors.New("access denied")
	// ErrRemoteUnavailable means the backend failed (HTTP 5xx).
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrNetworkTimeout means the fixed per-call timeout elapsed.
	ErrNetworkTimeout = errors.New("network timeout")
	// ErrNetworkUnavailable means the transport failed before a response.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrMalformedResponse means a 2xx response was missing required fields.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrEmptyMessage means the input was empty or whitespace-only; no
	// network call is made.
	ErrEmptyMessage = errors.New("empty message")
)

// StatusError carries the HTTP status of a failed call and unwraps to the
// taxonomy sentinel it classifies as, so callers can use errors.Is while the
// user-visible text keeps the raw status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.Code)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == 401:
		return ErrUnauthenticated
	case e.Code == 403:
		return ErrAccessDenied
	case e.Code >= 500:
		return ErrRemoteUnavailable
	default:
		return nil
	}
}

// classifyTransport maps a transport-level error (no HTTP response) onto the
// taxonomy. Timeouts are distinguished from other failures for diagnostics
// even though the user-visible message is the same.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrNetworkTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrNetworkTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
}
