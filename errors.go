package fchat

import (
	"errors"
	"fmt"
)

// Server error numbers with client-side behavior attached to them.
const (
	// ErrNumIdentificationFailed is returned for bad credentials during IDN.
	ErrNumIdentificationFailed = 4
	// ErrNumBannedFromServer marks an account ban. Receiving it is fatal to
	// the connection: the banned flag is set and the connection disposed.
	ErrNumBannedFromServer = 9
	// ErrNumStatusUpdateThrottled is the "status updates too fast" throttle.
	// SetStatus treats it as recoverable and retries with backoff.
	ErrNumStatusUpdateThrottled = 50
)

// Sentinel errors returned by the connection and its primitives.
var (
	// ErrConnectionEnded is returned by reads on a disposed message sink.
	ErrConnectionEnded = errors.New("connection ended")
	// ErrUnavailable is returned by NullChatConnection for queries that
	// fundamentally require a live connection.
	ErrUnavailable = errors.New("not available without a live connection")
	// ErrAlreadyIdentified is returned when Identify is called twice on the
	// same connection. This is a programming error, never retried.
	ErrAlreadyIdentified = errors.New("connection is already identified")
	// ErrNotIdentified is returned by bracketed commands attempted before
	// the identify handshake completed.
	ErrNotIdentified = errors.New("connection is not identified")
	// ErrIdentificationFailed is returned when the server rejects IDN.
	ErrIdentificationFailed = errors.New("identification failed")
	// ErrDisposed is returned for operations on a disposed connection.
	ErrDisposed = errors.New("connection is disposed")
	// ErrSessionGone aborts a reconnect loop whose owning session left the
	// active session set.
	ErrSessionGone = errors.New("session is no longer active")
)

// ServerError is a protocol-level ERR frame surfaced as an error. Bracketed
// operations awaiting a response receive it as their failure; unsolicited
// errors are reported through the sink instead.
type ServerError struct {
	Number  int
	Message string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Number, e.Message)
}

// IsThrottle reports whether this is the status update throttle error.
func (e *ServerError) IsThrottle() bool {
	return e.Number == ErrNumStatusUpdateThrottled
}

// AsServerError extracts a *ServerError from an error chain.
func AsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
