// Package resilience provides the timeboxed retry executor and the error
// taxonomy shared by every component that talks to an external system.
package resilience

import (
	"errors"
	"fmt"
)

// Kind classifies an integration failure.
type Kind string

const (
	KindTimeout                Kind = "timeout"
	KindTransientNetwork       Kind = "transient_network"
	KindAuthenticationRequired Kind = "authentication_required"
	KindValidation             Kind = "validation"
	KindUpstreamRejected       Kind = "upstream_rejected"
)

// Sentinel errors matched by errors.Is against an *Error of the same kind.
var (
	ErrTimeout                = errors.New("operation timed out")
	ErrTransientNetwork       = errors.New("transient network error")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrValidation             = errors.New("validation failed")
	ErrUpstreamRejected       = errors.New("upstream rejected the request")

	// ErrCircuitOpen is returned without invoking the operation while its
	// circuit breaker is open. It is terminal.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

var sentinels = map[Kind]error{
	KindTimeout:                ErrTimeout,
	KindTransientNetwork:       ErrTransientNetwork,
	KindAuthenticationRequired: ErrAuthenticationRequired,
	KindValidation:             ErrValidation,
	KindUpstreamRejected:       ErrUpstreamRejected,
}

// Error is a classified integration failure.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// NewError creates a classified error with a message.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WrapError classifies an underlying error.
func WrapError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = sentinels[e.Kind].Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind, true
	}
	return "", false
}

// IsRetryable reports whether err is worth another attempt. Only timeouts and
// transient network failures qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransientNetwork)
}

// UpstreamMessage returns the message carried by an UpstreamRejected error, or
// the empty string when err carries none.
func UpstreamMessage(err error) string {
	var classified *Error
	if errors.As(err, &classified) && classified.Kind == KindUpstreamRejected {
		return classified.Message
	}
	return ""
}
