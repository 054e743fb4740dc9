package domain

import "errors"

var (
	ErrUnknownProvider       = errors.New("unknown social provider")
	ErrProviderNotConfigured = errors.New("social provider is not configured")
	ErrInvalidConnect        = errors.New("authorization code and redirect URI are required")
	ErrNoPlatforms           = errors.New("at least one platform is required")
	ErrEmptyContent          = errors.New("a caption or media is required")

	// ErrConnectFailed is the generic account connection failure.
	ErrConnectFailed = errors.New("could not connect account")
	// ErrShareFailed is the generic sharing failure.
	ErrShareFailed = errors.New("could not share content")
)

// FailureError is a user-facing failure. Message is the upstream message
// when one was available, otherwise the generic message of Base.
type FailureError struct {
	Base    error
	Message string
	Err     error
}

func (e *FailureError) Error() string {
	return e.Message
}

func (e *FailureError) Unwrap() []error {
	return []error{e.Base, e.Err}
}
