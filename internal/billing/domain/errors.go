package domain

import "errors"

var (
	// ErrSubscriptionNotFound is returned when a user has no subscription record.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrAlreadyCanceled is returned when canceling a canceled subscription.
	ErrAlreadyCanceled = errors.New("subscription already canceled")
	// ErrInvalidCheckout is returned for a checkout without user or plan.
	ErrInvalidCheckout = errors.New("checkout requires a user and a plan")
)
