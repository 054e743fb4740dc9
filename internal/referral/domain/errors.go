package domain

import "errors"

var (
	// ErrCodeTaken is returned when an allocated code is already owned.
	ErrCodeTaken = errors.New("referral code already taken")
	// ErrInvalidCode is returned for a blank referral code.
	ErrInvalidCode = errors.New("referral code is empty")
	// ErrInvalidAffiliate is returned for an affiliate without user or name.
	ErrInvalidAffiliate = errors.New("affiliate requires a user and a display name")
	// ErrAffiliateNotFound is returned when the user is not an affiliate.
	ErrAffiliateNotFound = errors.New("affiliate not found")
)
