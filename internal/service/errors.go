package service

import "errors"

// Sentinel errors returned by services. Handlers map these to HTTP status
// codes with [errors.Is].
var (
	// ErrInvalidDataProvided is returned when a request fails validation
	// before reaching storage.
	ErrInvalidDataProvided = errors.New("invalid data provided")

	// ErrWrongPassword is returned when a login attempt carries the wrong
	// password for an existing account.
	ErrWrongPassword = errors.New("wrong password")

	// ErrTokenIsExpiredOrInvalid is returned when a JWT fails validation.
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")

	// ErrDeviceNotVerified is returned when a sync call names a device that
	// is not registered to the authenticated staff account.
	ErrDeviceNotVerified = errors.New("device is not registered to this account")

	// ErrPasswordHashing is returned when computing a password hash fails.
	ErrPasswordHashing = errors.New("failed to hash password")
)
