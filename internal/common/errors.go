// Package common holds sentinel errors shared between the service layer,
// repositories and the HTTP handlers. Callers classify failures with
// errors.Is against these values; human-readable detail is attached by
// wrapping at the point of failure.
package common

import "errors"

var (

	// input validation
	ErrInvalidInput = errors.New("invalid input")

	// repository / directory errors
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrDuplicateEmail = errors.New("duplicate email")

	// authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrWrongFlow          = errors.New("wrong authentication flow")
	ErrUnauthorized       = errors.New("unauthorized")

	// token errors (session or provider tokens)
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// collaborator errors
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrNotificationFailed  = errors.New("notification delivery failed")

	ErrInternal = errors.New("internal error")
)
