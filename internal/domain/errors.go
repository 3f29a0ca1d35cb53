package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrDomainNotAllowed rejects a sign-up whose email domain is absent
	// from the configured institutional allow-list.
	ErrDomainNotAllowed = errors.New("email domain not allowed")

	// ErrInvalidCredentials is returned on any credential mismatch without
	// distinguishing unknown email from wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
