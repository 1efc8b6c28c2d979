package services

import "errors"

// Domain errors surfaced by the service layer. Handlers map these to
// HTTP status codes.
var (
	ErrNotFound   = errors.New("requested resource not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("resource conflict")

	// ErrInvalidCredentials is returned for unknown emails and wrong
	// passwords alike, so login failures do not reveal whether an
	// account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDeactivated is deliberately distinct from
	// ErrInvalidCredentials: the UX benefit of telling a locked-out
	// user why outweighs the minor enumeration leak.
	ErrAccountDeactivated = errors.New("account is deactivated")

	// ErrAccessDenied covers all refresh failures: unknown user, no
	// active session, token mismatch, or a lost rotation race.
	ErrAccessDenied = errors.New("access denied")

	// ErrIncorrectPassword is returned by password change when the
	// current password does not verify.
	ErrIncorrectPassword = errors.New("current password is incorrect")
)
