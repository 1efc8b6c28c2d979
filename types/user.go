package types

import "time"

// Roles recognized by the platform.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// User represents an account in the system.
// It contains identity, profile, role, and session metadata.
type User struct {
	// ID is the unique identifier of the user. It is immutable after
	// creation.
	ID string `json:"id" db:"id"`

	// Email is the user's email address. It is unique and matched
	// case-insensitively, and serves as the login key.
	Email string `json:"email" db:"email"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name" db:"last_name"`

	// Role indicates the user's authorization level within the system:
	// "user", "admin", or "moderator".
	Role string `json:"role" db:"role"`

	// IsEmailVerified reports whether the email address has been
	// confirmed.
	IsEmailVerified bool `json:"is_email_verified" db:"is_email_verified"`

	// IsActive reports whether the account may log in. Deactivated
	// accounts are refused at login.
	IsActive bool `json:"is_active" db:"is_active"`

	// ProfilePicture is an optional URL or object key for the user's
	// avatar.
	ProfilePicture string `json:"profile_picture,omitempty" db:"profile_picture"`

	// PhoneNumber is an optional contact number.
	PhoneNumber string `json:"phone_number,omitempty" db:"phone_number"`

	// LastLogin is the timestamp of the most recent successful login,
	// or nil if the user has never logged in.
	LastLogin *time.Time `json:"last_login,omitempty" db:"last_login"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// RefreshTokenHash stores the hash of the currently valid refresh
	// token, or empty if the user has no active session. It is never
	// exposed in API responses.
	RefreshTokenHash string `json:"-" db:"refresh_token_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the
	// account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Sanitized returns a copy with credential material cleared. The hash
// fields are already excluded from JSON; clearing them keeps copies
// handed to other layers free of secrets as well.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshTokenHash = ""
	return u
}
