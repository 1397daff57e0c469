package users

import (
	"context"
	"errors"
	"time"
)

// User represents an account. Identity is the ID field; there is no other
// profile data.
type User struct {
	ID        string    `json:"id"`
	Pass      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned when creating a user whose ID is taken.
var ErrAlreadyExists = errors.New("user already exists")

// Store persists user records.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
}

// Validation holds the outcome of new-user input validation. Errors maps
// field name to a human-readable message for form re-rendering.
type Validation struct {
	OK     bool              `json:"ok"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Authenticator validates credentials. Implementations decide what a valid
// identity looks like; the route pipeline only depends on this interface.
type Authenticator interface {
	// ValidateCredentials reports whether id and pass form a valid login.
	ValidateCredentials(id, pass string) bool

	// ValidateNewUser applies signup rules and returns field-level errors
	// suitable for re-rendering the signup form.
	ValidateNewUser(id, pass string) *Validation
}

// OrgPrefix is prepended to a user ID to form the billing-subject
// identifier. One org per user, derived deterministically.
const OrgPrefix = "org:"

// OrgID returns the billing org identifier for a user ID.
func OrgID(userID string) string {
	return OrgPrefix + userID
}

// FixedCredentialAuthenticator accepts exactly one username/password pair.
// This is the demo stand-in for real credential verification.
type FixedCredentialAuthenticator struct {
	Username string
	Password string
}

// NewFixedCredentialAuthenticator creates an authenticator for the given
// fixed pair. Empty values fall back to the classic demo credentials.
func NewFixedCredentialAuthenticator(username, password string) *FixedCredentialAuthenticator {
	if username == "" {
		username = "user"
	}
	if password == "" {
		password = "pass"
	}
	return &FixedCredentialAuthenticator{Username: username, Password: password}
}

// ValidateCredentials reports whether id and pass match the fixed pair.
func (a *FixedCredentialAuthenticator) ValidateCredentials(id, pass string) bool {
	return id == a.Username && pass == a.Password
}

// ValidateUsername reports whether id is the single valid username.
func (a *FixedCredentialAuthenticator) ValidateUsername(id string) bool {
	return id == a.Username
}

// ValidateNewUser applies the fixed-match rules with form-friendly messages.
func (a *FixedCredentialAuthenticator) ValidateNewUser(id, pass string) *Validation {
	if id != a.Username {
		return &Validation{Errors: map[string]string{
			"username": "Username must be 4 characters, containing " +
				`the characters "u", "s", "e", and "r", in that order.`,
		}}
	}
	if pass != a.Password {
		return &Validation{Errors: map[string]string{
			"password": `Password too easy to guess. It must be "pass".`,
		}}
	}
	return &Validation{OK: true}
}
