package core

import (
	"errors"
)

// User represents an authenticated principal returned to handlers.
// The password hash never leaves the repository layer.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

var (
	// ErrMissingFields is returned when a required registration/login field is empty.
	ErrMissingFields = errors.New("missing fields")
	// ErrEmailTaken is returned when the registration email is already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for unknown email and wrong password
	// alike, so callers cannot probe which addresses are registered.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService defines credential handling behaviour.
type AuthService interface {
	Register(username, email, password string) (User, error)
	Authenticate(email, password string) (User, error)
}
