package auth

import (
	"errors"
	"time"
)

// User represents an authenticated user account. Username is stored
// lowercase; login accepts username or email.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("auth: user not found")
	// ErrUserExists indicates a registration against an existing username or
	// email.
	ErrUserExists = errors.New("auth: username or email already registered")
	// ErrInvalidCredentials indicates a failed login. It deliberately does not
	// distinguish unknown account from wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)
