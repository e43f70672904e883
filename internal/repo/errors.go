package repo

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned when the username is already taken.
	ErrUserExists = errors.New("username already exists")
	// ErrEmailExists is returned when the email is already registered.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidRole is returned when the store rejects a role outside user/admin.
	ErrInvalidRole = errors.New("invalid role")
)

// postgres SQLSTATE codes surfaced by lib/pq.
const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)
