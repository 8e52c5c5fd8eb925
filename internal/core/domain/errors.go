package domain

import "errors"

var (
	// ErrNotFound is returned when a named secret does not exist.
	ErrNotFound = errors.New("secret not found")

	// ErrConflict is returned when a guarded write loses a version race.
	ErrConflict = errors.New("secret version conflict")

	// ErrNotRecognized is returned when a payload does not carry the
	// vault's wire format for the name it was requested under.
	ErrNotRecognized = errors.New("payload not recognized as encoded")

	// ErrInvalidCredentials is returned on failed authentication.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
