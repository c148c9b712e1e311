package session

import "errors"

var (
	// ErrNotFound is returned when a session does not exist, has expired or its ID
	// cannot be resolved.
	ErrNotFound = errors.New("session not found")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("session backend unavailable")
	// ErrInvalidSessionKey is returned for empty keys or keys containing ':'.
	ErrInvalidSessionKey = errors.New("invalid session key")
	// ErrEncryptionKey is returned when WithEncryption gets unusable key material.
	ErrEncryptionKey = errors.New("invalid session encryption key")
)
