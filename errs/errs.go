// Package errs holds the error kinds shared by every jam codec and store.
//
// Callers match kinds with errors.Is. Every decode failure must be treated as
// "reject this token"; no kind is a warning.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks unsupported identifiers, missing or malformed key material.
	ErrConfiguration = errors.New("jam: configuration error")
	// ErrEncoding wraps failures while producing a token.
	ErrEncoding = errors.New("jam: encoding failed")
	// ErrFormat marks tokens or payloads that do not parse.
	ErrFormat = errors.New("jam: invalid format")
	// ErrVerification is the single, undifferentiated signature/MAC/AEAD failure.
	ErrVerification = errors.New("jam: invalid signature")
	// ErrAlgorithmMismatch is returned when a token names a different algorithm,
	// version or purpose than the codec expects.
	ErrAlgorithmMismatch = errors.New("jam: algorithm mismatch")
	// ErrCapability is returned when a codec lacks the key needed for an operation.
	ErrCapability = errors.New("jam: operation not supported by this key")
	// ErrListed is returned when a list hook rejects a verified token.
	ErrListed = errors.New("jam: token rejected by list")
	// ErrExpired is returned when a verified token is past its exp claim.
	ErrExpired = errors.New("jam: token expired")
)

// Error carries a kind plus a stable code and optional details.
type Error struct {
	Kind    error
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Is reports kind equality so errors.Is(err, ErrVerification) matches.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind.
func New(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds an Error of the given kind around cause.
func Wrap(kind error, code string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Err: cause}
}

// Configf is shorthand for a configuration error with a formatted message.
func Configf(code, format string, args ...any) *Error {
	return &Error{Kind: ErrConfiguration, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Formatf is shorthand for a format error with a formatted message.
func Formatf(code, format string, args ...any) *Error {
	return &Error{Kind: ErrFormat, Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails returns e with the given detail attached.
func (e *Error) WithDetails(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
