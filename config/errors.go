package config

import "errors"

var (
	// ErrFileNotFound is returned when the configuration file does not exist.
	ErrFileNotFound = errors.New("config file not found")
	// ErrParsingConfig is returned when the file is not valid YAML or JSON or
	// does not match the target type.
	ErrParsingConfig = errors.New("failed to parse config")
	// ErrMissingEnv is returned when a required variable is not set.
	ErrMissingEnv = errors.New("environment variable not set")
	// ErrNilPointer is returned when Load gets a nil target.
	ErrNilPointer = errors.New("nil pointer provided to config loader")
)
