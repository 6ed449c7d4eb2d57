package errors

import (
	"fmt"
	"strings"
)

// ErrConfigMissing is returned when no remote mapping is configured at all.
var ErrConfigMissing = New("no remotes are configured")

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// ConfigError collects every problem found while validating a configuration
// file, so that they can all be reported at once.
type ConfigError struct {
	Path     string
	Problems []string
}

func (err ConfigError) Error() string {
	return err.FriendlyMessage()
}

func (err ConfigError) FriendlyMessage() string {
	return fmt.Sprintf("The configuration in %q is invalid:\n - %s",
		err.Path, strings.Join(err.Problems, "\n - "))
}

// UnknownFolder represents a remote key that couldn't be bound to any local
// workspace folder.
type UnknownFolder struct {
	Key string
}

func (err UnknownFolder) Error() string {
	return fmt.Sprintf("%s is unknown", err.Key)
}
