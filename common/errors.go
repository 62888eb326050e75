// Package common provides shared constants, types, and utilities
// used across the Portal Login application.
package common

import "errors"

// Sentinel errors for login operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// Session errors.
	ErrAttemptInProgress = errors.New("login attempt already in progress")
	ErrNotConnected      = errors.New("no active session")
	ErrCancelled         = errors.New("operation cancelled")

	// Credential errors.
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrCredentialStorage   = errors.New("failed to store credentials")
	ErrEncryption          = errors.New("encryption error")
	ErrDecryption          = errors.New("decryption error")

	// Configuration errors.
	ErrConfigLoad   = errors.New("failed to load configuration")
	ErrConfigSave   = errors.New("failed to save configuration")
	ErrInvalidValue = errors.New("invalid configuration value")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
