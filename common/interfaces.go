// Package common provides shared constants, types, and utilities
// used across the Portal Login application.
package common

// SecretStore is an opaque key-value service for passwords, keyed by a
// service name plus username. Implementations serialize their own
// operations.
type SecretStore interface {
	// Get retrieves the secret for user under service.
	Get(service, user string) (string, error)
	// Set stores the secret for user under service.
	Set(service, user, secret string) error
	// Delete removes the secret for user under service.
	Delete(service, user string) error
}

// StatusFunc receives human-readable progress updates. progress is a
// percentage, or ProgressNone when the update carries no progress.
type StatusFunc func(message string, progress int)

// Notifier defines the interface for sending desktop notifications.
type Notifier interface {
	// Notify sends a notification with the given title and message.
	Notify(title, message string) error
	// NotifyWithIcon sends a notification with a custom icon.
	NotifyWithIcon(title, message, icon string) error
}

// Logger defines the interface for leveled logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
