// Package common provides shared constants, types, and utilities
// used across the Portal Login application.
package common

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	configDirMu       sync.RWMutex
	configDirOverride string
)

// SetConfigDir overrides the configuration directory for the process.
// An empty path restores the default location.
func SetConfigDir(path string) {
	configDirMu.Lock()
	defer configDirMu.Unlock()
	configDirOverride = path
}

// GenerateID returns a random identifier for a login attempt.
func GenerateID() string {
	return uuid.NewString()
}

// GetConfigDir returns the path to the application configuration directory.
// It creates the directory if it doesn't exist.
func GetConfigDir() (string, error) {
	configDirMu.RLock()
	configDir := configDirOverride
	configDirMu.RUnlock()

	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", WrapError(err, "failed to get home directory")
		}
		configDir = filepath.Join(homeDir, ".config", ConfigDirName)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", WrapError(err, "failed to create config directory")
	}

	return configDir, nil
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// TruncateReason keeps the first line of msg, cut to MaxReasonLength.
func TruncateReason(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	msg = strings.TrimSpace(msg)
	if r := []rune(msg); len(r) > MaxReasonLength {
		msg = string(r[:MaxReasonLength])
	}
	return msg
}

// MaskUsername shortens a username for status lines and logs.
func MaskUsername(username string) string {
	r := []rune(username)
	if len(r) <= 3 {
		return username + "..."
	}
	return string(r[:3]) + "..."
}
