// Package keyring provides secure credential storage.
// It uses the system keyring when available, falling back to an
// encrypted local file when not.
package keyring

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/yllada/portal-login/common"
)

// probeUser is written and removed once to detect a working system keyring.
const probeUser = "portal-login-probe"

// Common errors returned by keyring operations.
var (
	ErrNotFound = errors.New("credential not found")
	ErrEmptyKey = errors.New("service and user cannot be empty")
)

// Keyring stores secrets by service and user. It implements
// common.SecretStore and is safe for concurrent use.
type Keyring struct {
	mu       sync.Mutex
	useLocal bool
	local    *fileStore
	filePath string
}

// New probes the system keyring and returns a store backed by it, or by
// the encrypted file in the configuration directory when it is unusable.
func New() (*Keyring, error) {
	configDir, err := common.GetConfigDir()
	if err != nil {
		return nil, err
	}

	k := &Keyring{filePath: filepath.Join(configDir, common.CredentialsFileName)}
	if err := keyring.Set(common.KeyringService, probeUser, "probe"); err != nil {
		common.LogWarn("System keyring unavailable, using encrypted file: %v", err)
		if err := k.switchToLocal(); err != nil {
			return nil, err
		}
		return k, nil
	}
	_ = keyring.Delete(common.KeyringService, probeUser)
	return k, nil
}

// NewFileBacked returns a store that only uses the encrypted file at path.
func NewFileBacked(path string) (*Keyring, error) {
	k := &Keyring{filePath: path}
	if err := k.switchToLocal(); err != nil {
		return nil, err
	}
	return k, nil
}

// switchToLocal must be called with k.mu held or before k is shared.
func (k *Keyring) switchToLocal() error {
	if k.local != nil {
		k.useLocal = true
		return nil
	}
	store, err := openFileStore(k.filePath, machineSecret())
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrCredentialStorage, err)
	}
	k.local = store
	k.useLocal = true
	return nil
}

// Set saves a secret for user under service.
func (k *Keyring) Set(service, user, secret string) error {
	if service == "" || user == "" {
		return ErrEmptyKey
	}
	if secret == "" {
		return errors.New("secret cannot be empty")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.useLocal {
		err := keyring.Set(service, user, secret)
		if err == nil {
			return nil
		}
		common.LogWarn("Keyring write failed, falling back to encrypted file: %v", err)
		if err := k.switchToLocal(); err != nil {
			return err
		}
	}
	return k.local.set(key(service, user), secret)
}

// Get retrieves the secret for user under service.
func (k *Keyring) Get(service, user string) (string, error) {
	if service == "" || user == "" {
		return "", ErrEmptyKey
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.useLocal {
		secret, err := keyring.Get(service, user)
		if err == nil {
			return secret, nil
		}
		if !errors.Is(err, keyring.ErrNotFound) {
			common.LogWarn("Keyring read failed: %v", err)
		}
		if k.local == nil {
			return "", ErrNotFound
		}
	}

	secret, ok := k.local.get(key(service, user))
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

// Delete removes the secret for user under service. Deleting a missing
// secret returns ErrNotFound.
func (k *Keyring) Delete(service, user string) error {
	if service == "" || user == "" {
		return ErrEmptyKey
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	found := false
	if !k.useLocal {
		switch err := keyring.Delete(service, user); {
		case err == nil:
			found = true
		case !errors.Is(err, keyring.ErrNotFound):
			common.LogWarn("Keyring delete failed: %v", err)
		}
	}

	if k.local != nil {
		removed, err := k.local.delete(key(service, user))
		if err != nil {
			return err
		}
		found = found || removed
	}

	if !found {
		return ErrNotFound
	}
	return nil
}

// UsesFallback reports whether secrets go to the encrypted file.
func (k *Keyring) UsesFallback() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.useLocal
}

func key(service, user string) string {
	return service + "/" + user
}

// machineSecret is the input for the file key: stable per user and host,
// never written anywhere.
func machineSecret() []byte {
	hostname, _ := os.Hostname()
	machineID := "default-machine-id"
	if data, err := os.ReadFile("/etc/machine-id"); err == nil {
		machineID = strings.TrimSpace(string(data))
	}
	return []byte(fmt.Sprintf("%s-%s-%s-%d", common.KeyringService, hostname, machineID, os.Getuid()))
}
