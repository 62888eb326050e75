// Package config provides configuration management for Portal Login.
// It handles loading and saving the user settings file, the headless
// runner settings, and the optional portal site-contract overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yllada/portal-login/common"
)

// Config represents the user settings persisted to config.json.
// The field names are shared with earlier releases of the tool.
type Config struct {
	// Username is the last username saved with "remember me".
	Username string `json:"username"`
	// RememberMe persists the username and stores the password in the keyring.
	RememberMe bool `json:"remember_me"`
	// AutoLogin starts a login immediately when saved credentials exist.
	AutoLogin bool `json:"auto_login"`
	// HeadlessMode hides the browser window during interactive logins.
	HeadlessMode bool `json:"headless_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{}
}

// Load reads config.json from the configuration directory.
// A missing file yields the defaults without writing anything.
func Load() (*Config, error) {
	path, err := filePath(common.ConfigFileName)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	found, err := readJSON(path, cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		common.LogDebug("Config file not found at %s, using defaults", path)
	}
	return cfg, nil
}

// Save writes the configuration to config.json.
func (c *Config) Save() error {
	path, err := filePath(common.ConfigFileName)
	if err != nil {
		return err
	}
	if err := writeJSON(path, c); err != nil {
		return err
	}
	common.LogDebug("Config saved to %s", path)
	return nil
}

// filePath resolves name inside the configuration directory.
func filePath(name string) (string, error) {
	dir, err := common.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}
	return filepath.Join(dir, name), nil
}

// readJSON decodes path into v. It reports false when the file is absent.
func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: parsing %s: %v", common.ErrConfigLoad, filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}
	return nil
}
