package config

import (
	"time"

	"github.com/yllada/portal-login/common"
)

// HeadlessConfig holds the settings of the unattended runner, read from
// headless_config.json.
type HeadlessConfig struct {
	// ChromeOptions are passed verbatim to the browser.
	ChromeOptions []string `json:"chrome_options"`
	// AutoLogin enables retries. When false the runner makes one attempt.
	AutoLogin bool `json:"auto_login"`
	// RetryInterval is the pause between attempts, in seconds.
	RetryInterval int `json:"retry_interval"`
	// MaxRetries is the number of retries after the first attempt.
	// A negative value retries until the login succeeds.
	MaxRetries int `json:"max_retries"`
	// Notify sends a desktop notification with the final outcome.
	Notify bool `json:"notify,omitempty"`
	// MetricsAddr, when set, serves Prometheus metrics on that address.
	MetricsAddr string `json:"metrics_addr,omitempty"`
	// WatchInterval, in seconds, keeps the runner alive after a login and
	// logs in again when connectivity is lost. Zero exits after the login.
	WatchInterval int `json:"watch_interval,omitempty"`
}

// DefaultHeadlessConfig returns the defaults used when the file is absent.
func DefaultHeadlessConfig() *HeadlessConfig {
	return &HeadlessConfig{
		ChromeOptions: []string{"--headless", "--disable-gpu"},
		AutoLogin:     true,
		RetryInterval: int(common.RetryInterval / time.Second),
		MaxRetries:    common.MaxRetries,
	}
}

// LoadHeadless reads headless_config.json, falling back to defaults.
func LoadHeadless() (*HeadlessConfig, error) {
	path, err := filePath(common.HeadlessConfigFileName)
	if err != nil {
		return nil, err
	}

	cfg := DefaultHeadlessConfig()
	found, err := readJSON(path, cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		common.LogDebug("Headless config not found at %s, using defaults", path)
	}
	cfg.validate()
	return cfg, nil
}

// Save writes the headless configuration to disk.
func (h *HeadlessConfig) Save() error {
	path, err := filePath(common.HeadlessConfigFileName)
	if err != nil {
		return err
	}
	return writeJSON(path, h)
}

// validate normalizes values that would make the runner misbehave.
func (h *HeadlessConfig) validate() {
	if h.RetryInterval < 0 {
		h.RetryInterval = 0
	}
	if h.WatchInterval < 0 {
		h.WatchInterval = 0
	}
}

// Interval returns RetryInterval as a duration.
func (h *HeadlessConfig) Interval() time.Duration {
	return time.Duration(h.RetryInterval) * time.Second
}

// Watch returns WatchInterval as a duration.
func (h *HeadlessConfig) Watch() time.Duration {
	return time.Duration(h.WatchInterval) * time.Second
}

// Retries returns the number of retries the runner should make.
// Auto-login disabled means a single attempt.
func (h *HeadlessConfig) Retries() int {
	if !h.AutoLogin {
		return 0
	}
	return h.MaxRetries
}
