package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yllada/portal-login/browser"
	"github.com/yllada/portal-login/common"
	"github.com/yllada/portal-login/config"
	"github.com/yllada/portal-login/history"
	"github.com/yllada/portal-login/metrics"
)

// Re-exported from common for callers of this package.
var (
	ErrAttemptInProgress   = common.ErrAttemptInProgress
	ErrNotConnected        = common.ErrNotConnected
	ErrCredentialsNotFound = common.ErrCredentialsNotFound
)

// LoginRequest is one login requested by a front end. Empty Username or
// Password are filled from the saved settings and the secret store.
type LoginRequest struct {
	Username   string
	Password   string
	RememberMe bool
	Config     LoginConfig
}

// State is the connection state seen by the manager.
type State struct {
	Connected bool
	Username  string
	Since     time.Time
	Last      Outcome
}

// ManagerDeps are the collaborators of a Manager. Journal and Metrics
// are optional.
type ManagerDeps struct {
	Driver   browser.Driver
	Secrets  common.SecretStore
	Settings *config.Config
	Journal  history.Journal
	Metrics  metrics.Recorder
}

// Manager coordinates login attempts: it resolves credentials, runs the
// session through the scheduler, persists remembered credentials and
// tracks whether the portal session is active.
type Manager struct {
	session   *Session
	scheduler *Scheduler
	secrets   common.SecretStore
	settings  *config.Config
	journal   history.Journal
	recorder  metrics.Recorder

	saveSettings func(*config.Config) error
	now          func() time.Time

	// settingsMu serializes changes to settings and their save.
	settingsMu sync.Mutex

	// attemptMu is held for the duration of a login.
	attemptMu sync.Mutex

	mu       sync.RWMutex
	state    State
	headless bool
	attempt  int
}

// NewManager creates a login manager.
func NewManager(deps ManagerDeps) *Manager {
	m := &Manager{
		session:      NewSession(deps.Driver),
		secrets:      deps.Secrets,
		settings:     deps.Settings,
		journal:      deps.Journal,
		recorder:     deps.Metrics,
		saveSettings: (*config.Config).Save,
		now:          time.Now,
	}
	if m.settings == nil {
		m.settings = config.DefaultConfig()
	}
	if m.recorder == nil {
		m.recorder = metrics.NewNoop()
	}

	m.scheduler = NewScheduler(AttempterFunc(m.attemptOnce))
	m.scheduler.SetOnRetry(func(int, time.Duration) {
		m.recorder.RecordRetry()
	})
	return m
}

// Settings returns the user settings the manager reads and updates.
func (m *Manager) Settings() *config.Config {
	return m.settings
}

// SetStatusHandler sets the observer for progress updates.
func (m *Manager) SetStatusHandler(fn common.StatusFunc) {
	m.session.SetStatusHandler(fn)
}

// SetOnRetry sets a callback invoked before each retry wait.
func (m *Manager) SetOnRetry(fn func(attempt int, wait time.Duration)) {
	m.scheduler.SetOnRetry(func(attempt int, wait time.Duration) {
		m.recorder.RecordRetry()
		if fn != nil {
			fn(attempt, wait)
		}
	})
}

// Login performs a single attempt.
func (m *Manager) Login(ctx context.Context, req LoginRequest) (Outcome, error) {
	return m.LoginWithRetry(ctx, req, SingleAttempt)
}

// LoginWithRetry attempts the login under policy. Only one login runs at a
// time; a concurrent call fails with ErrAttemptInProgress.
func (m *Manager) LoginWithRetry(ctx context.Context, req LoginRequest, policy RetryPolicy) (Outcome, error) {
	if !m.attemptMu.TryLock() {
		return Outcome{}, ErrAttemptInProgress
	}
	defer m.attemptMu.Unlock()

	creds, err := m.ResolveCredentials(req.Username, req.Password)
	if err != nil {
		m.session.status("Missing credentials", common.ProgressNone)
		return Outcome{}, err
	}

	m.mu.Lock()
	m.headless = req.Config.Headless
	m.attempt = 0
	m.mu.Unlock()

	common.LogInfo("Starting login for %s", common.MaskUsername(creds.Username))
	outcome, err := m.scheduler.Run(ctx, req.Config, creds, policy)

	m.mu.Lock()
	m.state.Last = outcome
	m.mu.Unlock()

	if err != nil {
		return outcome, err
	}
	if outcome.OK() {
		m.markConnected(creds.Username)
		m.persist(creds, req.RememberMe)
	}
	return outcome, nil
}

// attemptOnce runs one session attempt and records it.
func (m *Manager) attemptOnce(ctx context.Context, cfg LoginConfig, creds Credentials) (Outcome, error) {
	m.mu.Lock()
	m.attempt++
	n := m.attempt
	headless := m.headless
	m.mu.Unlock()

	id := common.GenerateID()
	started := m.now()
	outcome, err := m.session.Attempt(ctx, cfg, creds)
	elapsed := m.now().Sub(started)

	common.LogInfo("Attempt %s finished in %v: %s", id[:8], elapsed.Round(time.Millisecond), outcome)
	m.recorder.RecordAttempt(outcome.Kind.String(), elapsed)

	if m.journal != nil {
		entry := history.Entry{
			ID:        id,
			Username:  creds.Username,
			Outcome:   outcome.Kind.String(),
			Reason:    outcome.Reason,
			Attempt:   n,
			Headless:  headless,
			StartedAt: started,
			Duration:  elapsed,
		}
		// The journal outlives a cancelled attempt.
		if jerr := m.journal.Record(context.WithoutCancel(ctx), entry); jerr != nil {
			common.LogWarn("Failed to record attempt: %v", jerr)
		}
	}
	return outcome, err
}

// ResolveCredentials completes username and password from the saved
// settings and the secret store.
func (m *Manager) ResolveCredentials(username, password string) (Credentials, error) {
	if username == "" {
		username = m.savedUsername()
	}
	if username == "" {
		return Credentials{}, fmt.Errorf("%w: no username", ErrCredentialsNotFound)
	}
	if password == "" {
		saved, err := m.SavedPassword(username)
		if err != nil {
			return Credentials{}, err
		}
		password = saved
	}
	return Credentials{Username: username, Password: password}, nil
}

// SavedPassword returns the stored password for username. Passwords found
// under a legacy service name are copied to the current one.
func (m *Manager) SavedPassword(username string) (string, error) {
	if m.secrets == nil {
		return "", fmt.Errorf("%w: no secret store", ErrCredentialsNotFound)
	}

	password, err := m.secrets.Get(common.KeyringService, username)
	if err == nil && password != "" {
		return password, nil
	}
	if err != nil {
		common.LogDebug("No saved password under %s: %v", common.KeyringService, err)
	}

	for _, service := range common.LegacyKeyringServices {
		password, err := m.secrets.Get(service, username)
		if err != nil || password == "" {
			continue
		}
		common.LogInfo("Migrating saved password from %s", service)
		if err := m.secrets.Set(common.KeyringService, username, password); err != nil {
			common.LogWarn("Failed to migrate saved password: %v", err)
		}
		return password, nil
	}
	return "", fmt.Errorf("%w: no saved password for %s", ErrCredentialsNotFound, common.MaskUsername(username))
}

// SaveCredentials stores creds and remembers the username.
func (m *Manager) SaveCredentials(creds Credentials) error {
	if !creds.Valid() {
		return fmt.Errorf("%w: username and password are required", common.ErrInvalidValue)
	}
	if m.secrets == nil {
		return common.ErrCredentialStorage
	}
	if err := m.secrets.Set(common.KeyringService, creds.Username, creds.Password); err != nil {
		return common.WrapError(common.ErrCredentialStorage, err.Error())
	}
	return m.UpdateSettings(func(c *config.Config) {
		c.Username = creds.Username
		c.RememberMe = true
	})
}

// UpdateSettings applies fn to the settings and saves them.
func (m *Manager) UpdateSettings(fn func(*config.Config)) error {
	m.settingsMu.Lock()
	defer m.settingsMu.Unlock()
	fn(m.settings)
	return m.saveSettings(m.settings)
}

func (m *Manager) savedUsername() string {
	m.settingsMu.Lock()
	defer m.settingsMu.Unlock()
	return m.settings.Username
}

// Forget removes the saved password of username under every service
// name and clears the remembered username.
func (m *Manager) Forget(username string) error {
	if username == "" {
		username = m.savedUsername()
	}
	if username == "" {
		return fmt.Errorf("%w: no username", ErrCredentialsNotFound)
	}

	removed := false
	if m.secrets != nil {
		services := append([]string{common.KeyringService}, common.LegacyKeyringServices...)
		for _, service := range services {
			if err := m.secrets.Delete(service, username); err == nil {
				removed = true
			}
		}
	}

	if m.savedUsername() == username {
		err := m.UpdateSettings(func(c *config.Config) {
			c.Username = ""
			c.RememberMe = false
			c.AutoLogin = false
		})
		if err != nil {
			return err
		}
		removed = true
	}
	if !removed {
		return fmt.Errorf("%w: nothing saved for %s", ErrCredentialsNotFound, common.MaskUsername(username))
	}
	common.LogInfo("Removed saved credentials for %s", common.MaskUsername(username))
	return nil
}

// persist saves or removes the credentials after an accepted login.
// Failures are logged; the login itself succeeded.
func (m *Manager) persist(creds Credentials, remember bool) {
	if !remember {
		if m.secrets != nil {
			if err := m.secrets.Delete(common.KeyringService, creds.Username); err != nil {
				common.LogDebug("No saved password removed: %v", err)
			}
		}
		return
	}

	if err := m.SaveCredentials(creds); err != nil {
		common.LogError("Failed to save credentials: %v", err)
	}
}

func (m *Manager) markConnected(username string) {
	m.mu.Lock()
	m.state.Connected = true
	m.state.Username = username
	m.state.Since = m.now()
	m.mu.Unlock()

	m.recorder.SetLoggedIn(true)
}

// Disconnect clears the connection state. The portal session itself is
// left to expire.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if !m.state.Connected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	user := m.state.Username
	m.state.Connected = false
	m.state.Since = time.Time{}
	m.mu.Unlock()

	m.recorder.SetLoggedIn(false)
	common.LogInfo("User %s manually disconnected", common.MaskUsername(user))
	return nil
}

// IsConnected reports whether the last login was accepted and not since
// disconnected.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Connected
}

// State returns a copy of the connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsDriverUnavailable reports whether err means no browser can be started.
func IsDriverUnavailable(err error) bool {
	return errors.Is(err, browser.ErrDriverUnavailable)
}
