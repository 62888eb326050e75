package portal

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/yllada/portal-login/common"
)

// errNoConnectivity is returned by the default probe when no host answers.
var errNoConnectivity = errors.New("no test host reachable")

// HealthState is the connectivity state observed by the Watchdog.
type HealthState int

const (
	HealthUnknown HealthState = iota
	HealthHealthy
	HealthDegraded
	HealthUnhealthy
)

// String returns a human-readable representation of the health state.
func (h HealthState) String() string {
	switch h {
	case HealthHealthy:
		return "Healthy"
	case HealthDegraded:
		return "Degraded"
	case HealthUnhealthy:
		return "Unhealthy"
	default:
		return "Unknown"
	}
}

// WatchConfig holds the settings of the connectivity watchdog.
type WatchConfig struct {
	// CheckInterval is how often connectivity is probed.
	CheckInterval time.Duration
	// FailureThreshold is how many consecutive failed probes make the
	// connection unhealthy and trigger a new login.
	FailureThreshold int
	// TestHosts are dialed over TCP; one answer is enough.
	TestHosts []string
	// DialTimeout bounds each dial.
	DialTimeout time.Duration
}

// DefaultWatchConfig returns the watchdog defaults.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		CheckInterval:    30 * time.Second,
		FailureThreshold: 3,
		TestHosts: []string{
			"1.1.1.1:53",
			"8.8.8.8:53",
			"208.67.222.222:53",
		},
		DialTimeout: 5 * time.Second,
	}
}

// Probe checks connectivity and returns its latency.
type Probe func(ctx context.Context) (time.Duration, error)

// Health is a snapshot of the watchdog's view.
type Health struct {
	State            HealthState
	LastCheck        time.Time
	LastSuccess      time.Time
	ConsecutiveFails int
	Relogins         int
	Latency          time.Duration
}

// Watchdog probes connectivity after a login and logs in again once the
// portal session has evidently expired.
type Watchdog struct {
	mu      sync.RWMutex
	config  WatchConfig
	probe   Probe
	relogin func(ctx context.Context) (Outcome, error)
	health  Health

	onHealthChange func(oldState, newState HealthState)
	onRelogin      func(outcome Outcome, err error)
}

// NewWatchdog creates a watchdog that calls relogin when connectivity is
// lost.
func NewWatchdog(config WatchConfig, relogin func(ctx context.Context) (Outcome, error)) *Watchdog {
	w := &Watchdog{
		config:  config,
		relogin: relogin,
	}
	w.probe = w.dialHosts
	return w
}

// SetOnHealthChange sets a callback for health state changes.
func (w *Watchdog) SetOnHealthChange(callback func(oldState, newState HealthState)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onHealthChange = callback
}

// SetOnRelogin sets a callback invoked after each triggered login.
func (w *Watchdog) SetOnRelogin(callback func(outcome Outcome, err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRelogin = callback
}

// Health returns a copy of the current health.
func (w *Watchdog) Health() Health {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.health
}

// Run probes every CheckInterval until ctx is done. It returns the error
// of a relogin that cannot succeed (no browser, no credentials) and nil
// on cancellation.
func (w *Watchdog) Run(ctx context.Context) error {
	interval := w.config.CheckInterval
	if interval <= 0 {
		interval = DefaultWatchConfig().CheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	common.LogInfo("Connectivity watchdog started (interval: %v)", interval)
	defer common.LogInfo("Connectivity watchdog stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Check(ctx); err != nil {
				return err
			}
		}
	}
}

// Check probes once and logs in again when the threshold is reached.
func (w *Watchdog) Check(ctx context.Context) error {
	latency, err := w.probe(ctx)

	w.mu.Lock()
	h := &w.health
	h.LastCheck = time.Now()
	oldState := h.State

	if err != nil {
		h.ConsecutiveFails++
		h.Latency = 0
		common.LogWarn("Connectivity check failed (%d/%d): %v",
			h.ConsecutiveFails, w.config.FailureThreshold, err)
		if h.ConsecutiveFails >= w.config.FailureThreshold {
			h.State = HealthUnhealthy
		} else {
			h.State = HealthDegraded
		}
	} else {
		h.ConsecutiveFails = 0
		h.LastSuccess = h.LastCheck
		h.Latency = latency
		h.State = HealthHealthy
	}
	newState := h.State
	onChange := w.onHealthChange
	w.mu.Unlock()

	if oldState != newState {
		common.LogInfo("Connectivity changed: %s -> %s", oldState, newState)
		if onChange != nil {
			onChange(oldState, newState)
		}
	}

	if newState != HealthUnhealthy {
		return nil
	}
	return w.reloginNow(ctx)
}

func (w *Watchdog) reloginNow(ctx context.Context) error {
	common.LogInfo("Connectivity lost, logging in again")
	outcome, err := w.relogin(ctx)

	w.mu.Lock()
	w.health.Relogins++
	oldState := w.health.State
	if outcome.OK() {
		w.health.ConsecutiveFails = 0
		w.health.State = HealthHealthy
	}
	newState := w.health.State
	onChange := w.onHealthChange
	callback := w.onRelogin
	w.mu.Unlock()

	if oldState != newState {
		common.LogInfo("Connectivity changed: %s -> %s", oldState, newState)
		if onChange != nil {
			onChange(oldState, newState)
		}
	}
	if callback != nil {
		callback(outcome, err)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrCancelled), errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, common.ErrAttemptInProgress):
		common.LogDebug("Login already in progress, skipping")
		return nil
	default:
		return err
	}
}

// dialHosts tries each test host until one accepts a TCP connection.
func (w *Watchdog) dialHosts(ctx context.Context) (time.Duration, error) {
	dialer := net.Dialer{Timeout: w.config.DialTimeout}
	for _, host := range w.config.TestHosts {
		start := time.Now()
		conn, err := dialer.DialContext(ctx, "tcp", host)
		if err == nil {
			conn.Close()
			return time.Since(start), nil
		}
	}
	return 0, errNoConnectivity
}
