package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yllada/portal-login/browser"
)

func TestHealthState_String(t *testing.T) {
	tests := []struct {
		state    HealthState
		expected string
	}{
		{HealthHealthy, "Healthy"},
		{HealthDegraded, "Degraded"},
		{HealthUnhealthy, "Unhealthy"},
		{HealthUnknown, "Unknown"},
		{HealthState(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("HealthState.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDefaultWatchConfig(t *testing.T) {
	config := DefaultWatchConfig()

	if config.CheckInterval != 30*time.Second {
		t.Errorf("CheckInterval = %v, want 30s", config.CheckInterval)
	}
	if config.FailureThreshold != 3 {
		t.Errorf("FailureThreshold = %v, want 3", config.FailureThreshold)
	}
	if len(config.TestHosts) == 0 {
		t.Error("TestHosts should not be empty")
	}
}

// scriptedProbe fails while down is true.
type scriptedProbe struct {
	down bool
}

func (p *scriptedProbe) probe(ctx context.Context) (time.Duration, error) {
	if p.down {
		return 0, errors.New("unreachable")
	}
	return 10 * time.Millisecond, nil
}

func TestWatchdog_ReloginAfterThreshold(t *testing.T) {
	relogins := 0
	w := NewWatchdog(WatchConfig{FailureThreshold: 2}, func(ctx context.Context) (Outcome, error) {
		relogins++
		return Success(), nil
	})
	p := &scriptedProbe{}
	w.probe = p.probe

	var transitions []HealthState
	w.SetOnHealthChange(func(oldState, newState HealthState) {
		transitions = append(transitions, newState)
	})

	ctx := context.Background()
	if err := w.Check(ctx); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got := w.Health().State; got != HealthHealthy {
		t.Fatalf("State = %v, want Healthy", got)
	}

	p.down = true
	if err := w.Check(ctx); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if relogins != 0 {
		t.Fatalf("relogins = %d after one failure, want 0", relogins)
	}
	if err := w.Check(ctx); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if relogins != 1 {
		t.Fatalf("relogins = %d, want 1", relogins)
	}

	h := w.Health()
	if h.ConsecutiveFails != 0 || h.Relogins != 1 {
		t.Errorf("Health = %+v, want fails reset and one relogin", h)
	}
	if h.State != HealthHealthy {
		t.Errorf("State = %v after an accepted relogin, want Healthy", h.State)
	}
	want := []HealthState{HealthHealthy, HealthDegraded, HealthUnhealthy, HealthHealthy}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestWatchdog_FailedReloginKeepsTrying(t *testing.T) {
	relogins := 0
	w := NewWatchdog(WatchConfig{FailureThreshold: 1}, func(ctx context.Context) (Outcome, error) {
		relogins++
		return ConnectionError("login page elements not found"), nil
	})
	w.probe = (&scriptedProbe{down: true}).probe

	for i := 0; i < 3; i++ {
		if err := w.Check(context.Background()); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}
	if relogins != 3 {
		t.Errorf("relogins = %d, want 3", relogins)
	}
}

func TestWatchdog_FatalReloginError(t *testing.T) {
	w := NewWatchdog(WatchConfig{FailureThreshold: 1}, func(ctx context.Context) (Outcome, error) {
		return Outcome{}, browser.ErrDriverUnavailable
	})
	w.probe = (&scriptedProbe{down: true}).probe

	err := w.Check(context.Background())
	if !errors.Is(err, browser.ErrDriverUnavailable) {
		t.Errorf("Check() error = %v, want ErrDriverUnavailable", err)
	}
}

func TestWatchdog_RunStopsOnCancel(t *testing.T) {
	w := NewWatchdog(WatchConfig{CheckInterval: time.Millisecond, FailureThreshold: 3}, func(ctx context.Context) (Outcome, error) {
		return Success(), nil
	})
	w.probe = (&scriptedProbe{}).probe

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
