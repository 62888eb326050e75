package portal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yllada/portal-login/common"
)

// Unbounded as RetryPolicy.MaxRetries retries until success or
// cancellation.
const Unbounded = -1

// Attempter performs one login attempt.
type Attempter interface {
	Attempt(ctx context.Context, cfg LoginConfig, creds Credentials) (Outcome, error)
}

// AttempterFunc adapts a function to the Attempter interface.
type AttempterFunc func(ctx context.Context, cfg LoginConfig, creds Credentials) (Outcome, error)

// Attempt calls f.
func (f AttempterFunc) Attempt(ctx context.Context, cfg LoginConfig, creds Credentials) (Outcome, error) {
	return f(ctx, cfg, creds)
}

// RetryPolicy bounds the retries after a failed first attempt.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	// Negative means Unbounded.
	MaxRetries int
	Interval   time.Duration
}

// SingleAttempt is the policy for interactive logins.
var SingleAttempt = RetryPolicy{}

// NewRetryPolicy converts the headless settings into a policy.
func NewRetryPolicy(maxRetries int, interval time.Duration) RetryPolicy {
	if interval < 0 {
		interval = 0
	}
	return RetryPolicy{MaxRetries: maxRetries, Interval: interval}
}

// Unbounded reports whether the policy never gives up on its own.
func (p RetryPolicy) Unbounded() bool {
	return p.MaxRetries < 0
}

// Result is delivered by Scheduler.Go when the run ends.
type Result struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

// Scheduler repeats attempts until one is accepted, the policy is
// exhausted or the context is cancelled.
type Scheduler struct {
	attempter Attempter
	sleep     Sleeper

	mu        sync.RWMutex
	onAttempt func(attempt int, outcome Outcome)
	onRetry   func(attempt int, wait time.Duration)
}

// NewScheduler returns a scheduler driving a.
func NewScheduler(a Attempter) *Scheduler {
	return &Scheduler{
		attempter: a,
		sleep:     sleepContext,
	}
}

// SetOnAttempt sets a callback invoked after every attempt.
func (s *Scheduler) SetOnAttempt(fn func(attempt int, outcome Outcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAttempt = fn
}

// SetOnRetry sets a callback invoked before each wait.
func (s *Scheduler) SetOnRetry(fn func(attempt int, wait time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRetry = fn
}

// Run attempts the login under policy and returns the last outcome. The
// error is non-nil when the attempter failed outright or ctx was cancelled
// (common.ErrCancelled); the outcome is then the last one observed.
func (s *Scheduler) Run(ctx context.Context, cfg LoginConfig, creds Credentials, policy RetryPolicy) (Outcome, error) {
	r := s.run(ctx, cfg, creds, policy)
	return r.Outcome, r.Err
}

// Go runs the scheduler in the background. The channel receives exactly
// one Result and is then closed.
func (s *Scheduler) Go(ctx context.Context, cfg LoginConfig, creds Credentials, policy RetryPolicy) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ch <- s.run(ctx, cfg, creds, policy)
	}()
	return ch
}

func (s *Scheduler) run(ctx context.Context, cfg LoginConfig, creds Credentials, policy RetryPolicy) Result {
	remaining := policy.MaxRetries

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			common.LogInfo("Login attempt %d", attempt)
		}

		outcome, err := s.attempter.Attempt(ctx, cfg, creds)
		if err != nil {
			return Result{Outcome: outcome, Attempts: attempt, Err: err}
		}
		s.attempted(attempt, outcome)

		if outcome.OK() {
			return Result{Outcome: outcome, Attempts: attempt}
		}
		if ctx.Err() != nil {
			return Result{Outcome: outcome, Attempts: attempt, Err: cancelled(ctx.Err())}
		}
		if !policy.Unbounded() && remaining <= 0 {
			if attempt > 1 {
				common.LogWarn("Giving up after %d attempts: %s", attempt, outcome.Message())
			}
			return Result{Outcome: outcome, Attempts: attempt}
		}
		remaining--

		common.LogInfo("%s. Retrying in %v", outcome.Message(), policy.Interval)
		s.retrying(attempt, policy.Interval)
		if err := s.sleep(ctx, policy.Interval); err != nil {
			return Result{Outcome: outcome, Attempts: attempt, Err: cancelled(err)}
		}
	}
}

func (s *Scheduler) attempted(attempt int, outcome Outcome) {
	s.mu.RLock()
	fn := s.onAttempt
	s.mu.RUnlock()
	if fn != nil {
		fn(attempt, outcome)
	}
}

func (s *Scheduler) retrying(attempt int, wait time.Duration) {
	s.mu.RLock()
	fn := s.onRetry
	s.mu.RUnlock()
	if fn != nil {
		fn(attempt, wait)
	}
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %v", common.ErrCancelled, err)
}
