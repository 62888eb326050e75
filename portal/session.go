package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yllada/portal-login/browser"
	"github.com/yllada/portal-login/common"
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TryOptional runs an action on an element that may legitimately be
// absent. It reports whether the action ran. ErrElementNotFound is not an
// error; anything else is returned.
func TryOptional(action func() error) (bool, error) {
	err := action()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, browser.ErrElementNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Session performs single login attempts through a browser driver.
// Attempts on one Session must not overlap.
type Session struct {
	driver browser.Driver
	sleep  Sleeper

	mu       sync.RWMutex
	onStatus common.StatusFunc
}

// NewSession returns a session opening browsers through driver.
func NewSession(driver browser.Driver) *Session {
	return &Session{
		driver: driver,
		sleep:  sleepContext,
	}
}

// SetStatusHandler sets the observer for progress updates.
func (s *Session) SetStatusHandler(fn common.StatusFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = fn
}

func (s *Session) status(message string, progress int) {
	common.LogInfo("%s", message)

	s.mu.RLock()
	fn := s.onStatus
	s.mu.RUnlock()
	if fn != nil {
		fn(message, progress)
	}
}

// Attempt opens a browser, submits creds to the portal described by cfg
// and classifies the result. The browser is closed before Attempt returns.
//
// Failures are reported through the Outcome. The error is non-nil only
// when no browser can be started at all (browser.ErrDriverUnavailable).
func (s *Session) Attempt(ctx context.Context, cfg LoginConfig, creds Credentials) (Outcome, error) {
	s.status("Initializing connection...", common.ProgressInit)

	handle, err := s.driver.Open(ctx, browser.Options{
		Headless: cfg.Headless,
		Flags:    cfg.ExtraFlags,
	})
	if err != nil {
		if errors.Is(err, browser.ErrDriverUnavailable) {
			s.status("Error: browser unavailable", common.ProgressNone)
			return UnknownFailure(common.TruncateReason(err.Error())), err
		}
		return s.finish(UnknownFailure(common.TruncateReason(err.Error()))), nil
	}
	defer func() {
		if err := handle.Close(); err != nil {
			common.LogWarn("Error closing browser: %v", err)
		}
	}()

	outcome, err := s.drive(ctx, handle, cfg, creds)
	if err != nil {
		common.LogDebug("Full error: %v", err)
		outcome = UnknownFailure(common.TruncateReason(err.Error()))
	}
	return s.finish(outcome), nil
}

// drive runs the interaction sequence. An error means something
// unexpected happened; expected failures come back as outcomes.
func (s *Session) drive(ctx context.Context, h browser.Handle, cfg LoginConfig, creds Credentials) (Outcome, error) {
	s.status("Connecting to login page...", common.ProgressNavigate)
	if err := h.Navigate(ctx, cfg.TargetURL); err != nil {
		if ctx.Err() != nil {
			return Outcome{}, err
		}
		return ConnectionError("login page unreachable: " + common.TruncateReason(err.Error())), nil
	}

	if cfg.CertificateBypass {
		if err := s.bypassCertificate(ctx, h, cfg); err != nil {
			return Outcome{}, err
		}
	}

	s.status(fmt.Sprintf("Authenticating %s", common.MaskUsername(creds.Username)), common.ProgressAuthenticate)

	switch err := h.WaitPresent(ctx, cfg.Elements.Username, cfg.ElementTimeout); {
	case errors.Is(err, browser.ErrElementNotFound):
		return ConnectionError("login page elements not found"), nil
	case err != nil:
		return Outcome{}, err
	}
	if err := fill(ctx, h, cfg.Elements.Username, creds.Username); err != nil {
		if errors.Is(err, browser.ErrElementNotFound) {
			return ConnectionError("login page elements not found"), nil
		}
		return Outcome{}, err
	}
	if err := fill(ctx, h, cfg.Elements.Password, creds.Password); err != nil {
		if errors.Is(err, browser.ErrElementNotFound) {
			return ConnectionError("login form elements not found"), nil
		}
		return Outcome{}, err
	}

	s.status("Submitting credentials...", common.ProgressSubmit)
	if err := h.Click(ctx, cfg.Elements.Submit, common.ActionTimeout); err != nil {
		return Outcome{}, err
	}

	if err := s.sleep(ctx, cfg.SettleDelay); err != nil {
		return Outcome{}, err
	}

	current, err := h.CurrentURL(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if cfg.isProcessing(current) {
		common.LogDebug("Portal is processing (%s), waiting", current)
		if err := s.sleep(ctx, cfg.ProcessingWait); err != nil {
			return Outcome{}, err
		}
		if current, err = h.CurrentURL(ctx); err != nil {
			return Outcome{}, err
		}
		if cfg.isTarget(current) {
			return RedirectLoop(), nil
		}
	}

	source, err := h.PageSource(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if current, err = h.CurrentURL(ctx); err != nil {
		return Outcome{}, err
	}
	return classify(cfg, creds.Username, source, current), nil
}

// bypassCertificate clicks through the TLS interstitial when it is shown.
func (s *Session) bypassCertificate(ctx context.Context, h browser.Handle, cfg LoginConfig) error {
	s.status("Handling security certificates...", common.ProgressCertificates)

	details, err := TryOptional(func() error {
		return h.Click(ctx, cfg.Elements.DetailsButton, cfg.InterstitialTimeout)
	})
	if err != nil {
		return err
	}
	if !details {
		s.status("No certificate bypass needed", common.ProgressCertDone)
		return nil
	}

	proceed, err := TryOptional(func() error {
		return h.Click(ctx, cfg.Elements.ProceedLink, cfg.InterstitialTimeout)
	})
	if err != nil {
		return err
	}
	if proceed {
		s.status("Certificate bypass successful", common.ProgressCertDone)
	} else {
		common.LogWarn("Certificate warning has no #%s link", cfg.Elements.ProceedLink)
		s.status("Certificate warning shown, proceed link missing", common.ProgressCertDone)
	}
	return nil
}

func fill(ctx context.Context, h browser.Handle, id, text string) error {
	if err := h.Clear(ctx, id); err != nil {
		return err
	}
	return h.SendKeys(ctx, id, text)
}

// classify maps the page after submission to an outcome. Markers are
// checked before URLs because the portal's boilerplate can contain both.
func classify(cfg LoginConfig, username, source, current string) Outcome {
	switch {
	case strings.Contains(source, cfg.authFailureText(username)):
		return InvalidCredentials()
	case cfg.AlreadyLoggedInMarker != "" && strings.Contains(source, cfg.AlreadyLoggedInMarker):
		return AlreadyLoggedIn()
	case cfg.isSuccess(current):
		return Success()
	case cfg.isTarget(current):
		return UnknownFailure("still on login page")
	default:
		return UnknownFailure("unexpected redirect to " + current)
	}
}

func (s *Session) finish(outcome Outcome) Outcome {
	switch outcome.Kind {
	case KindSuccess:
		s.status("Login successful!", common.ProgressDone)
	case KindAlreadyLoggedIn:
		s.status("Already logged in", common.ProgressDone)
	default:
		s.status("Error: "+outcome.Message(), common.ProgressNone)
	}
	return outcome
}
