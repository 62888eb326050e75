// Package cli provides the command-line side of Portal Login: the
// unattended headless runner and maintenance commands that work without
// the terminal UI.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/yllada/portal-login/common"
	"github.com/yllada/portal-login/config"
	"github.com/yllada/portal-login/history"
	"github.com/yllada/portal-login/notify"
	"github.com/yllada/portal-login/portal"
)

// CLI represents the command-line interface.
type CLI struct {
	manager *portal.Manager
	journal history.Journal

	out          io.Writer
	in           io.Reader
	now          func() time.Time
	readPassword func() (string, error)
}

// New creates a CLI driving manager. journal may be nil.
func New(manager *portal.Manager, journal history.Journal) *CLI {
	c := &CLI{
		manager: manager,
		journal: journal,
		out:     os.Stdout,
		in:      os.Stdin,
		now:     time.Now,
	}
	c.readPassword = c.promptPassword
	return c
}

// HeadlessOptions configures an unattended run.
type HeadlessOptions struct {
	Settings *config.HeadlessConfig
	Login    portal.LoginConfig
	// Username overrides the remembered username.
	Username string
	// Notifier receives the final outcome when Settings.Notify is set.
	Notifier common.Notifier
	// Watch overrides the connectivity watchdog settings. The interval
	// comes from Settings.
	Watch *portal.WatchConfig
}

// Headless logs in without a UI, retrying per the headless settings, and
// prints the timestamped outcome. A failed login is reported, not
// returned: the error is non-nil only when the run cannot start (no
// credentials, no browser).
func (c *CLI) Headless(ctx context.Context, opts HeadlessOptions) error {
	hc := opts.Settings
	if hc == nil {
		hc = config.DefaultHeadlessConfig()
	}
	login := opts.Login
	login.Headless = true
	login.ExtraFlags = append([]string(nil), hc.ChromeOptions...)

	req := portal.LoginRequest{
		Username:   opts.Username,
		RememberMe: c.manager.Settings().RememberMe,
		Config:     login,
	}
	policy := portal.NewRetryPolicy(hc.Retries(), hc.Interval())

	c.manager.SetOnRetry(func(attempt int, wait time.Duration) {
		c.printf("Attempt %d failed, retrying in %s", attempt, formatDuration(wait))
	})

	common.LogInfo("Starting headless login")
	outcome, err := c.loginOnce(ctx, req, policy, hc, opts.Notifier)
	if err != nil {
		return err
	}

	if hc.Watch() <= 0 || ctx.Err() != nil {
		return nil
	}
	if !outcome.OK() {
		common.LogWarn("Not watching connectivity: login did not succeed")
		return nil
	}

	watch := portal.DefaultWatchConfig()
	if opts.Watch != nil {
		watch = *opts.Watch
	}
	watch.CheckInterval = hc.Watch()

	watchdog := portal.NewWatchdog(watch, func(ctx context.Context) (portal.Outcome, error) {
		return c.loginOnce(ctx, req, policy, hc, opts.Notifier)
	})
	watchdog.SetOnHealthChange(func(oldState, newState portal.HealthState) {
		if newState == portal.HealthUnhealthy {
			c.printf("Connectivity lost")
		}
	})
	return watchdog.Run(ctx)
}

// loginOnce runs one scheduled login and reports it. Cancellation is
// reported as the last outcome.
func (c *CLI) loginOnce(ctx context.Context, req portal.LoginRequest, policy portal.RetryPolicy, hc *config.HeadlessConfig, n common.Notifier) (portal.Outcome, error) {
	outcome, err := c.manager.LoginWithRetry(ctx, req, policy)
	switch {
	case errors.Is(err, common.ErrCancelled):
		c.printf("Cancelled: %s", outcome.Message())
		return outcome, nil
	case err != nil:
		return outcome, err
	}

	c.printf("%s", outcome.Message())
	if hc.Notify {
		notify.Outcome(n, outcome)
	}
	return outcome, nil
}

// printf writes a timestamped line.
func (c *CLI) printf(format string, args ...interface{}) {
	stamp := c.now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(c.out, "[%s] %s\n", stamp, fmt.Sprintf(format, args...))
}

// History prints the most recent login attempts.
func (c *CLI) History(ctx context.Context, limit int) error {
	if c.journal == nil {
		return errors.New("history is not available")
	}
	entries, err := c.journal.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No login attempts recorded.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tUSER\tOUTCOME\tATTEMPT\tDURATION\tMODE\tREASON")
	fmt.Fprintln(w, "----\t----\t-------\t-------\t--------\t----\t------")

	for _, e := range entries {
		mode := "ui"
		if e.Headless {
			mode = "headless"
		}
		reason := e.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			common.MaskUsername(e.Username),
			e.Outcome,
			e.Attempt,
			formatDuration(e.Duration),
			mode,
			reason,
		)
	}

	return w.Flush()
}

// Forget removes the saved credentials of username, or of the remembered
// user when username is empty.
func (c *CLI) Forget(username string) error {
	if err := c.manager.Forget(username); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "✓ Saved credentials removed")
	return nil
}

// SavePassword prompts for a password and stores it for username, or for
// the remembered user.
func (c *CLI) SavePassword(username string) error {
	if username == "" {
		username = c.manager.Settings().Username
	}
	if username == "" {
		return fmt.Errorf("%w: use --user to name the account", common.ErrCredentialsNotFound)
	}

	fmt.Fprintf(c.out, "Password for %s: ", username)
	password, err := c.readPassword()
	fmt.Fprintln(c.out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("%w: empty password", common.ErrInvalidValue)
	}

	creds := portal.Credentials{Username: username, Password: password}
	if err := c.manager.SaveCredentials(creds); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "✓ Password saved for %s\n", username)
	return nil
}

// promptPassword reads a password without echo from a terminal, or a
// line from a pipe.
func (c *CLI) promptPassword() (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// PrintHelp prints CLI usage help.
func PrintHelp() {
	fmt.Println(`Portal Login - captive portal login

Usage:
  portal-login [OPTIONS]

Options:
  --mini            Compact terminal UI (default)
  --full            Terminal UI with settings
  --headless        Log in without a UI, retrying per headless_config.json
  --user NAME       Account to use instead of the remembered one
  --history         Show recent login attempts
  --forget          Remove saved credentials
  --save-password   Store a password for --user or the remembered user
  --config-dir DIR  Use DIR instead of ~/.config/portal-login
  --version         Show version and exit
  --verbose         Enable verbose logging
  --help            Show this help message

Examples:
  portal-login --save-password --user alice
  portal-login --headless
  portal-login --history

Notes:
  - Headless mode needs a saved password (--save-password or "Remember me")
  - The portal address and page markers can be changed in portal.yaml`)
}
