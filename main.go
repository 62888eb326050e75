// Package main provides the entry point for Portal Login.
// Portal Login signs a workstation into a captive portal by driving a
// real browser through the portal's login form, from a terminal UI or
// unattended.
//
// Features:
//   - Compact and full terminal interfaces
//   - Headless mode with retries for login scripts and timers
//   - Secure credential storage using the system keyring
//   - Login history and optional Prometheus metrics
//
// Usage:
//
//	portal-login [options]
//
// Environment:
//
//	The application requires Google Chrome or Chromium to be installed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yllada/portal-login/browser"
	"github.com/yllada/portal-login/cli"
	"github.com/yllada/portal-login/common"
	"github.com/yllada/portal-login/config"
	"github.com/yllada/portal-login/history"
	"github.com/yllada/portal-login/keyring"
	"github.com/yllada/portal-login/metrics"
	"github.com/yllada/portal-login/notify"
	"github.com/yllada/portal-login/portal"
	"github.com/yllada/portal-login/tui"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

var (
	// UI/General flags
	miniMode    = flag.Bool("mini", false, "Compact terminal UI (default)")
	fullMode    = flag.Bool("full", false, "Terminal UI with settings")
	showVersion = flag.Bool("version", false, "Show version and exit")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	showHelp    = flag.Bool("help", false, "Show help message")
	configDir   = flag.String("config-dir", "", "Configuration directory")

	// CLI flags
	headlessMode = flag.Bool("headless", false, "Log in without a UI")
	username     = flag.String("user", "", "Account to use")
	showHistory  = flag.Bool("history", false, "Show recent login attempts")
	forget       = flag.Bool("forget", false, "Remove saved credentials")
	savePassword = flag.Bool("save-password", false, "Store a password")
)

// historyLimit is the number of attempts --history shows.
const historyLimit = 20

func main() {
	flag.Parse()

	if *showHelp {
		cli.PrintHelp()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("Portal Login v%s\n", appVersion)
		if buildTime != "unknown" {
			fmt.Printf("  Build:  %s\n", buildTime)
			fmt.Printf("  Commit: %s\n", commitSHA)
		}
		os.Exit(0)
	}

	if *configDir != "" {
		common.SetConfigDir(*configDir)
	}

	logLevel := common.LevelInfo
	if *verbose {
		logLevel = common.LevelDebug
	}
	interactive := !*headlessMode && !*showHistory && !*forget && !*savePassword

	if err := common.InitLogger(common.LogConfig{
		Level:       logLevel,
		EnableFile:  true,
		MaxFileSize: 5 * 1024 * 1024, // 5MB
		MaxBackups:  5,
		Quiet:       interactive,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	setupSignalHandler(cancel)

	code := run(ctx)
	cancel()
	common.CloseLogger()
	os.Exit(code)
}

// run wires the application and returns the exit code.
func run(ctx context.Context) int {
	settings, err := config.Load()
	if err != nil {
		return fail(err)
	}
	portalCfg, err := config.LoadPortal()
	if err != nil {
		return fail(err)
	}

	secrets, err := keyring.New()
	if err != nil {
		return fail(fmt.Errorf("%w: %v", common.ErrCredentialStorage, err))
	}

	journal, err := history.OpenDefault()
	if err != nil {
		common.LogWarn("Login history disabled: %v", err)
	}
	var j history.Journal
	if journal != nil {
		j = journal
		defer journal.Close()
	}

	var hc *config.HeadlessConfig
	if *headlessMode {
		if hc, err = config.LoadHeadless(); err != nil {
			return fail(err)
		}
	}

	var recorder metrics.Recorder = metrics.NewNoop()
	if hc != nil && hc.MetricsAddr != "" {
		prom := metrics.NewPrometheusRecorder()
		srv, err := metrics.Serve(hc.MetricsAddr, prom)
		if err != nil {
			return fail(err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		common.LogInfo("Serving metrics on %s", srv.Addr())
		recorder = prom
	}

	driver := newDriver(portalCfg)
	manager := portal.NewManager(portal.ManagerDeps{
		Driver:   driver,
		Secrets:  secrets,
		Settings: settings,
		Journal:  j,
		Metrics:  recorder,
	})
	app := cli.New(manager, j)

	switch {
	case *showHistory:
		return exitCode(app.History(ctx, historyLimit))
	case *forget:
		return exitCode(app.Forget(*username))
	case *savePassword:
		return exitCode(app.SavePassword(*username))
	}

	if err := driver.Available(); err != nil {
		common.LogError("No browser found: %v", err)
		fmt.Fprintln(os.Stderr, "Error: Google Chrome or Chromium is not installed on the system.")
		return 1
	}

	if *headlessMode {
		common.LogInfo("Starting %s v%s (headless)", common.AppName, appVersion)
		opts := cli.HeadlessOptions{
			Settings: hc,
			Login:    portal.NewLoginConfig(portalCfg, true, nil),
			Username: *username,
		}
		if hc.Notify {
			if n, err := notify.NewDBusNotifier(); err != nil {
				common.LogWarn("Desktop notifications unavailable: %v", err)
			} else {
				defer n.Close()
				opts.Notifier = n
			}
		}
		return exitCode(app.Headless(ctx, opts))
	}

	if *miniMode && *fullMode {
		common.LogWarn("Both --mini and --full given, using --full")
	}

	common.LogInfo("Starting %s v%s", common.AppName, appVersion)
	login := portal.NewLoginConfig(portalCfg, settings.HeadlessMode, nil)
	if err := tui.Run(ctx, tui.ParseMode(*fullMode), manager, login); err != nil {
		return fail(err)
	}
	return 0
}

// newDriver builds the browser driver, honouring chrome_path from
// portal.yaml.
func newDriver(p *config.Portal) *browser.ChromeDriver {
	if p.ChromePath != "" {
		common.LogDebug("Using browser at %s", p.ChromePath)
	}
	return browser.NewChromeDriver(p.ChromePath)
}

// exitCode reports err and maps it to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, browser.ErrDriverUnavailable) {
		fmt.Fprintln(os.Stderr, "Error: could not start the browser.")
	}
	return fail(err)
}

func fail(err error) int {
	common.LogError("%v", err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// setupSignalHandler configures graceful shutdown on SIGINT/SIGTERM.
// When a signal is received, it cancels the context to allow cleanup.
func setupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		common.LogInfo("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	}()
}
