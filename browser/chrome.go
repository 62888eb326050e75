package browser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/yllada/portal-login/common"
)

// navigationTimeout bounds a page load.
const navigationTimeout = 30 * time.Second

// chromeCandidates are the binaries chromedp looks for, in its order.
var chromeCandidates = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// ChromeDriver launches Chrome or Chromium through the DevTools protocol.
type ChromeDriver struct {
	// ExecPath selects a browser binary. Empty means search the PATH.
	ExecPath string
	// Logf and Errorf receive chromedp's diagnostics. Nil discards them.
	Logf   func(string, ...interface{})
	Errorf func(string, ...interface{})
}

// NewChromeDriver returns a driver wired to the application logger.
func NewChromeDriver(execPath string) *ChromeDriver {
	logger := common.GetLogger()
	return &ChromeDriver{
		ExecPath: execPath,
		Logf:     logger.Logf(common.LevelDebug),
		Errorf:   logger.Logf(common.LevelWarn),
	}
}

// Available reports whether a browser binary can be found.
func (d *ChromeDriver) Available() error {
	if d.ExecPath != "" {
		if _, err := exec.LookPath(d.ExecPath); err != nil {
			return fmt.Errorf("%w: %v", ErrDriverUnavailable, err)
		}
		return nil
	}
	for _, name := range chromeCandidates {
		if _, err := exec.LookPath(name); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: no Chrome or Chromium found in PATH", ErrDriverUnavailable)
}

// Open starts a browser and returns a handle to its first tab.
func (d *ChromeDriver) Open(ctx context.Context, opts Options) (Handle, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, d.allocatorOptions(opts)...)

	var ctxOpts []chromedp.ContextOption
	if d.Logf != nil {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(d.Logf))
	}
	if d.Errorf != nil {
		ctxOpts = append(ctxOpts, chromedp.WithErrorf(d.Errorf))
	}
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, ctxOpts...)

	// An empty Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrDriverUnavailable, err)
		}
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	return &chromeHandle{
		ctx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}, nil
}

func (d *ChromeDriver) allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if d.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(d.ExecPath))
	}
	for _, raw := range opts.Flags {
		name, value, ok := parseFlag(raw)
		if !ok {
			continue
		}
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}
	return allocOpts
}

// parseFlag splits "--name=value" into its parts. A bare "--name" is a
// boolean switch.
func parseFlag(raw string) (string, interface{}, bool) {
	raw = strings.TrimSpace(raw)
	name := strings.TrimLeft(raw, "-")
	if name == "" {
		return "", nil, false
	}
	if k, v, found := strings.Cut(name, "="); found {
		return k, v, true
	}
	return name, true, true
}

type chromeHandle struct {
	ctx       context.Context
	cancel    func()
	closeOnce sync.Once
	closeErr  error
	mu        sync.Mutex
	closed    bool
}

// run executes actions in the browser, bounded by timeout and by the
// caller's ctx.
func (h *chromeHandle) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrHandleClosed
	}

	runCtx, cancel := context.WithTimeout(h.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// runElement is run for element lookups: running out of time means the
// element is not there.
func (h *chromeHandle) runElement(ctx context.Context, id string, timeout time.Duration, actions ...chromedp.Action) error {
	err := h.run(ctx, timeout, actions...)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: #%s", ErrElementNotFound, id)
	}
	return err
}

func (h *chromeHandle) Navigate(ctx context.Context, url string) error {
	err := h.run(ctx, navigationTimeout, chromedp.Navigate(url))
	if isCertificateError(err) {
		// Chrome rendered its certificate interstitial, which the
		// session can click through.
		return nil
	}
	return err
}

func (h *chromeHandle) WaitPresent(ctx context.Context, id string, timeout time.Duration) error {
	return h.runElement(ctx, id, timeout, chromedp.WaitReady(id, chromedp.ByID))
}

func (h *chromeHandle) Click(ctx context.Context, id string, timeout time.Duration) error {
	return h.runElement(ctx, id, timeout, chromedp.Click(id, chromedp.ByID, chromedp.NodeVisible))
}

func (h *chromeHandle) Clear(ctx context.Context, id string) error {
	return h.runElement(ctx, id, common.ActionTimeout, chromedp.Clear(id, chromedp.ByID))
}

func (h *chromeHandle) SendKeys(ctx context.Context, id, text string) error {
	return h.runElement(ctx, id, common.ActionTimeout, chromedp.SendKeys(id, text, chromedp.ByID))
}

func (h *chromeHandle) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := h.run(ctx, common.ActionTimeout, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

func (h *chromeHandle) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := h.run(ctx, common.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (h *chromeHandle) Close() error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()

		h.closeErr = chromedp.Cancel(h.ctx)
		h.cancel()
	})
	return h.closeErr
}

func isCertificateError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ERR_CERT_")
}
