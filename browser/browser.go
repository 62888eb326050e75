// Package browser defines the automation handle the login session drives
// and provides a Chrome implementation built on chromedp.
//
// Elements are always addressed by DOM id, which is all the captive
// portal's form requires.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrElementNotFound reports that an element did not appear in time.
	ErrElementNotFound = errors.New("element not found")
	// ErrDriverUnavailable reports that no browser binary could be started.
	// Retrying cannot help.
	ErrDriverUnavailable = errors.New("browser unavailable")
	// ErrHandleClosed is returned by operations on a closed handle.
	ErrHandleClosed = errors.New("browser handle closed")
)

// Options configure a browser instance.
type Options struct {
	// Headless hides the browser window.
	Headless bool
	// Flags are command-line switches such as "--disable-gpu" or
	// "--window-size=1280,800", applied after the defaults.
	Flags []string
}

// Driver starts browser instances.
type Driver interface {
	Open(ctx context.Context, opts Options) (Handle, error)
}

// Handle is one running browser with a single page. A handle is not safe
// for concurrent use.
type Handle interface {
	// Navigate loads url in the page.
	Navigate(ctx context.Context, url string) error
	// WaitPresent waits until the element exists in the DOM.
	WaitPresent(ctx context.Context, id string, timeout time.Duration) error
	// Click waits until the element is visible, then clicks it.
	Click(ctx context.Context, id string, timeout time.Duration) error
	// Clear empties an input element.
	Clear(ctx context.Context, id string) error
	// SendKeys types text into an element.
	SendKeys(ctx context.Context, id, text string) error
	// CurrentURL returns the page's location.
	CurrentURL(ctx context.Context) (string, error)
	// PageSource returns the serialized document.
	PageSource(ctx context.Context) (string, error)
	// Close releases the browser. Calling Close more than once is a no-op.
	Close() error
}
