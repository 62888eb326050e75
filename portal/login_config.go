package portal

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yllada/portal-login/common"
	"github.com/yllada/portal-login/config"
)

// Credentials identify the user to the portal.
type Credentials struct {
	Username string
	Password string
}

// Valid reports whether both fields are set.
func (c Credentials) Valid() bool {
	return c.Username != "" && c.Password != ""
}

// Elements are the DOM ids the session interacts with.
type Elements struct {
	Username      string
	Password      string
	Submit        string
	DetailsButton string
	ProceedLink   string
}

// URLMatcher decides whether a URL is the post-login destination.
type URLMatcher func(rawURL string) bool

// DomainMatcher matches URLs whose host is domain or one of its subdomains.
func DomainMatcher(domain string) URLMatcher {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
	return func(rawURL string) bool {
		u, err := url.Parse(rawURL)
		if err != nil || domain == "" {
			return false
		}
		host := strings.ToLower(u.Hostname())
		return host == domain || strings.HasSuffix(host, "."+domain)
	}
}

// LoginConfig describes one login attempt: the browser setup and the site
// contract used to classify the result. It is not modified by the session.
type LoginConfig struct {
	TargetURL         string
	Headless          bool
	ExtraFlags        []string
	CertificateBypass bool

	Elements Elements
	// AuthFailureMarker is a format string receiving the username.
	AuthFailureMarker     string
	AlreadyLoggedInMarker string
	// ProcessingPattern is a URL fragment of the portal's intermediate page.
	ProcessingPattern string
	SuccessMatcher    URLMatcher

	ElementTimeout      time.Duration
	InterstitialTimeout time.Duration
	SettleDelay         time.Duration
	ProcessingWait      time.Duration
}

// DefaultLoginConfig returns the configuration for the built-in portal.
func DefaultLoginConfig() LoginConfig {
	return NewLoginConfig(config.DefaultPortal(), false, nil)
}

// NewLoginConfig builds the attempt configuration from the portal contract
// and the browser settings.
func NewLoginConfig(p *config.Portal, headless bool, flags []string) LoginConfig {
	return LoginConfig{
		TargetURL:         p.TargetURL,
		Headless:          headless,
		ExtraFlags:        append([]string(nil), flags...),
		CertificateBypass: p.CertificateBypass,
		Elements: Elements{
			Username:      p.Elements.Username,
			Password:      p.Elements.Password,
			Submit:        p.Elements.Submit,
			DetailsButton: p.Elements.DetailsButton,
			ProceedLink:   p.Elements.ProceedLink,
		},
		AuthFailureMarker:     p.Markers.AuthFailure,
		AlreadyLoggedInMarker: p.Markers.AlreadyLoggedIn,
		ProcessingPattern:     p.ProcessingPattern,
		SuccessMatcher:        DomainMatcher(p.SuccessDomain),
		ElementTimeout:        p.Timeouts.Element,
		InterstitialTimeout:   p.Timeouts.Interstitial,
		SettleDelay:           p.Timeouts.Settle,
		ProcessingWait:        p.Timeouts.ProcessingWait,
	}
}

// authFailureText returns the marker the portal prints when it rejects
// username.
func (c LoginConfig) authFailureText(username string) string {
	if c.AuthFailureMarker == "" {
		return fmt.Sprintf(common.DefaultAuthFailureMarker, username)
	}
	return fmt.Sprintf(c.AuthFailureMarker, username)
}

// isTarget reports whether rawURL is still the login page.
func (c LoginConfig) isTarget(rawURL string) bool {
	return c.TargetURL != "" && strings.Contains(rawURL, c.TargetURL)
}

func (c LoginConfig) isProcessing(rawURL string) bool {
	return c.ProcessingPattern != "" && strings.Contains(rawURL, c.ProcessingPattern)
}

func (c LoginConfig) isSuccess(rawURL string) bool {
	return c.SuccessMatcher != nil && c.SuccessMatcher(rawURL)
}
