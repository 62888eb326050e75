package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yllada/portal-login/common"
)

// Portal describes the login site: where it lives, which element ids its
// form uses and which page texts signal each outcome. Defaults match the
// deployment the tool was written for; portal.yaml overrides any field.
type Portal struct {
	// TargetURL is the login page.
	TargetURL string `yaml:"target_url"`
	// SuccessDomain is the host the portal redirects to after a login.
	SuccessDomain string `yaml:"success_domain"`
	// ProcessingPattern is a URL fragment of the portal's intermediate page.
	ProcessingPattern string `yaml:"processing_pattern"`
	// CertificateBypass clicks through the browser's TLS warning.
	CertificateBypass bool `yaml:"certificate_bypass"`
	// ChromePath points at a specific browser binary.
	ChromePath string `yaml:"chrome_path,omitempty"`

	Markers  PortalMarkers  `yaml:"markers"`
	Elements PortalElements `yaml:"elements"`
	Timeouts PortalTimeouts `yaml:"timeouts"`
}

// PortalMarkers are literal page-source texts.
type PortalMarkers struct {
	// AuthFailure is a format string; %s receives the submitted username.
	AuthFailure     string `yaml:"auth_failure"`
	AlreadyLoggedIn string `yaml:"already_logged_in"`
}

// PortalElements are DOM ids of the login form and the TLS interstitial.
type PortalElements struct {
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	Submit        string `yaml:"submit"`
	DetailsButton string `yaml:"details_button"`
	ProceedLink   string `yaml:"proceed_link"`
}

// PortalTimeouts bound the waits of one login attempt.
type PortalTimeouts struct {
	Element        time.Duration `yaml:"element"`
	Interstitial   time.Duration `yaml:"interstitial"`
	Settle         time.Duration `yaml:"settle"`
	ProcessingWait time.Duration `yaml:"processing_wait"`
}

// DefaultPortal returns the built-in site contract.
func DefaultPortal() *Portal {
	return &Portal{
		TargetURL:         common.DefaultTargetURL,
		SuccessDomain:     common.DefaultSuccessDomain,
		ProcessingPattern: common.DefaultProcessingPattern,
		CertificateBypass: true,
		Markers: PortalMarkers{
			AuthFailure:     common.DefaultAuthFailureMarker,
			AlreadyLoggedIn: common.DefaultAlreadyLoggedInMarker,
		},
		Elements: PortalElements{
			Username:      common.ElementUsername,
			Password:      common.ElementPassword,
			Submit:        common.ElementSubmit,
			DetailsButton: common.ElementDetailsButton,
			ProceedLink:   common.ElementProceedLink,
		},
		Timeouts: PortalTimeouts{
			Element:        common.ElementTimeout,
			Interstitial:   common.InterstitialTimeout,
			Settle:         common.SettleDelay,
			ProcessingWait: common.ProcessingWait,
		},
	}
}

// LoadPortal reads portal.yaml from the configuration directory. Fields the
// file leaves out keep their defaults; unknown fields are rejected.
func LoadPortal() (*Portal, error) {
	path, err := filePath(common.PortalFileName)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPortal(), nil
		}
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}
	defer file.Close()

	return decodePortal(file)
}

func decodePortal(r io.Reader) (*Portal, error) {
	portal := DefaultPortal()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(portal); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parsing %s: %v", common.ErrConfigLoad, common.PortalFileName, err)
	}

	if err := portal.validate(); err != nil {
		return nil, fmt.Errorf("invalid portal configuration: %w", err)
	}
	return portal, nil
}

// validate rejects contracts no login could satisfy and restores defaults
// for empty optional values.
func (p *Portal) validate() error {
	u, err := url.Parse(p.TargetURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: target_url %q", common.ErrInvalidValue, p.TargetURL)
	}
	if strings.TrimSpace(p.SuccessDomain) == "" {
		return fmt.Errorf("%w: success_domain is empty", common.ErrInvalidValue)
	}
	if !strings.Contains(p.Markers.AuthFailure, "%s") {
		return fmt.Errorf("%w: markers.auth_failure needs a %%s for the username", common.ErrInvalidValue)
	}

	defaults := DefaultPortal()
	if p.Markers.AlreadyLoggedIn == "" {
		p.Markers.AlreadyLoggedIn = defaults.Markers.AlreadyLoggedIn
	}
	if p.Timeouts.Element <= 0 {
		p.Timeouts.Element = defaults.Timeouts.Element
	}
	if p.Timeouts.Interstitial <= 0 {
		p.Timeouts.Interstitial = defaults.Timeouts.Interstitial
	}
	if p.Timeouts.Settle < 0 {
		p.Timeouts.Settle = defaults.Timeouts.Settle
	}
	if p.Timeouts.ProcessingWait < 0 {
		p.Timeouts.ProcessingWait = defaults.Timeouts.ProcessingWait
	}
	return nil
}
