// Package common provides shared constants, types, and utilities
// used across the Portal Login application.
package common

import "time"

// Application metadata.
const (
	// AppName is the display name of the application.
	AppName = "Portal Login"
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = "portal-login"
	// KeyringService is the service name secrets are stored under.
	KeyringService = "portal-login"
)

// LegacyKeyringServices are service names used by earlier releases.
// Secrets found there are migrated to KeyringService on first read.
var LegacyKeyringServices = []string{"SimulanisLogin"}

// File names used by the application.
const (
	ConfigFileName         = "config.json"
	HeadlessConfigFileName = "headless_config.json"
	PortalFileName         = "portal.yaml"
	CredentialsFileName    = ".credentials"
	HistoryFileName        = "history.db"
	LogFileName            = "portal-login.log"
)

// Site contract defaults.
const (
	DefaultTargetURL             = "https://192.168.1.9/userlogin/"
	DefaultSuccessDomain         = "simulanis.com"
	DefaultProcessingPattern     = "/userSense"
	DefaultAuthFailureMarker     = "Authentication Failed for user:%s"
	DefaultAlreadyLoggedInMarker = "User is already logged in with same ip"
)

// Default element identifiers on the login form and the certificate
// interstitial.
const (
	ElementUsername      = "user"
	ElementPassword      = "passwd"
	ElementSubmit        = "submitbtn"
	ElementDetailsButton = "details-button"
	ElementProceedLink   = "proceed-link"
)

// Default timeouts and intervals.
const (
	// ElementTimeout bounds the wait for the username field.
	ElementTimeout = 10 * time.Second
	// InterstitialTimeout bounds each certificate-bypass click.
	InterstitialTimeout = 5 * time.Second
	// ActionTimeout bounds single form interactions.
	ActionTimeout = 5 * time.Second
	// SettleDelay is the pause after submit before inspecting the page.
	SettleDelay = 2 * time.Second
	// ProcessingWait is the extra pause when the portal shows its
	// intermediate processing page.
	ProcessingWait = 2 * time.Second
	// RetryInterval is the default pause between unattended attempts.
	RetryInterval = 60 * time.Second
	// MaxRetries is the default number of unattended retries.
	MaxRetries = 3
)

// Progress milestones reported to status observers.
const (
	ProgressNone         = -1
	ProgressInit         = 10
	ProgressNavigate     = 30
	ProgressCertificates = 40
	ProgressCertDone     = 45
	ProgressAuthenticate = 60
	ProgressSubmit       = 80
	ProgressDone         = 100
)

// Error messages are truncated to this many characters before being shown.
const MaxReasonLength = 50
