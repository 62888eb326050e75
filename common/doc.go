// Package common provides shared constants, types, utilities, and interfaces
// used throughout the Portal Login application.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: site-contract defaults, timeouts, file names, progress milestones
//   - Errors: Sentinel errors checked with errors.Is across packages
//   - Interfaces: SecretStore, Notifier, Logger and the StatusFunc observer
//   - Logger: Leveled logging to stdout and a rotating log file
//   - Utils: Config/data directory resolution and string helpers
//
// # Usage
//
//	common.LogInfo("Attempting login for %s", common.MaskUsername(user))
//
//	if errors.Is(err, common.ErrCredentialsNotFound) {
//	    // prompt for credentials
//	}
package common
