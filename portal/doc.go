// Package portal implements the captive-portal login for Portal Login.
//
// This package implements:
//
//   - Session: one login attempt, driving a browser through the portal form
//     and classifying the page it lands on
//   - Scheduler: fixed-interval retries for unattended runs
//   - Manager: credential resolution, remembered credentials and the
//     connection state shared by the front ends
//   - Watchdog: connectivity probing that logs in again once the portal
//     session expires
//
// # Attempt Flow
//
//  1. Open a browser through browser.Driver
//  2. Navigate to the login page and click through the certificate warning
//  3. Fill in the username and password and submit
//  4. Wait for the portal to settle, watching for its processing page
//  5. Classify the page into an Outcome
//
// Classification checks the page text before the URL: the portal's
// rejection message, then its already-logged-in message, then the
// destination domain.
//
// # Errors
//
// Every failure the portal can produce is an Outcome, not an error. Errors
// are reserved for conditions a retry cannot fix: no browser available,
// missing credentials, cancellation, and a login already in progress.
//
// # Thread Safety
//
// Manager and Scheduler are safe for concurrent use. A Session runs one
// attempt at a time; Manager serializes them.
package portal
