package portal

import "fmt"

// OutcomeKind classifies the result of one login attempt.
type OutcomeKind int

const (
	// KindUnknownFailure covers every failure without a specific signal.
	KindUnknownFailure OutcomeKind = iota
	// KindSuccess means the portal redirected to its destination.
	KindSuccess
	// KindAlreadyLoggedIn means the portal reported an active session for
	// this address. The credentials were accepted.
	KindAlreadyLoggedIn
	// KindInvalidCredentials means the portal rejected the username or password.
	KindInvalidCredentials
	// KindRedirectLoop means the portal bounced back to the login page.
	KindRedirectLoop
	// KindConnectionError means the login page or its form never appeared.
	KindConnectionError
)

// String returns the name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case KindSuccess:
		return "Success"
	case KindAlreadyLoggedIn:
		return "AlreadyLoggedIn"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindRedirectLoop:
		return "RedirectLoop"
	case KindConnectionError:
		return "ConnectionError"
	default:
		return "UnknownFailure"
	}
}

// Outcome is the classified result of an attempt. Reason is set for
// UnknownFailure and ConnectionError.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// Success returns a successful outcome.
func Success() Outcome { return Outcome{Kind: KindSuccess} }

// AlreadyLoggedIn returns the already-logged-in outcome.
func AlreadyLoggedIn() Outcome { return Outcome{Kind: KindAlreadyLoggedIn} }

// InvalidCredentials returns the rejected-credentials outcome.
func InvalidCredentials() Outcome { return Outcome{Kind: KindInvalidCredentials} }

// RedirectLoop returns the redirect-loop outcome.
func RedirectLoop() Outcome { return Outcome{Kind: KindRedirectLoop} }

// UnknownFailure returns a failure carrying reason.
func UnknownFailure(reason string) Outcome {
	return Outcome{Kind: KindUnknownFailure, Reason: reason}
}

// ConnectionError returns a connection failure carrying reason.
func ConnectionError(reason string) Outcome {
	return Outcome{Kind: KindConnectionError, Reason: reason}
}

// OK reports whether the portal accepted the credentials.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess || o.Kind == KindAlreadyLoggedIn
}

// Message returns the text shown to users.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindSuccess:
		return "Login successful"
	case KindAlreadyLoggedIn:
		return "Already logged in"
	case KindInvalidCredentials:
		return "Login failed: Invalid credentials"
	case KindRedirectLoop:
		return "Login failed: Redirect loop detected"
	case KindConnectionError:
		return "Connection error: " + o.Reason
	default:
		return "Login failed: " + o.Reason
	}
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", o.Kind, o.Reason)
}
