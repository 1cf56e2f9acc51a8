// Package session owns the authentication state for the application: it is
// the single authority for establishing, restoring, and tearing down a
// session against the identity provider, and the only component other code
// consults to decide between the login surface and protected content.
package session

import "github.com/clinic/clinic/internal/platform/credstore"

// Via records how a session was obtained. It drives user-facing messaging
// only (e.g. "signup confirmed" vs "set a new password"), never authorization.
type Via string

const (
	ViaPassword          Via = "password"
	ViaImplicitTokens    Via = "implicit-tokens"
	ViaAuthorizationCode Via = "authorization-code"
	ViaRestored          Via = "restored"
)

// Session is the proof of authentication for the running process.
type Session struct {
	AccessToken  string
	RefreshToken string
	Identity     credstore.Identity
	Via          Via
	// Recovery marks a session established through a password-recovery link.
	// Only such sessions may complete a password reset.
	Recovery bool
}

// Phase is the derived authentication state the UI keys off.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// State is a snapshot of the authentication state. Exactly one phase is
// active at a time; Session is non-nil if and only if the phase is
// PhaseAuthenticated. Seq increases by one per transition so that callers
// holding a completion from an earlier operation can detect it is stale.
type State struct {
	Phase   Phase
	Session *Session
	Seq     uint64
}
