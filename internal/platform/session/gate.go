package session

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/credstore"
)

// Outcome is what the gate decides to render for a given state.
type Outcome int

const (
	// OutcomeLoading renders a neutral waiting indicator; no interaction.
	OutcomeLoading Outcome = iota
	// OutcomeLogin renders the login/registration surface.
	OutcomeLogin
	// OutcomeContent renders the wrapped protected content.
	OutcomeContent
)

// Gate maps an authentication state to exactly one renderable outcome.
func Gate(s State) Outcome {
	switch s.Phase {
	case PhaseAuthenticated:
		return OutcomeContent
	case PhaseUnauthenticated:
		return OutcomeLogin
	default:
		return OutcomeLoading
	}
}

const identityKey = "auth_identity"

// Require guards protected routes. While the first resolution is still in
// flight it answers 503 with a Retry-After rather than admitting or
// rejecting; without a session it answers 401. Handlers behind the gate
// receive a read-only identity via the context, never tokens.
func Require(m *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := m.State()
			switch Gate(st) {
			case OutcomeLoading:
				c.Response().Header().Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session is being resolved")
			case OutcomeLogin:
				return echo.NewHTTPError(http.StatusUnauthorized, "sign in required")
			}
			c.Set(identityKey, st.Session.Identity)
			return next(c)
		}
	}
}

// IdentityFrom returns the signed-in identity attached by Require.
func IdentityFrom(c echo.Context) (credstore.Identity, bool) {
	ident, ok := c.Get(identityKey).(credstore.Identity)
	return ident, ok
}
