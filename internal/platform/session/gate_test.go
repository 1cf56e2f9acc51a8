package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestGate_MapsEachPhase(t *testing.T) {
	cases := []struct {
		state State
		want  Outcome
	}{
		{State{Phase: PhaseLoading}, OutcomeLoading},
		{State{Phase: PhaseUnauthenticated}, OutcomeLogin},
		{State{Phase: PhaseAuthenticated, Session: &Session{}}, OutcomeContent},
	}
	for _, tc := range cases {
		if got := Gate(tc.state); got != tc.want {
			t.Errorf("Gate(%s) = %v, want %v", tc.state.Phase, got, tc.want)
		}
	}
}

func invokeGate(t *testing.T, m *Manager) (error, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured echo.Context
	h := Require(m)(func(c echo.Context) error {
		captured = c
		return c.NoContent(http.StatusOK)
	})
	return h(c), captured
}

func TestRequire_LoadingAnswers503(t *testing.T) {
	m := newTestManager(newMockStore())

	err, _ := invokeGate(t, m)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while loading, got %v", err)
	}
}

func TestRequire_UnauthenticatedAnswers401(t *testing.T) {
	m := newTestManager(newMockStore())
	m.Restore(context.Background(), "", "")

	err, _ := invokeGate(t, m)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %v", err)
	}
}

func TestRequire_AuthenticatedPassesIdentityOnly(t *testing.T) {
	m := newTestManager(newMockStore())
	if _, err := m.SignIn(context.Background(), "nurse@clinic.test", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err, c := invokeGate(t, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ident, ok := IdentityFrom(c)
	if !ok {
		t.Fatal("expected identity in context")
	}
	if ident.Email != "nurse@clinic.test" {
		t.Errorf("unexpected identity %+v", ident)
	}

	// Protected content must never receive tokens.
	if tok := c.Get("access_token"); tok != nil {
		t.Error("tokens must not be attached to the request context")
	}
}
