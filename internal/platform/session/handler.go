package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/credstore"
)

// Redirect targets honoured by the callback flow.
const (
	homePath  = "/"
	loginPath = "/login"

	// Long enough to read the confirmation, short enough not to feel stuck.
	successRedirectMS = 2000
	failureRedirectMS = 3000
)

// Handler exposes the session lifecycle over HTTP. It is deliberately thin:
// every decision lives in the Manager.
type Handler struct {
	mgr    *Manager
	logger zerolog.Logger
}

func NewHandler(mgr *Manager, logger zerolog.Logger) *Handler {
	return &Handler{mgr: mgr, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/auth")
	g.POST("/signin", h.SignIn)
	g.POST("/signup", h.SignUp)
	g.POST("/recover", h.RequestReset)
	g.POST("/reset-password", h.CompleteReset)
	g.POST("/signout", h.SignOut)
	g.POST("/restore", h.Restore)
	g.GET("/session", h.SessionState)
	g.GET("/callback", h.CallbackPage)
	g.POST("/callback", h.CompleteCallback)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// stateView is the subscriber-visible projection of a State. Tokens never
// leave the manager.
type stateView struct {
	Phase    string              `json:"phase"`
	Seq      uint64              `json:"seq"`
	Identity *credstore.Identity `json:"identity,omitempty"`
	Via      string              `json:"via,omitempty"`
	Recovery bool                `json:"recovery,omitempty"`
}

func viewOf(st State) stateView {
	v := stateView{Phase: st.Phase.String(), Seq: st.Seq}
	if st.Session != nil {
		ident := st.Session.Identity
		v.Identity = &ident
		v.Via = string(st.Session.Via)
		v.Recovery = st.Session.Recovery
	}
	return v
}

func (h *Handler) SignIn(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	st, err := h.mgr.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return authError(err)
	}
	return c.JSON(http.StatusOK, viewOf(st))
}

func (h *Handler) SignUp(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	if err := h.mgr.SignUp(c.Request().Context(), req.Email, req.Password); err != nil {
		return authError(err)
	}
	// Reported distinctly from sign-in success: the account is not active
	// until the confirmation email is followed.
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "Registration received. Check your email to confirm the account.",
	})
}

func (h *Handler) RequestReset(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	// The recovery link must come back to the deployment that asked for it,
	// so the callback target is derived from this request, never hardcoded.
	redirectTo := c.Scheme() + "://" + c.Request().Host + "/auth/callback"

	if err := h.mgr.RequestPasswordReset(c.Request().Context(), req.Email, redirectTo); err != nil {
		return authError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "If the address is registered, a recovery email is on its way.",
	})
}

func (h *Handler) CompleteReset(c echo.Context) error {
	var req struct {
		Password string `json:"password"`
		Confirm  string `json:"confirm"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.mgr.CompletePasswordReset(c.Request().Context(), req.Password, req.Confirm); err != nil {
		return authError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password updated."})
}

func (h *Handler) SignOut(c echo.Context) error {
	st := h.mgr.SignOut(c.Request().Context())
	return c.JSON(http.StatusOK, viewOf(st))
}

func (h *Handler) Restore(c echo.Context) error {
	var req struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	st := h.mgr.Restore(c.Request().Context(), req.AccessToken, req.RefreshToken)
	return c.JSON(http.StatusOK, viewOf(st))
}

func (h *Handler) SessionState(c echo.Context) error {
	return c.JSON(http.StatusOK, viewOf(h.mgr.State()))
}

// callbackResponse tells the callback page what to show and where to go.
type callbackResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	RedirectTo      string `json:"redirect_to"`
	RedirectAfterMS int    `json:"redirect_after_ms"`
}

// CompleteCallback normalizes a relayed callback invocation. Fragment tokens
// win over an authorization code; a request carrying neither is answered
// with an error and a scheduled redirect to the login surface, without any
// provider call.
func (h *Handler) CompleteCallback(c echo.Context) error {
	var req struct {
		Fragment string `json:"fragment"`
		Query    string `json:"query"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	parsed, err := ParseCallback(req.Fragment, req.Query)
	if err != nil {
		return c.JSON(http.StatusBadRequest, callbackResponse{
			Status:          "error",
			Message:         "This sign-in link is invalid or incomplete.",
			RedirectTo:      loginPath,
			RedirectAfterMS: failureRedirectMS,
		})
	}

	result, err := h.mgr.CompleteCallback(c.Request().Context(), parsed)
	if err != nil {
		h.logger.Warn().Err(err).Msg("callback completion rejected")
		return c.JSON(http.StatusUnauthorized, callbackResponse{
			Status:          "error",
			Message:         userMessage(err),
			RedirectTo:      loginPath,
			RedirectAfterMS: failureRedirectMS,
		})
	}

	return c.JSON(http.StatusOK, callbackResponse{
		Status:          "ok",
		Message:         result.Message,
		RedirectTo:      homePath,
		RedirectAfterMS: successRedirectMS,
	})
}

// CallbackPage serves the redirect target itself. Fragments are never sent
// to servers, so the page relays location.hash and the query string to the
// completion endpoint, shows the outcome, and performs the scheduled
// redirect. The fragment is stripped via history.replaceState so that
// back-navigation does not re-trigger adoption.
func (h *Handler) CallbackPage(c echo.Context) error {
	return c.HTML(http.StatusOK, callbackPageHTML)
}

const callbackPageHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Signing in…</title></head>
<body>
<p id="msg">Completing sign-in…</p>
<script>
(function () {
  var fragment = window.location.hash.replace(/^#/, "");
  var query = window.location.search.replace(/^\?/, "");
  history.replaceState(null, "", window.location.pathname);
  fetch("/auth/callback", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({ fragment: fragment, query: query })
  }).then(function (r) { return r.json(); }).then(function (res) {
    document.getElementById("msg").textContent = res.message;
    setTimeout(function () { window.location.replace(res.redirect_to); }, res.redirect_after_ms);
  }).catch(function () {
    document.getElementById("msg").textContent = "Something went wrong. Returning to sign-in.";
    setTimeout(function () { window.location.replace("/login"); }, 3000);
  });
})();
</script>
</body>
</html>
`

// authError maps manager failures onto HTTP responses. Provider rejections
// keep their status and text; local validation failures are 400s.
func authError(err error) error {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return echo.NewHTTPError(http.StatusBadRequest, vErr.Message)
	}
	var pErr *credstore.Error
	if errors.As(err, &pErr) {
		status := pErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusUnauthorized
		}
		return echo.NewHTTPError(status, pErr.Message)
	}
	return echo.NewHTTPError(http.StatusBadGateway, "identity provider unreachable")
}

func userMessage(err error) string {
	var pErr *credstore.Error
	if errors.As(err, &pErr) {
		return pErr.Message
	}
	return "Sign-in could not be completed."
}
