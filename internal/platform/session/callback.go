package session

import (
	"context"
	"net/url"
)

// Delivery identifies which of the two token-delivery mechanisms a callback
// invocation used.
type Delivery int

const (
	// DeliveryImplicit carries access and refresh tokens in the URL
	// fragment. Fragments never reach a server on their own, so the
	// callback page relays them explicitly.
	DeliveryImplicit Delivery = iota
	// DeliveryCode carries a short-lived authorization code in the query
	// string, exchanged with the provider for a session.
	DeliveryCode
)

// CallbackRequest is a normalized callback invocation.
type CallbackRequest struct {
	Delivery     Delivery
	AccessToken  string
	RefreshToken string
	// Type tags an implicit delivery: "signup", "recovery", or empty.
	Type string
	Code string
}

// CallbackResult is the outcome of completing a callback.
type CallbackResult struct {
	State   State
	Message string
}

// User-facing classifications for a completed callback.
const (
	msgSignupConfirmed = "Email confirmed. You are signed in."
	msgRecovery        = "Recovery link accepted. Choose a new password."
	msgSignedIn        = "Signed in."
)

// ParseCallback reduces the two delivery mechanisms to one request. The
// fragment is parsed first and wins if both tokens and a code are somehow
// present; key order within the fragment does not matter. A callback with
// neither yields ErrMalformedCallback.
func ParseCallback(fragment, rawQuery string) (CallbackRequest, error) {
	if frag, err := url.ParseQuery(fragment); err == nil {
		access := frag.Get("access_token")
		refresh := frag.Get("refresh_token")
		if access != "" && refresh != "" {
			return CallbackRequest{
				Delivery:     DeliveryImplicit,
				AccessToken:  access,
				RefreshToken: refresh,
				Type:         frag.Get("type"),
			}, nil
		}
	}

	if query, err := url.ParseQuery(rawQuery); err == nil {
		if code := query.Get("code"); code != "" {
			return CallbackRequest{Delivery: DeliveryCode, Code: code}, nil
		}
	}

	return CallbackRequest{}, ErrMalformedCallback
}

// CompleteCallback turns a normalized callback into an authenticated
// session. Adoption of implicit tokens is idempotent: re-adopting the pair
// the current session already holds (a double-opened link) is a success,
// not an error. Provider rejections leave the state untouched.
func (m *Manager) CompleteCallback(ctx context.Context, req CallbackRequest) (CallbackResult, error) {
	switch req.Delivery {
	case DeliveryImplicit:
		if cur := m.State(); cur.Phase == PhaseAuthenticated && cur.Session.AccessToken == req.AccessToken {
			return CallbackResult{State: cur, Message: classifyImplicit(req.Type)}, nil
		}

		pair, err := m.store.SetSession(ctx, req.AccessToken, req.RefreshToken)
		if err != nil {
			return CallbackResult{State: m.State()}, err
		}

		sess := m.sessionFromPair(pair, ViaImplicitTokens, req.Type == "recovery")
		st := m.transition(PhaseAuthenticated, sess)
		return CallbackResult{State: st, Message: classifyImplicit(req.Type)}, nil

	case DeliveryCode:
		pair, err := m.store.ExchangeCodeForSession(ctx, req.Code)
		if err != nil {
			return CallbackResult{State: m.State()}, err
		}

		sess := m.sessionFromPair(pair, ViaAuthorizationCode, false)
		st := m.transition(PhaseAuthenticated, sess)
		return CallbackResult{State: st, Message: msgSignedIn}, nil
	}

	return CallbackResult{State: m.State()}, ErrMalformedCallback
}

func classifyImplicit(typ string) string {
	switch typ {
	case "signup":
		return msgSignupConfirmed
	case "recovery":
		return msgRecovery
	default:
		return msgSignedIn
	}
}
