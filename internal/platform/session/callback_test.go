package session

import (
	"context"
	"testing"

	"github.com/clinic/clinic/internal/platform/credstore"
)

func TestParseCallback_FragmentKeyOrderIrrelevant(t *testing.T) {
	fragments := []string{
		"access_token=A&refresh_token=B&type=signup",
		"type=signup&refresh_token=B&access_token=A",
		"refresh_token=B&type=signup&access_token=A",
	}

	for _, frag := range fragments {
		req, err := ParseCallback(frag, "")
		if err != nil {
			t.Fatalf("fragment %q: unexpected error: %v", frag, err)
		}
		if req.Delivery != DeliveryImplicit {
			t.Errorf("fragment %q: expected implicit delivery", frag)
		}
		if req.AccessToken != "A" || req.RefreshToken != "B" || req.Type != "signup" {
			t.Errorf("fragment %q: unexpected request %+v", frag, req)
		}
	}
}

func TestParseCallback_FragmentWinsOverCode(t *testing.T) {
	req, err := ParseCallback("access_token=A&refresh_token=B", "code=C-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Delivery != DeliveryImplicit {
		t.Error("fragment tokens must take priority over an authorization code")
	}
	if req.Code != "" {
		t.Errorf("code must be ignored when fragment tokens are present, got %q", req.Code)
	}
}

func TestParseCallback_CodeOnly(t *testing.T) {
	req, err := ParseCallback("", "code=C-123&other=x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Delivery != DeliveryCode || req.Code != "C-123" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestParseCallback_PartialFragmentFallsThroughToCode(t *testing.T) {
	// A fragment with only one token is not a valid implicit delivery.
	req, err := ParseCallback("access_token=A", "code=C-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Delivery != DeliveryCode {
		t.Errorf("expected code delivery, got %+v", req)
	}
}

func TestParseCallback_Malformed(t *testing.T) {
	cases := []struct{ fragment, query string }{
		{"", ""},
		{"foo=bar", "baz=qux"},
		{"access_token=A", ""},
	}
	for _, tc := range cases {
		if _, err := ParseCallback(tc.fragment, tc.query); err != ErrMalformedCallback {
			t.Errorf("fragment=%q query=%q: expected ErrMalformedCallback, got %v", tc.fragment, tc.query, err)
		}
	}
}

func TestCompleteCallback_ImplicitSignupYieldsOneTransition(t *testing.T) {
	store := newMockStore()
	m := newTestManager(store)

	transitions := 0
	m.Subscribe(func(st State) {
		if st.Phase == PhaseAuthenticated {
			transitions++
		}
	})

	req, err := ParseCallback("type=signup&access_token="+testToken("u1", "a@b.c")+"&refresh_token=rt", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := m.CompleteCallback(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transitions != 1 {
		t.Errorf("expected exactly one authenticated transition, got %d", transitions)
	}
	if result.Message != msgSignupConfirmed {
		t.Errorf("expected signup confirmation message, got %q", result.Message)
	}
	if result.State.Session.Via != ViaImplicitTokens {
		t.Errorf("expected via implicit-tokens, got %s", result.State.Session.Via)
	}
}

func TestCompleteCallback_AdoptionIsIdempotent(t *testing.T) {
	store := newMockStore()
	m := newTestManager(store)

	token := testToken("u1", "a@b.c")
	req := CallbackRequest{Delivery: DeliveryImplicit, AccessToken: token, RefreshToken: "rt", Type: "signup"}

	first, err := m.CompleteCallback(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The user double-opened the link: same tokens arrive again.
	second, err := m.CompleteCallback(context.Background(), req)
	if err != nil {
		t.Fatalf("second adoption must succeed, got %v", err)
	}
	if second.State.Seq != first.State.Seq {
		t.Error("re-adopting the active token pair must not transition again")
	}
	if store.calls["SetSession"] != 1 {
		t.Errorf("expected one provider adoption, got %d", store.calls["SetSession"])
	}
}

func TestCompleteCallback_RecoveryMarksSession(t *testing.T) {
	m := newTestManager(newMockStore())

	req := CallbackRequest{
		Delivery:     DeliveryImplicit,
		AccessToken:  testToken("u1", "a@b.c"),
		RefreshToken: "rt",
		Type:         "recovery",
	}
	result, err := m.CompleteCallback(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.State.Session.Recovery {
		t.Error("recovery delivery must mark the session for password reset")
	}
	if result.Message != msgRecovery {
		t.Errorf("expected recovery message, got %q", result.Message)
	}
}

func TestCompleteCallback_CodeExchange(t *testing.T) {
	store := newMockStore()
	m := newTestManager(store)

	result, err := m.CompleteCallback(context.Background(), CallbackRequest{Delivery: DeliveryCode, Code: "C-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State.Session.Via != ViaAuthorizationCode {
		t.Errorf("expected via authorization-code, got %s", result.State.Session.Via)
	}
	if store.calls["ExchangeCodeForSession"] != 1 {
		t.Errorf("expected one exchange call, got %d", store.calls["ExchangeCodeForSession"])
	}
}

func TestCompleteCallback_ProviderRejectionLeavesState(t *testing.T) {
	store := newMockStore()
	store.setErr = &credstore.Error{StatusCode: 401, Message: "token expired"}
	m := newTestManager(store)
	m.Restore(context.Background(), "", "")

	before := m.State()
	_, err := m.CompleteCallback(context.Background(), CallbackRequest{
		Delivery: DeliveryImplicit, AccessToken: "at", RefreshToken: "rt",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if m.State() != before {
		t.Error("failed adoption must not change state")
	}
}
