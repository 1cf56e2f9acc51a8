package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/credstore"
)

// Manager is the single owner of the process-wide authentication state. All
// transitions go through it, and every transition is pushed synchronously to
// subscribers in registration order.
//
// The Manager does not serialize overlapping operations: issuing a second
// operation while one is in flight is a caller error. Callers must key off
// the published State (and its Seq), never off call order.
type Manager struct {
	store          credstore.Store
	logger         zerolog.Logger
	restoreTimeout time.Duration

	mu    sync.Mutex
	state State
	subs  []*subscriber
}

type subscriber struct {
	fn     func(State)
	active bool
}

// NewManager creates a manager in the loading phase: nothing may render as
// authenticated or unauthenticated until the first resolution completes.
func NewManager(store credstore.Store, logger zerolog.Logger, restoreTimeout time.Duration) *Manager {
	return &Manager{
		store:          store,
		logger:         logger,
		restoreTimeout: restoreTimeout,
		state:          State{Phase: PhaseLoading},
	}
}

// State returns the current authentication state snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a listener for state transitions and returns its
// unsubscribe function. Listeners are invoked synchronously, in registration
// order, once per transition, with no coalescing. A listener must not call
// back into the Manager.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &subscriber{fn: fn, active: true}
	m.subs = append(m.subs, sub)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		sub.active = false
	}
}

// transition publishes a new state. The invariant that PhaseAuthenticated
// carries a session (and no other phase does) is enforced here.
func (m *Manager) transition(phase Phase, sess *Session) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if phase != PhaseAuthenticated {
		sess = nil
	}
	m.state = State{Phase: phase, Session: sess, Seq: m.state.Seq + 1}

	for _, sub := range m.subs {
		if sub.active {
			sub.fn(m.state)
		}
	}
	return m.state
}

// SignIn exchanges credentials for a session. On provider rejection the
// state is left untouched and the provider's message is returned verbatim.
func (m *Manager) SignIn(ctx context.Context, email, password string) (State, error) {
	pair, err := m.store.SignInWithPassword(ctx, email, password)
	if err != nil {
		return m.State(), err
	}
	return m.transition(PhaseAuthenticated, m.sessionFromPair(pair, ViaPassword, false)), nil
}

// SignUp registers a new account. It never transitions to authenticated: the
// provider requires email confirmation first, so success here means "check
// your email", not "signed in".
func (m *Manager) SignUp(ctx context.Context, email, password string) error {
	return m.store.SignUp(ctx, email, password)
}

// RequestPasswordReset asks the provider to dispatch a recovery email whose
// link targets redirectTo. Whether the address is registered is the
// provider's concern; this layer does not leak that distinction.
func (m *Manager) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	return m.store.ResetPasswordForEmail(ctx, email, redirectTo)
}

// CompletePasswordReset sets a new password for the current recovery
// session. Local validation runs before any network call: a short password
// or a confirmation mismatch never reaches the provider.
func (m *Manager) CompletePasswordReset(ctx context.Context, newPassword, confirm string) error {
	if newPassword != confirm {
		return &ValidationError{Message: "passwords do not match"}
	}
	if len(newPassword) < 6 {
		return &ValidationError{Message: "password must be at least 6 characters"}
	}

	cur := m.State()
	if cur.Phase != PhaseAuthenticated || !cur.Session.Recovery {
		return &ValidationError{Message: "no active recovery session"}
	}

	if err := m.store.UpdatePassword(ctx, cur.Session.AccessToken, newPassword); err != nil {
		return err
	}

	// The session stays live with the new credential in force; it is no
	// longer a recovery session.
	sess := *cur.Session
	sess.Recovery = false
	m.transition(PhaseAuthenticated, &sess)
	return nil
}

// Restore resolves a previously persisted token pair into a session. It
// publishes loading immediately, then authenticated or unauthenticated once
// the provider confirms or denies. The provider probe is bounded by the
// configured timeout: a dead network degrades to unauthenticated instead of
// leaving subscribers in loading forever.
func (m *Manager) Restore(ctx context.Context, accessToken, refreshToken string) State {
	m.transition(PhaseLoading, nil)

	if accessToken == "" {
		return m.transition(PhaseUnauthenticated, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, m.restoreTimeout)
	defer cancel()

	type probe struct {
		ident *credstore.Identity
		err   error
	}
	done := make(chan probe, 1)
	go func() {
		ident, err := m.store.GetUser(ctx, accessToken)
		done <- probe{ident: ident, err: err}
	}()

	select {
	case p := <-done:
		if p.err != nil {
			m.logger.Debug().Err(p.err).Msg("session restore denied")
			return m.transition(PhaseUnauthenticated, nil)
		}
		return m.transition(PhaseAuthenticated, &Session{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			Identity:     *p.ident,
			Via:          ViaRestored,
		})
	case <-ctx.Done():
		m.logger.Warn().Err(ctx.Err()).Msg("session restore timed out")
		return m.transition(PhaseUnauthenticated, nil)
	}
}

// SignOut tears the session down. The provider call is best-effort: a
// failure is logged, never surfaced, and the local state transitions to
// unauthenticated regardless so it cannot desync from user intent.
func (m *Manager) SignOut(ctx context.Context) State {
	cur := m.State()
	if cur.Phase == PhaseAuthenticated {
		if err := m.store.SignOut(ctx, cur.Session.AccessToken); err != nil {
			m.logger.Warn().Err(err).Msg("provider sign-out failed; clearing local session anyway")
		}
	}
	return m.transition(PhaseUnauthenticated, nil)
}

// sessionFromPair builds a Session from issued tokens. The identity is
// decoded from the access token for display; a token whose claims cannot be
// read still yields a usable session.
func (m *Manager) sessionFromPair(pair *credstore.TokenPair, via Via, recovery bool) *Session {
	ident, err := credstore.IdentityFromToken(pair.AccessToken)
	if err != nil {
		m.logger.Debug().Err(err).Msg("access token claims unreadable")
		ident = &credstore.Identity{}
	}
	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Identity:     *ident,
		Via:          via,
		Recovery:     recovery,
	}
}
