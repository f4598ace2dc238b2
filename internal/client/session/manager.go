package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/kefi/internal/client/autherr"
	"github.com/dmitrijs2005/kefi/internal/client/models"
	"github.com/dmitrijs2005/kefi/internal/client/services"
	"github.com/dmitrijs2005/kefi/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// Store is the part of the token store the manager needs.
type Store interface {
	AccessToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, access, refresh string, rememberMe bool) error
	SetUser(ctx context.Context, u *models.User) error
	User(ctx context.Context) (*models.User, error)
	ClearTokens(ctx context.Context) error
}

type Options struct {
	// Now is the clock used for token expiry checks.
	Now func() time.Time
	// RememberSignup selects durable storage for tokens issued at signup.
	RememberSignup bool
}

// Manager owns the authentication state. Create one per process.
type Manager struct {
	svc    services.AuthService
	store  Store
	nav    Navigator
	logger logging.Logger
	opts   Options

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
	closed  bool

	bootOnce sync.Once
	bootErr  error
	booting  bool
}

func NewManager(svc services.AuthService, store Store, nav Navigator, logger logging.Logger, opts Options) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	if nav == nil {
		nav = NavigatorFunc(func(string, NavState) {})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		svc:    svc,
		store:  store,
		nav:    nav,
		logger: logger.With("component", "session"),
		opts:   opts,
		state:  State{Loading: true},
		subs:   make(map[int]func(State)),
	}
}

// State returns a snapshot of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to receive every state change. The returned
// function removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Close drops every subscriber. State changes after Close are not
// delivered.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[int]func(State))
}

// update applies fn to the state under the lock and notifies subscribers.
func (m *Manager) update(fn func(s *State)) State {
	m.mu.Lock()
	fn(&m.state)
	snapshot := m.state.clone()
	var subs []func(State)
	if !m.closed {
		subs = make([]func(State), 0, len(m.subs))
		for _, s := range m.subs {
			subs = append(subs, s)
		}
	}
	m.mu.Unlock()

	for _, s := range subs {
		s(snapshot.clone())
	}
	return snapshot
}

func (m *Manager) set(s State) State {
	return m.update(func(st *State) { *st = s })
}

// ClearError drops the last error. Forms call it on the next input.
func (m *Manager) ClearError() {
	m.update(func(s *State) { s.Error = "" })
}

/*************
 * Bootstrap
 *************/

// Bootstrap resolves the initial state from the stored session. It runs
// once per Manager; later and concurrent calls wait for the first and
// return its result.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.bootOnce.Do(func() { m.bootErr = m.bootstrap(ctx) })
	return m.bootErr
}

func (m *Manager) bootstrap(ctx context.Context) error {
	m.mu.Lock()
	m.booting = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.booting = false
		m.mu.Unlock()
	}()

	token, err := m.store.AccessToken(ctx)
	if err != nil {
		m.logger.Error(ctx, "failed to read stored session", "error", err)
		m.dropSession(ctx)
		return err
	}
	if token == "" {
		m.logger.Debug(ctx, "no stored session")
		m.set(State{})
		return nil
	}

	if cached, _ := m.store.User(ctx); cached != nil {
		m.update(func(s *State) {
			s.IsAuthenticated = true
			s.User = cached
		})
	}

	refreshed := false
	if exp, ok := tokenExpiry(token); ok && !exp.After(m.opts.Now()) {
		m.logger.Info(ctx, "stored access token expired, refreshing")
		if err := m.svc.RefreshSession(ctx); err != nil {
			return m.bootFailed(ctx, err)
		}
		refreshed = true
	}

	user, err := m.svc.FetchUserProfile(ctx)
	if errors.Is(err, autherr.ErrUnauthorized) && !refreshed && !m.tokenChanged(ctx, token) {
		if rerr := m.svc.RefreshSession(ctx); rerr != nil {
			return m.bootFailed(ctx, rerr)
		}
		user, err = m.svc.FetchUserProfile(ctx)
	}
	if err != nil {
		return m.bootFailed(ctx, err)
	}

	m.cacheUser(ctx, user)
	m.set(State{IsAuthenticated: true, User: user})
	m.logger.Info(ctx, "session restored", "user", user.Username)
	return nil
}

func (m *Manager) bootFailed(ctx context.Context, err error) error {
	m.logger.Info(ctx, "stored session rejected", "kind", autherr.KindOf(err), "error", err)
	m.dropSession(ctx)
	return nil
}

func (m *Manager) dropSession(ctx context.Context) {
	if err := m.store.ClearTokens(ctx); err != nil {
		m.logger.Error(ctx, "failed to clear stored session", "error", err)
	}
	m.set(State{})
}

// tokenChanged reports whether the stored access token is no longer
// before. The HTTP client rotates it on a successful refresh and clears it
// on a failed one, so a change means a refresh was already attempted.
func (m *Manager) tokenChanged(ctx context.Context, before string) bool {
	current, err := m.store.AccessToken(ctx)
	if err != nil {
		return false
	}
	return current != before
}

// tokenExpiry reads the exp claim without verifying the signature.
// Verification is the backend's job; this only avoids a doomed request.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

/*************
 * Operations
 *************/

// Login authenticates and, on success, persists the session and navigates
// to the dashboard or to profile completion.
func (m *Manager) Login(ctx context.Context, identifier, password string, rememberMe bool) error {
	m.update(func(s *State) {
		s.Loading = true
		s.Error = ""
	})

	res, err := m.svc.Login(ctx, identifier, password, rememberMe)
	if err != nil {
		m.set(State{Error: autherr.Message(err)})
		return err
	}
	return m.establish(ctx, res, rememberMe)
}

// Signup completes registration. The backend issues tokens, so the user
// is authenticated right away.
func (m *Manager) Signup(ctx context.Context, data models.SignupData) error {
	m.update(func(s *State) {
		s.Loading = true
		s.Error = ""
	})

	res, err := m.svc.CompleteSignup(ctx, data)
	if err != nil {
		m.set(State{Error: autherr.Message(err)})
		return err
	}
	return m.establish(ctx, res, m.opts.RememberSignup)
}

func (m *Manager) establish(ctx context.Context, res *models.AuthResult, rememberMe bool) error {
	if err := m.store.SetTokens(ctx, res.Access, res.Refresh, rememberMe); err != nil {
		m.logger.Error(ctx, "failed to persist session", "error", err)
		_ = m.store.ClearTokens(ctx)
		werr := autherr.Wrap(autherr.KindService, "Failed to save session", err)
		m.set(State{Error: werr.Error()})
		return werr
	}

	user := res.User
	if user == nil {
		u, err := m.svc.FetchUserProfile(ctx)
		if err != nil {
			m.dropSession(ctx)
			m.update(func(s *State) { s.Error = autherr.Message(err) })
			return err
		}
		user = u
	}

	m.cacheUser(ctx, user)
	m.set(State{IsAuthenticated: true, User: user})
	m.logger.Info(ctx, "signed in", "user", user.Username, "remember_me", rememberMe)

	m.nav.Navigate(landing(user), NavState{})
	return nil
}

// Logout ends the session. The server call is best-effort; local state is
// cleared and the user lands on the login page regardless.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.svc.Logout(ctx); err != nil {
		m.logger.Warn(ctx, "logout not confirmed by server", "error", err)
	}
	m.set(State{})
	m.logger.Info(ctx, "signed out")
	m.nav.Navigate(PathLogin, NavState{})
}

// UpdateProfile applies patch to the current user and replaces it with the
// server's representation. Authentication state is unchanged.
func (m *Manager) UpdateProfile(ctx context.Context, patch models.ProfileUpdate) error {
	current := m.State().User
	if current == nil {
		return autherr.New(autherr.KindUnauthorized, "")
	}

	var updated *models.User
	err := m.authorized(ctx, func(ctx context.Context) error {
		u := current.Clone()
		patch.ApplyTo(u)
		if err := m.svc.UpdateProfile(ctx, patch, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		m.failed(err)
		return err
	}

	m.cacheUser(ctx, updated)
	m.update(func(s *State) {
		s.User = updated
		s.Error = ""
	})
	return nil
}

// RefreshProfile re-fetches the current user.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	var user *models.User
	err := m.authorized(ctx, func(ctx context.Context) error {
		u, err := m.svc.FetchUserProfile(ctx)
		user = u
		return err
	})
	if err != nil {
		m.failed(err)
		return err
	}

	m.cacheUser(ctx, user)
	m.update(func(s *State) {
		s.IsAuthenticated = true
		s.User = user
	})
	return nil
}

// failed records err unless the session already ended because of it.
func (m *Manager) failed(err error) {
	m.update(func(s *State) {
		if s.IsAuthenticated {
			s.Error = autherr.Message(err)
		}
	})
}

// authorized runs op and, when it fails as unauthorized, refreshes the
// session once and retries. A failed refresh ends the session. Nothing is
// retried when the token already changed during op.
func (m *Manager) authorized(ctx context.Context, op func(ctx context.Context) error) error {
	before, _ := m.store.AccessToken(ctx)
	err := op(ctx)
	if !errors.Is(err, autherr.ErrUnauthorized) {
		return err
	}
	if m.tokenChanged(ctx, before) {
		// Already refreshed underneath op. An empty store means that
		// refresh failed.
		if current, _ := m.store.AccessToken(ctx); current == "" {
			m.SessionExpired(ctx)
		}
		return err
	}
	if rerr := m.svc.RefreshSession(ctx); rerr != nil {
		m.logger.Info(ctx, "refresh after unauthorized failed", "error", rerr)
		m.SessionExpired(ctx)
		return err
	}
	return op(ctx)
}

// SessionExpired ends an established session after the backend refused
// to refresh it and sends the user to the login page. It is installed as
// the HTTP client's expiry hook.
func (m *Manager) SessionExpired(ctx context.Context) {
	m.mu.Lock()
	wasAuthenticated := m.state.IsAuthenticated
	booting := m.booting
	m.mu.Unlock()

	if booting {
		// Bootstrap resolves the state itself.
		return
	}

	if err := m.store.ClearTokens(ctx); err != nil {
		m.logger.Error(ctx, "failed to clear expired session", "error", err)
	}
	m.set(State{})
	if !wasAuthenticated {
		return
	}

	m.logger.Info(ctx, "session expired")
	m.nav.Navigate(PathLogin, NavState{Error: MsgSessionExpired})
}

func (m *Manager) cacheUser(ctx context.Context, u *models.User) {
	if err := m.store.SetUser(ctx, u); err != nil {
		m.logger.Warn(ctx, "failed to cache user", "error", err)
	}
}
