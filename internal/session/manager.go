// Package session owns the client-side authentication state machine:
// bootstrap on launch, sign-in/sign-up, sign-out, inactivity expiry across
// foreground/background transitions, and the degraded offline fallback to the
// cached profile snapshot.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dvir/roombill-client/internal/config"
	"github.com/dvir/roombill-client/internal/domain"
	"github.com/dvir/roombill-client/internal/notify"
	"github.com/dvir/roombill-client/internal/remote"
	"github.com/dvir/roombill-client/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

// Persistence keys. The secure tier holds only the token; everything else
// lives in the general blob store under its own key.
const (
	keyAuthToken      = "authToken"
	keyCachedUser     = "cachedUser"
	keyLastActivity   = "lastActivityTime"
	keyRecentAccounts = "recentAccounts"
)

const genericConnectivityError = "unable to reach the server, check your connection"

// Result is the uniform outcome of every user-initiated session action, so
// the UI never has to distinguish error types.
type Result struct {
	Success bool
	Error   string
}

func failure(msg string) Result { return Result{Error: msg} }

// Manager is the session service. One instance is created at process start
// and passed by reference to every consumer.
type Manager struct {
	auth     remote.AuthAPI
	secure   store.SecureStore
	blobs    store.GeneralStore
	notifier notify.Scheduler
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time

	mu             sync.Mutex
	state          State
	gen            uint64 // bumped on every auth transition; in-flight results from an older gen are discarded
	timer          *time.Timer
	timerGen       uint64
	listeners      map[int]func(State)
	nextListenerID int
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(auth remote.AuthAPI, secure store.SecureStore, blobs store.GeneralStore, notifier notify.Scheduler, cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		auth:      auth,
		secure:    secure,
		blobs:     blobs,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "session")),
		now:       time.Now,
		state:     Initial(),
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a listener invoked after every state transition. The
// returned function unsubscribes it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextListenerID
	m.nextListenerID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// applyLocked runs the reducer and snapshots the listener set. Auth
// transitions invalidate any async work started against the previous session.
func (m *Manager) applyLocked(e Event) (State, []func(State)) {
	switch e.(type) {
	case SignedInEvent, SignedOutEvent:
		m.gen++
	}
	m.state = Reduce(m.state, e)
	ls := make([]func(State), 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	return m.state, ls
}

func (m *Manager) dispatch(e Event) State {
	m.mu.Lock()
	st, ls := m.applyLocked(e)
	m.mu.Unlock()
	for _, l := range ls {
		l(st)
	}
	return st
}

// dispatchIfCurrent applies e only if no auth transition happened since
// startGen was read. This is how a stale bootstrap or refresh result is kept
// from overwriting a sign-out that won the race.
func (m *Manager) dispatchIfCurrent(startGen uint64, e Event) bool {
	m.mu.Lock()
	if m.gen != startGen {
		m.mu.Unlock()
		return false
	}
	st, ls := m.applyLocked(e)
	m.mu.Unlock()
	for _, l := range ls {
		l(st)
	}
	return true
}

func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Bootstrap restores the session at app launch. It never returns an error;
// every outcome is expressed as a state transition.
func (m *Manager) Bootstrap(ctx context.Context) {
	token, err := m.secure.Get(ctx, keyAuthToken)
	if err != nil {
		m.logger.Warn("secure store read failed", slog.Any("error", err))
		token = ""
	}
	if token == "" {
		m.dispatch(SignedOutEvent{})
		return
	}

	if last, ok := m.lastActivity(ctx); ok && m.now().Sub(last) >= m.cfg.InactivityTimeout {
		m.notifier.CancelAll()
		m.clearPersisted(ctx)
		m.dispatch(SignedOutEvent{Reason: ExpiryInactivity})
		return
	}

	m.auth.SetToken(token)
	startGen := m.generation()

	user, err := m.auth.GetProfile(ctx)
	switch {
	case err == nil:
		m.persistSnapshot(ctx, user)
		if m.dispatchIfCurrent(startGen, SignedInEvent{Token: token, User: user}) {
			m.ResetActivity(ctx)
		}

	case remote.IsUnauthorized(err):
		// The only error treated as proof of an invalid credential.
		m.clearPersisted(ctx)
		m.auth.SetToken("")
		m.dispatchIfCurrent(startGen, SignedOutEvent{})

	default:
		// Server unreachable: a transient failure never destroys state.
		// The degraded fallback is withheld when the token's own exp
		// claim has passed; only an actual 401 clears anything, since a
		// skewed device clock is not proof of an invalid credential.
		if cached := m.loadSnapshot(ctx); cached != nil && !tokenExpired(token, m.now()) {
			m.logger.Info("bootstrap degraded to cached profile", slog.Any("error", err))
			if m.dispatchIfCurrent(startGen, SignedInEvent{Token: token, User: cached, Degraded: true}) {
				m.ResetActivity(ctx)
			}
		} else {
			m.dispatchIfCurrent(startGen, SignedOutEvent{Err: genericConnectivityError})
		}
	}
}

func (m *Manager) SignIn(ctx context.Context, email, password string) Result {
	if email == "" || password == "" {
		return failure("email and password are required")
	}
	return m.completeAuth(ctx, func(ctx context.Context) (*remote.AuthResult, error) {
		return m.auth.Login(ctx, remote.Credentials{Email: email, Password: password})
	})
}

func (m *Manager) SignUp(ctx context.Context, name, email, password string) Result {
	if name == "" || email == "" || password == "" {
		return failure("name, email and password are required")
	}
	if len(password) < 8 {
		return failure("password must be at least 8 characters")
	}
	return m.completeAuth(ctx, func(ctx context.Context) (*remote.AuthResult, error) {
		return m.auth.Register(ctx, remote.SignUpInput{Name: name, Email: email, Password: password})
	})
}

func (m *Manager) SignInWithGoogle(ctx context.Context, input remote.OAuthInput) Result {
	if input.AccessToken == "" && input.IDToken == "" {
		return failure("missing provider token")
	}
	return m.completeAuth(ctx, func(ctx context.Context) (*remote.AuthResult, error) {
		return m.auth.GoogleLogin(ctx, input)
	})
}

func (m *Manager) SignInWithFacebook(ctx context.Context, input remote.OAuthInput) Result {
	if input.AccessToken == "" {
		return failure("missing provider token")
	}
	return m.completeAuth(ctx, func(ctx context.Context) (*remote.AuthResult, error) {
		return m.auth.FacebookLogin(ctx, input)
	})
}

// completeAuth is the shared tail of every authentication path.
func (m *Manager) completeAuth(ctx context.Context, call func(context.Context) (*remote.AuthResult, error)) Result {
	res, err := call(ctx)
	if err != nil {
		msg := userMessage(err)
		m.dispatch(ErrorEvent{Message: msg})
		return failure(msg)
	}

	m.persistSessionData(ctx, res.Token, res.User)
	m.auth.SetToken(res.Token)
	m.dispatch(SignedInEvent{Token: res.Token, User: res.User})
	m.recordRecentAccount(ctx, res.User)

	// Side effects below must not fail the sign-in.
	if err := m.notifier.ScheduleDailyReminder(m.cfg.ReminderHour, m.cfg.ReminderMinute); err != nil {
		m.logger.Warn("reminder scheduling failed", slog.Any("error", err))
	}
	m.armTimer(m.cfg.InactivityTimeout)

	return Result{Success: true}
}

// SignOut tears the session down locally no matter what the server says.
func (m *Manager) SignOut(ctx context.Context) {
	// Best-effort, non-awaited; may even go out after the local token is
	// cleared, in which case the server's 401 is equally ignored.
	go func() {
		lctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.auth.Logout(lctx); err != nil {
			m.logger.Debug("remote logout failed", slog.Any("error", err))
		}
	}()

	m.notifier.CancelAll()
	m.clearPersisted(ctx)
	m.auth.SetToken("")
	m.cancelTimer()
	m.dispatch(SignedOutEvent{})
}

// RefreshUser re-fetches the profile. A failed manual refresh never forces a
// sign-out; the caller just learns it failed.
func (m *Manager) RefreshUser(ctx context.Context) Result {
	m.mu.Lock()
	if m.state.Phase != PhaseSignedIn {
		m.mu.Unlock()
		return failure(domain.ErrNotSignedIn.Error())
	}
	startGen := m.gen
	m.mu.Unlock()

	user, err := m.auth.GetProfile(ctx)
	if err != nil {
		return failure(userMessage(err))
	}

	m.persistSnapshot(ctx, user)
	m.dispatchIfCurrent(startGen, ProfileUpdatedEvent{User: user})
	return Result{Success: true}
}

// UpdateProfile sends a partial profile update, then re-fetches to pick up
// any server-side side effects. The mutation's success stands even if the
// reconciliation fetch fails.
func (m *Manager) UpdateProfile(ctx context.Context, input remote.UpdateProfileInput) Result {
	m.mu.Lock()
	if m.state.Phase != PhaseSignedIn {
		m.mu.Unlock()
		return failure(domain.ErrNotSignedIn.Error())
	}
	startGen := m.gen
	m.mu.Unlock()

	user, err := m.auth.UpdateProfile(ctx, input)
	if err != nil {
		return failure(userMessage(err))
	}
	m.persistSnapshot(ctx, user)
	m.dispatchIfCurrent(startGen, ProfileUpdatedEvent{User: user})

	if fresh, err := m.auth.GetProfile(ctx); err == nil {
		m.persistSnapshot(ctx, fresh)
		m.dispatchIfCurrent(startGen, ProfileUpdatedEvent{User: fresh})
	} else {
		m.logger.Debug("profile reconciliation fetch failed", slog.Any("error", err))
	}
	return Result{Success: true}
}

// SwitchView lets an elevated user preview a lower-privilege surface. Pure
// state mutation; requests above the user's own privilege are ignored.
func (m *Manager) SwitchView(view domain.View) {
	m.mu.Lock()
	if m.state.Phase != PhaseSignedIn || viewRank(view) > viewRank(domain.ViewForRoles(m.state.User.Roles)) {
		m.mu.Unlock()
		return
	}
	st, ls := m.applyLocked(ViewSwitchedEvent{View: view})
	m.mu.Unlock()
	for _, l := range ls {
		l(st)
	}
}

// ClearSessionExpired acknowledges the expiry notice shown on the sign-in
// screen.
func (m *Manager) ClearSessionExpired() {
	m.dispatch(ExpiredClearedEvent{})
}

func viewRank(v domain.View) int {
	switch v {
	case domain.ViewAdmin:
		return 3
	case domain.ViewHost:
		return 2
	default:
		return 1
	}
}

// clearPersisted removes every persisted session artifact. Each delete is
// best-effort: a broken store must not stop a sign-out.
func (m *Manager) clearPersisted(ctx context.Context) {
	if err := m.secure.Delete(ctx, keyAuthToken); err != nil {
		m.logger.Warn("token delete failed", slog.Any("error", err))
	}
	if err := m.blobs.Remove(ctx, keyCachedUser); err != nil {
		m.logger.Warn("cached profile delete failed", slog.Any("error", err))
	}
	if err := m.blobs.Remove(ctx, keyLastActivity); err != nil {
		m.logger.Warn("activity timestamp delete failed", slog.Any("error", err))
	}
}

func (m *Manager) persistSessionData(ctx context.Context, token string, user *domain.User) {
	if err := m.secure.Set(ctx, keyAuthToken, token); err != nil {
		m.logger.Warn("token persist failed, session will not survive restart", slog.Any("error", err))
	}
	m.persistSnapshot(ctx, user)
	m.persistLastActivity(ctx, m.now())
}

func userMessage(err error) string {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericConnectivityError
}

// tokenExpired inspects the JWT exp claim without verifying the signature;
// verification is the server's job. It only gates the offline fallback and
// never triggers a destructive clear on its own. Opaque or claimless tokens
// are never treated as expired.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
