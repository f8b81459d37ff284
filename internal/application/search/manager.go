package search

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/example/tablesearch/internal/domain/reservation"
	"github.com/example/tablesearch/internal/internaltypes"
)

// SessionManager owns the anonymous credential shared by any number of
// search sessions. It is the only thing that ever writes the token.
type SessionManager struct {
	api reservation.SearchAPI
	log *zap.Logger
	now func() time.Time

	loginTimeout time.Duration
	logins       singleflight.Group

	mu      sync.RWMutex
	token   string
	valid   bool
	loading bool
	lastErr string
}

// AuthState is a read-only view of the credential for presentation.
type AuthState struct {
	Valid   bool   `json:"valid"`
	Loading bool   `json:"loading"`
	Error   string `json:"error"`
}

type ManagerOption func(*SessionManager)

func WithManagerLogger(l *zap.Logger) ManagerOption {
	return func(m *SessionManager) { m.log = l }
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *SessionManager) { m.now = now }
}

// WithLoginTimeout bounds a single anonymous login.
func WithLoginTimeout(d time.Duration) ManagerOption {
	return func(m *SessionManager) { m.loginTimeout = d }
}

func NewSessionManager(api reservation.SearchAPI, opts ...ManagerOption) *SessionManager {
	m := &SessionManager{api: api, log: zap.NewNop(), now: time.Now, loginTimeout: 30 * time.Second}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.Named("auth")
	return m
}

var unverified = jwt.NewParser()

// Token returns the held token, logging in first when there is none or the
// held one is past its exp claim.
func (m *SessionManager) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	tok, valid := m.token, m.valid
	m.mu.RUnlock()

	if valid && tok != "" && !m.expired(tok) {
		return tok, nil
	}
	return m.acquire(ctx, false)
}

// Acquire performs an anonymous login and stores the resulting token. The
// error, if any, is also kept for Snapshot.
func (m *SessionManager) Acquire(ctx context.Context) error {
	_, err := m.acquire(ctx, true)
	return err
}

// Invalidate drops the held token.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	m.token = ""
	m.valid = false
	m.mu.Unlock()
}

// Renew replaces stale with a fresh token. If another caller already
// replaced it, the newer token is returned without logging in again.
func (m *SessionManager) Renew(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	if m.token == stale {
		m.token = ""
		m.valid = false
	}
	m.mu.Unlock()
	return m.Token(ctx)
}

func (m *SessionManager) Snapshot() AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return AuthState{Valid: m.valid && m.token != "", Loading: m.loading, Error: m.lastErr}
}

// acquire collapses concurrent logins into one call. Unless force is set, a
// token stored by a login that finished in the meantime is reused.
//
// The login itself is detached from ctx: a caller that gives up only stops
// waiting, and others sharing the flight still get the token.
func (m *SessionManager) acquire(ctx context.Context, force bool) (string, error) {
	loginCtx := context.WithoutCancel(ctx)
	ch := m.logins.DoChan("login", func() (any, error) {
		m.mu.Lock()
		if !force && m.valid && m.token != "" && !m.expired(m.token) {
			tok := m.token
			m.mu.Unlock()
			return tok, nil
		}
		m.loading = true
		m.lastErr = ""
		m.mu.Unlock()

		lctx, cancel := context.WithTimeout(loginCtx, m.loginTimeout)
		defer cancel()
		tok, err := m.api.LoginAnonymously(lctx)
		if err == nil && tok == "" {
			err = internaltypes.ErrEmptyToken
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.loading = false
		if err != nil {
			authErr := newAuthError(err)
			m.token = ""
			m.valid = false
			m.lastErr = authErr.Error()
			m.log.Warn("anonymous login failed", zap.Error(err))
			return "", authErr
		}
		m.token = tok
		m.valid = true
		m.log.Debug("anonymous login ok")
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			m.log.Debug("joined in-flight login")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// expired reports whether tok is a JWT whose exp claim has passed. Tokens
// that do not parse are treated as opaque and never expire locally.
func (m *SessionManager) expired(tok string) bool {
	parsed, _, err := unverified.ParseUnverified(tok, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !m.now().Before(exp.Time)
}
