package panelsdk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKey is the fixed key the session token is persisted under.
const TokenKey = "archive1_access_token"

// TokenStore persists the session token between process runs. LoadToken
// returns "" and a nil error when nothing is stored.
type TokenStore interface {
	LoadToken(ctx context.Context, key string) (string, error)
	SaveToken(ctx context.Context, key, token string) error
	DeleteToken(ctx context.Context, key string) error
}

// SessionState is the coarse state of the session state machine.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateAuthenticated
)

func (s SessionState) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Session is the single client-held credential state. It starts anonymous,
// is established by login and cleared by logout or by any 401/403 response.
// All methods are safe for concurrent use; writes are serialized by mu.
type Session struct {
	store TokenStore
	now   func() time.Time

	mu                     sync.RWMutex
	state                  SessionState
	token                  string
	expiresAt              time.Time // zero when the token carries no exp claim
	passwordChangeRequired bool
	onClear                func()
}

// NewSession returns an anonymous session. A nil store keeps the token in
// memory only.
func NewSession(store TokenStore) *Session {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	return &Session{store: store, now: time.Now}
}

// Restore loads a persisted token, if any. Expired tokens are discarded.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.store.LoadToken(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("failed to load session token: %w", err)
	}
	if token == "" {
		return nil
	}

	exp, _ := tokenExpiry(token)
	if !exp.IsZero() && !s.now().Before(exp) {
		if err := s.store.DeleteToken(ctx, TokenKey); err != nil {
			return fmt.Errorf("failed to drop expired session token: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAuthenticated
	s.token = token
	s.expiresAt = exp
	return nil
}

// establish moves the session to authenticated with token. The in-memory
// session is updated even if persisting fails; the persistence error is
// returned for logging.
func (s *Session) establish(ctx context.Context, token string) error {
	exp, _ := tokenExpiry(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateAuthenticated
	s.token = token
	s.expiresAt = exp
	s.passwordChangeRequired = false

	if token == "" {
		return nil
	}
	if err := s.store.SaveToken(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	return nil
}

// Clear returns the session to anonymous, drops the persisted token and runs
// the clear hook (cookie jar reset).
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateAnonymous
	s.token = ""
	s.expiresAt = time.Time{}
	s.passwordChangeRequired = false

	if s.onClear != nil {
		s.onClear()
	}

	if err := s.store.DeleteToken(ctx, TokenKey); err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

// Token returns the bearer token while the session is authenticated and the
// token has not expired.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateAuthenticated || s.token == "" || s.expiredLocked() {
		return "", false
	}
	return s.token, true
}

// State returns the current state. An expired token reads as anonymous.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == StateAuthenticated && s.expiredLocked() {
		return StateAnonymous
	}
	return s.state
}

// Authenticated reports whether State is StateAuthenticated.
func (s *Session) Authenticated() bool {
	return s.State() == StateAuthenticated
}

// ExpiresAt returns the token expiry when the token carries one.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt, !s.expiresAt.IsZero()
}

// PasswordChangeRequired reports the sub-flag of the authenticated state.
func (s *Session) PasswordChangeRequired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateAuthenticated && s.passwordChangeRequired
}

func (s *Session) setPasswordChangeRequired(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwordChangeRequired = v
}

func (s *Session) setOnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = fn
}

func (s *Session) expiredLocked() bool {
	return !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt)
}

// tokenExpiry reads the exp claim of a JWT without verifying it. The server
// stays the authority on validity.
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

// ============================================================================
// In-memory Token Store
// ============================================================================

// MemoryTokenStore keeps tokens for the lifetime of the process.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewMemoryTokenStore returns an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: map[string]string{}}
}

func (m *MemoryTokenStore) LoadToken(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[key], nil
}

func (m *MemoryTokenStore) SaveToken(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = token
	return nil
}

func (m *MemoryTokenStore) DeleteToken(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}
