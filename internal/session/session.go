// Package session keeps a profile's tokens in a Store and refreshes the
// access token shortly before it expires.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/carryon-app/carryon/internal/logging"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrNoRefreshToken = errors.New("session expired and no refresh token is available")
)

// DefaultRefreshSkew is how long before expiry a token is refreshed.
const DefaultRefreshSkew = 30 * time.Second

// Tokens is what the backend issues on login, OAuth exchange and refresh.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Expiry returns when the access token expires: ExpiresAt if set, otherwise
// the exp claim of the token read without verifying its signature. The
// client cannot verify server signatures; the backend remains the authority.
func (t Tokens) Expiry() (time.Time, bool) {
	if !t.ExpiresAt.IsZero() {
		return t.ExpiresAt, true
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.AccessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Subject returns the sub claim of the access token, if it is a JWT.
func (t Tokens) Subject() string {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.AccessToken, &claims); err != nil {
		return ""
	}
	return claims.Subject
}

// Refresher exchanges a refresh token for new tokens.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRefreshSkew overrides DefaultRefreshSkew.
func WithRefreshSkew(d time.Duration) Option {
	return func(m *Manager) { m.skew = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager owns one profile's tokens.
type Manager struct {
	store     Store
	key       string
	refresher Refresher
	skew      time.Duration
	now       func() time.Time
	logger    *logging.Logger

	// mu serializes refreshes so concurrent callers share one.
	mu sync.Mutex
}

func NewManager(store Store, profile string, refresher Refresher, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		key:       profile + "/tokens",
		refresher: refresher,
		skew:      DefaultRefreshSkew,
		now:       time.Now,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetRefresher sets the refresher after construction, for when the
// refresher itself needs the manager.
func (m *Manager) SetRefresher(r Refresher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresher = r
}

func (m *Manager) Save(ctx context.Context, t Tokens) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, m.key, string(data)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the stored tokens, or ErrNotLoggedIn.
func (m *Manager) Load(ctx context.Context) (Tokens, error) {
	var t Tokens
	raw, err := m.store.Get(ctx, m.key)
	if errors.Is(err, ErrNotFound) {
		return t, ErrNotLoggedIn
	}
	if err != nil {
		return t, fmt.Errorf("failed to load session: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return t, fmt.Errorf("failed to decode session: %w", err)
	}
	if t.AccessToken == "" {
		return t, ErrNotLoggedIn
	}
	return t, nil
}

func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, m.key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// AccessToken returns a usable access token, refreshing it first if it
// expires within the refresh skew. Tokens with no known expiry are used as-is.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.Load(ctx)
	if err != nil {
		return "", err
	}
	if !m.expiring(t) {
		return t.AccessToken, nil
	}

	m.logger.DebugContext(ctx, "Access token expiring, refreshing")
	refreshed, err := m.refresh(ctx, t)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Refresh forces a refresh regardless of expiry.
func (m *Manager) Refresh(ctx context.Context) (Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.Load(ctx)
	if err != nil {
		return Tokens{}, err
	}
	return m.refresh(ctx, t)
}

func (m *Manager) refresh(ctx context.Context, current Tokens) (Tokens, error) {
	if current.RefreshToken == "" || m.refresher == nil {
		return Tokens{}, ErrNoRefreshToken
	}

	next, err := m.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to refresh session: %w", err)
	}
	// The backend may not rotate refresh tokens.
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if err := m.Save(ctx, next); err != nil {
		return Tokens{}, err
	}
	return next, nil
}

func (m *Manager) expiring(t Tokens) bool {
	exp, ok := t.Expiry()
	if !ok {
		return false
	}
	return !m.now().Add(m.skew).Before(exp)
}
