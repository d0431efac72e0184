package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

type fakeRefresher struct {
	calls  atomic.Int32
	tokens Tokens
	err    error
	delay  time.Duration
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (Tokens, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	if f.err != nil {
		return Tokens{}, f.err
	}
	return f.tokens, nil
}

func TestTokens_Expiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	t.Run("explicit", func(t *testing.T) {
		got, ok := Tokens{AccessToken: "opaque", ExpiresAt: exp}.Expiry()
		require.True(t, ok)
		assert.True(t, exp.Equal(got))
	})

	t.Run("from jwt", func(t *testing.T) {
		got, ok := Tokens{AccessToken: signedToken(t, "user-1", exp)}.Expiry()
		require.True(t, ok)
		assert.True(t, exp.Equal(got))
	})

	t.Run("opaque token", func(t *testing.T) {
		_, ok := Tokens{AccessToken: "opaque"}.Expiry()
		assert.False(t, ok)
	})
}

func TestTokens_Subject(t *testing.T) {
	assert.Equal(t, "user-9", Tokens{AccessToken: signedToken(t, "user-9", time.Now().Add(time.Hour))}.Subject())
	assert.Empty(t, Tokens{AccessToken: "opaque"}.Subject())
}

func TestManager_NotLoggedIn(t *testing.T) {
	m := NewManager(NewMemoryStore(), "default", nil)

	_, err := m.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestManager_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), "default", nil)

	require.NoError(t, m.Save(ctx, Tokens{AccessToken: "a", RefreshToken: "r"}))
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)

	require.NoError(t, m.Clear(ctx))
	_, err = m.Load(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestManager_AccessToken_Valid(t *testing.T) {
	ctx := context.Background()
	refresher := &fakeRefresher{}
	m := NewManager(NewMemoryStore(), "default", refresher)
	token := signedToken(t, "u", time.Now().Add(time.Hour))
	require.NoError(t, m.Save(ctx, Tokens{AccessToken: token, RefreshToken: "r"}))

	got, err := m.AccessToken(ctx)

	require.NoError(t, err)
	assert.Equal(t, token, got)
	assert.Equal(t, int32(0), refresher.calls.Load())
}

func TestManager_AccessToken_RefreshesWithinSkew(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	refresher := &fakeRefresher{tokens: Tokens{AccessToken: "fresh", ExpiresAt: now.Add(time.Hour)}}
	store := NewMemoryStore()
	m := NewManager(store, "default", refresher, WithClock(func() time.Time { return now }), WithRefreshSkew(time.Minute))
	require.NoError(t, m.Save(ctx, Tokens{AccessToken: "stale", RefreshToken: "r1", ExpiresAt: now.Add(30 * time.Second)}))

	got, err := m.AccessToken(ctx)

	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
	saved, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "r1", saved.RefreshToken, "refresh token kept when not rotated")
}

func TestManager_AccessToken_SingleRefreshUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	refresher := &fakeRefresher{
		tokens: Tokens{AccessToken: "fresh", RefreshToken: "r2", ExpiresAt: time.Now().Add(time.Hour)},
		delay:  20 * time.Millisecond,
	}
	m := NewManager(NewMemoryStore(), "default", refresher)
	require.NoError(t, m.Save(ctx, Tokens{AccessToken: "stale", RefreshToken: "r1", ExpiresAt: time.Now().Add(-time.Minute)}))

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := m.AccessToken(ctx)
			assert.NoError(t, err)
			results[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), refresher.calls.Load())
	for _, tok := range results {
		assert.Equal(t, "fresh", tok)
	}
}

func TestManager_AccessToken_NoRefreshToken(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), "default", &fakeRefresher{})
	require.NoError(t, m.Save(ctx, Tokens{AccessToken: "stale", ExpiresAt: time.Now().Add(-time.Minute)}))

	_, err := m.AccessToken(ctx)

	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestManager_AccessToken_RefreshFails(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("refresh rejected")
	m := NewManager(NewMemoryStore(), "default", &fakeRefresher{err: boom})
	require.NoError(t, m.Save(ctx, Tokens{AccessToken: "stale", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute)}))

	_, err := m.AccessToken(ctx)

	assert.ErrorIs(t, err, boom)
	saved, loadErr := m.Load(ctx)
	require.NoError(t, loadErr)
	assert.Equal(t, "stale", saved.AccessToken, "failed refresh leaves the session untouched")
}

func TestManager_ProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	work := NewManager(store, "work", nil)
	home := NewManager(store, "home", nil)

	require.NoError(t, work.Save(ctx, Tokens{AccessToken: "w"}))

	_, err := home.Load(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}
