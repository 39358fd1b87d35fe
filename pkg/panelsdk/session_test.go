package panelsdk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*MemoryTokenStore
	err error
}

func (f *failingStore) SaveToken(context.Context, string, string) error { return f.err }

func TestSession_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryTokenStore()
	s := NewSession(store)

	require.Equal(t, StateAnonymous, s.State())
	_, ok := s.Token()
	require.False(t, ok)

	require.NoError(t, s.establish(ctx, "opaque-token"))
	require.Equal(t, StateAuthenticated, s.State())
	token, ok := s.Token()
	require.True(t, ok)
	require.Equal(t, "opaque-token", token)

	_, ok = s.ExpiresAt()
	require.False(t, ok, "opaque tokens carry no expiry")

	cleared := false
	s.setOnClear(func() { cleared = true })
	require.NoError(t, s.Clear(ctx))
	require.True(t, cleared)
	require.Equal(t, StateAnonymous, s.State())

	stored, err := store.LoadToken(ctx, TokenKey)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestSession_Expiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(nil)
	s.now = func() time.Time { return now }

	require.NoError(t, s.establish(context.Background(), signedToken(t, now.Add(time.Minute))))
	require.True(t, s.Authenticated())

	now = now.Add(2 * time.Minute)
	require.False(t, s.Authenticated())
	_, ok := s.Token()
	require.False(t, ok, "expired token must not be sent")
}

func TestSession_Restore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryTokenStore()
		token := signedToken(t, time.Now().Add(time.Hour))
		require.NoError(t, store.SaveToken(ctx, TokenKey, token))

		s := NewSession(store)
		require.NoError(t, s.Restore(ctx))
		got, ok := s.Token()
		require.True(t, ok)
		require.Equal(t, token, got)
	})

	t.Run("expired token dropped", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryTokenStore()
		require.NoError(t, store.SaveToken(ctx, TokenKey, signedToken(t, time.Now().Add(-time.Hour))))

		s := NewSession(store)
		require.NoError(t, s.Restore(ctx))
		require.False(t, s.Authenticated())

		stored, err := store.LoadToken(ctx, TokenKey)
		require.NoError(t, err)
		require.Empty(t, stored)
	})

	t.Run("nothing stored", func(t *testing.T) {
		t.Parallel()

		s := NewSession(NewMemoryTokenStore())
		require.NoError(t, s.Restore(ctx))
		require.False(t, s.Authenticated())
	})
}

func TestSession_PersistFailureKeepsMemoryState(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	s := NewSession(&failingStore{MemoryTokenStore: NewMemoryTokenStore(), err: boom})

	err := s.establish(context.Background(), "opaque-token")
	require.ErrorIs(t, err, boom)
	require.True(t, s.Authenticated())
}

func TestSession_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSession(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.establish(ctx, "opaque-token")
				_ = s.Clear(ctx)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if token, ok := s.Token(); ok && token != "opaque-token" {
					t.Errorf("unexpected token %q", token)
				}
				_ = s.State()
			}
		}()
	}
	wg.Wait()
}
