package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/archivepanel/pkg/cryptox"
	"github.com/aussiebroadwan/archivepanel/pkg/panelsdk"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, path string, material string) *Store {
	t.Helper()

	sealer, err := cryptox.NewSealer([]byte(material), "panel-token-store")
	require.NoError(t, err)

	s, err := NewStore(path, sealer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, filepath.Join(t.TempDir(), "state.db"), "test-master-key")

	token, err := s.LoadToken(ctx, panelsdk.TokenKey)
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, s.SaveToken(ctx, panelsdk.TokenKey, "first"))
	require.NoError(t, s.SaveToken(ctx, panelsdk.TokenKey, "second"))

	token, err = s.LoadToken(ctx, panelsdk.TokenKey)
	require.NoError(t, err)
	require.Equal(t, "second", token)

	at, ok, err := s.UpdatedAt(ctx, panelsdk.TokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.WithinDuration(t, time.Now(), at, 5*time.Second)

	require.NoError(t, s.DeleteToken(ctx, panelsdk.TokenKey))
	require.NoError(t, s.DeleteToken(ctx, panelsdk.TokenKey))

	token, err = s.LoadToken(ctx, panelsdk.TokenKey)
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestStore_ValuesSealedAtRest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, filepath.Join(t.TempDir(), "state.db"), "test-master-key")
	require.NoError(t, s.SaveToken(ctx, panelsdk.TokenKey, "plain-token-value"))

	var raw []byte
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT value FROM client_state WHERE key = ?`, panelsdk.TokenKey,
	).Scan(&raw))
	require.NotContains(t, string(raw), "plain-token-value")

	t.Run("bound to key", func(t *testing.T) {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)`, "other", raw, 0)
		require.NoError(t, err)

		_, err = s.LoadToken(ctx, "other")
		require.ErrorIs(t, err, ErrUnreadable)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	first := newTestStore(t, path, "test-master-key")
	require.NoError(t, first.SaveToken(ctx, panelsdk.TokenKey, "kept"))
	require.NoError(t, first.Close())

	second := newTestStore(t, path, "test-master-key")
	token, err := second.LoadToken(ctx, panelsdk.TokenKey)
	require.NoError(t, err)
	require.Equal(t, "kept", token)

	rotated := newTestStore(t, path, "another-master-key")
	_, err = rotated.LoadToken(ctx, panelsdk.TokenKey)
	require.ErrorIs(t, err, ErrUnreadable)
}

func TestStore_BacksSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	s := newTestStore(t, path, "test-master-key")
	require.NoError(t, s.SaveToken(ctx, panelsdk.TokenKey, "restored-token"))

	session := panelsdk.NewSession(s)
	require.NoError(t, session.Restore(ctx))
	token, ok := session.Token()
	require.True(t, ok)
	require.Equal(t, "restored-token", token)

	require.NoError(t, session.Clear(ctx))
	stored, err := s.LoadToken(ctx, panelsdk.TokenKey)
	require.NoError(t, err)
	require.Empty(t, stored)
}
