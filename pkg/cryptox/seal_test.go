package cryptox_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/archivepanel/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	t.Parallel()

	s, err := cryptox.NewSealer([]byte("master-key-material"), "session-token")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("eyJhbGciOi..."), []byte("archive1_access_token"))
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "eyJhbGciOi")

	plain, err := s.Open(sealed, []byte("archive1_access_token"))
	require.NoError(t, err)
	require.Equal(t, "eyJhbGciOi...", string(plain))

	t.Run("wrong additional data", func(t *testing.T) {
		_, err := s.Open(sealed, []byte("other-key"))
		require.Error(t, err)
	})

	t.Run("different purpose derives a different key", func(t *testing.T) {
		other, err := cryptox.NewSealer([]byte("master-key-material"), "something-else")
		require.NoError(t, err)

		_, err = other.Open(sealed, []byte("archive1_access_token"))
		require.Error(t, err)
	})

	t.Run("truncated input", func(t *testing.T) {
		_, err := s.Open([]byte("short"), nil)
		require.ErrorIs(t, err, cryptox.ErrCiphertextTooShort)
	})
}

func TestNewSealerRejectsEmptyMaterial(t *testing.T) {
	t.Parallel()

	_, err := cryptox.NewSealer(nil, "x")
	require.Error(t, err)
}

func TestLoadKeyMaterial(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.key")
		require.NoError(t, os.WriteFile(path, []byte("file-key"), 0o600))

		m, ephemeral, err := cryptox.LoadKeyMaterial(path, "PANEL_TEST_MASTER_KEY")
		require.NoError(t, err)
		require.False(t, ephemeral)
		require.Equal(t, "file-key", string(m))
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv("PANEL_TEST_MASTER_KEY", "env-key")

		m, ephemeral, err := cryptox.LoadKeyMaterial("", "PANEL_TEST_MASTER_KEY")
		require.NoError(t, err)
		require.False(t, ephemeral)
		require.Equal(t, "env-key", string(m))
	})

	t.Run("ephemeral fallback", func(t *testing.T) {
		t.Setenv("PANEL_TEST_MASTER_KEY", "")

		m, ephemeral, err := cryptox.LoadKeyMaterial("", "PANEL_TEST_MASTER_KEY")
		require.NoError(t, err)
		require.True(t, ephemeral)
		require.Len(t, m, 32)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := cryptox.LoadKeyMaterial(filepath.Join(t.TempDir(), "nope"), "PANEL_TEST_MASTER_KEY")
		require.Error(t, err)
	})
}

func TestEnsureKeyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "master.key")

	first, err := cryptox.EnsureKeyFile(path)
	require.NoError(t, err)
	require.Len(t, first, 32)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := cryptox.EnsureKeyFile(path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	empty := filepath.Join(t.TempDir(), "empty.key")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = cryptox.EnsureKeyFile(empty)
	require.Error(t, err)
}
