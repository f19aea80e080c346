package masterkey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/facelock/internal/util"
)

func TestLoadOrCreate_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".key")

	h1, err := LoadOrCreate(path)
	require.NoError(t, err)
	sub1, err := h1.Subkey([]byte("facelock:test:v1"))
	require.NoError(t, err)

	// Second load must yield the same key material.
	h2, err := LoadOrCreate(path)
	require.NoError(t, err)
	sub2, err := h2.Subkey([]byte("facelock:test:v1"))
	require.NoError(t, err)

	assert.Equal(t, sub1, sub2)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o400), info.Mode().Perm())
}

func TestLoadOrCreate_TruncatedKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".key")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	_, err := LoadOrCreate(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 32 bytes")
}

func TestSubkey_PurposeSeparation(t *testing.T) {
	key, err := util.NewAESKey()
	require.NoError(t, err)
	h, err := New(key)
	require.NoError(t, err)

	records, err := h.Subkey([]byte("facelock:records:v1"))
	require.NoError(t, err)
	secrets, err := h.Subkey([]byte("facelock:totp:v1"))
	require.NoError(t, err)

	assert.NotEqual(t, records, secrets)
}

func TestNew_BadLength(t *testing.T) {
	_, err := New([]byte("too short"))
	require.Error(t, err)
}

func TestDestroy(t *testing.T) {
	key, err := util.NewAESKey()
	require.NoError(t, err)
	h, err := New(key)
	require.NoError(t, err)

	h.Destroy()
	_, err = h.Subkey([]byte("facelock:test:v1"))
	assert.ErrorIs(t, err, ErrDestroyed)
}
