package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/facelock/internal/util"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	key, err := util.NewAESKey()
	require.NoError(t, err)

	aad := []byte("alice:embedding:0")
	env, err := Seal(key, []byte("payload"), aad)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Ver)
	assert.Equal(t, "aes256gcm", env.Scheme)
	assert.Len(t, env.Nonce, 12)

	got, err := env.Open(key, aad)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestOpen_RejectsUnknownFormat(t *testing.T) {
	key, err := util.NewAESKey()
	require.NoError(t, err)
	env, err := Seal(key, []byte("payload"), nil)
	require.NoError(t, err)

	bad := env.Clone()
	bad.Ver = 2
	_, err = bad.Open(key, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported envelope version")

	bad = env.Clone()
	bad.Scheme = "chacha20"
	_, err = bad.Open(key, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported envelope scheme")
}

func TestOpen_NilEnvelope(t *testing.T) {
	var env *Envelope
	_, err := env.Open(make([]byte, util.AESKeySize), nil)
	require.Error(t, err)
}

func TestClone_Independent(t *testing.T) {
	key, err := util.NewAESKey()
	require.NoError(t, err)
	env, err := Seal(key, []byte("payload"), nil)
	require.NoError(t, err)

	c := env.Clone()
	c.Ciphertext[0] ^= 0xff
	got, err := env.Open(key, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}
