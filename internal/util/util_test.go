package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenAES_RoundTrip(t *testing.T) {
	key, err := NewAESKey()
	require.NoError(t, err)

	plaintext := []byte("reference embedding payload")
	aad := []byte("user:alice:embeddings")

	sealed, err := SealAES(plaintext, key, aad)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)

	opened, err := OpenAES(sealed, key, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpenAES_WrongAAD(t *testing.T) {
	key, err := NewAESKey()
	require.NoError(t, err)

	sealed, err := SealAES([]byte("secret"), key, []byte("user:alice:totp"))
	require.NoError(t, err)

	_, err = OpenAES(sealed, key, []byte("user:mallory:totp"))
	require.Error(t, err)
}

func TestOpenAES_WrongKey(t *testing.T) {
	key, err := NewAESKey()
	require.NoError(t, err)
	other, err := NewAESKey()
	require.NoError(t, err)

	sealed, err := SealAES([]byte("secret"), key, nil)
	require.NoError(t, err)

	_, err = OpenAES(sealed, other, nil)
	require.Error(t, err)
}

func TestSealAES_BadKeySize(t *testing.T) {
	_, err := SealAES([]byte("x"), []byte("short"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid AES key size")
}

func TestHashPassword_VerifyMatch(t *testing.T) {
	h, err := HashPassword("correct horse battery staple", DefaultArgon2idParams())
	require.NoError(t, err)

	assert.True(t, h.Verify("correct horse battery staple"))
	assert.False(t, h.Verify("correct horse battery stable"))
	assert.False(t, h.Verify(""))
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	params := DefaultArgon2idParams()
	a, err := HashPassword("same password", params)
	require.NoError(t, err)
	b, err := HashPassword("same password", params)
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestPasswordHash_VerifyNil(t *testing.T) {
	var h *PasswordHash
	assert.False(t, h.Verify("anything"))
}

func TestHKDF_Deterministic(t *testing.T) {
	seed := []byte("0123456789abcdef0123456789abcdef")

	a, err := HKDF(seed, nil, []byte("facelock:records:v1"))
	require.NoError(t, err)
	b, err := HKDF(seed, nil, []byte("facelock:records:v1"))
	require.NoError(t, err)
	c, err := HKDF(seed, nil, []byte("facelock:attempts:v1"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, HKDFKeyLength)
}

func TestRandomDigits(t *testing.T) {
	s, err := RandomDigits(8)
	require.NoError(t, err)
	require.Len(t, s, 8)
	for _, r := range s {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestNormalize(t *testing.T) {
	// U+FB01 LATIN SMALL LIGATURE FI decomposes under NFKD.
	assert.Equal(t, "fi", Normalize("ﬁ"))
	assert.Equal(t, "plain", Normalize("plain"))
}

func TestWipeBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	WipeBytes(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}

func TestCopyBytes_Independent(t *testing.T) {
	src := []byte{9, 9}
	dst := CopyBytes(src)
	dst[0] = 1
	assert.Equal(t, byte(9), src[0])
}
