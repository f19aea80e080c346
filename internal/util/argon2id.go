package util

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2idParams configures Argon2id key derivation for password hashing.
type Argon2idParams struct {
	Time        uint32 `json:"time"`
	MemoryKiB   uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
	KeyLen      uint32 `json:"key_len"`
}

// DefaultArgon2idParams returns the fixed production parameters. The cost is
// deliberately a constant rather than configuration: weakening it must be a
// code change, not a deployment mistake.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        2,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
	}
}

const passwordSaltSize = 16

// PasswordHash is a salted, parameterized Argon2id digest of a password.
// The parameters travel with the hash so records survive future cost bumps.
type PasswordHash struct {
	Salt   []byte         `json:"salt"`
	Params Argon2idParams `json:"params"`
	Hash   []byte         `json:"hash"`
}

// HashPassword derives a PasswordHash from the (pre-normalized) password
// using a fresh random salt.
func HashPassword(password string, params Argon2idParams) (*PasswordHash, error) {
	if params.KeyLen != 32 {
		return nil, fmt.Errorf("argon2id key length must be 32 bytes")
	}
	salt := make([]byte, passwordSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating password salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)
	return &PasswordHash{Salt: salt, Params: params, Hash: hash}, nil
}

// Verify reports whether the password matches the stored hash. The comparison
// is constant time over the derived key.
func (h *PasswordHash) Verify(password string) bool {
	if h == nil || len(h.Salt) == 0 || len(h.Hash) == 0 {
		return false
	}
	candidate := argon2.IDKey([]byte(password), h.Salt, h.Params.Time, h.Params.MemoryKiB, h.Params.Parallelism, h.Params.KeyLen)
	return subtle.ConstantTimeCompare(candidate, h.Hash) == 1
}
