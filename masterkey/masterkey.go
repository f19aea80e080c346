// Package masterkey holds the process-wide master key used to seal credential
// records. The key lives outside the store: the store derives record keys from
// a Holder handle and never generates or rotates the key itself.
package masterkey

import (
	"errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/facelock/internal/util"
)

// ErrDestroyed indicates the holder's key material has been destroyed.
var ErrDestroyed = errors.New("master key destroyed")

// Holder owns the master key for the lifetime of the process. Key bytes are
// kept in a memguard enclave and only materialize briefly during derivation.
type Holder struct {
	enclave *memguard.Enclave
}

// New wraps an existing 32-byte master key. The input slice is wiped.
func New(key []byte) (*Holder, error) {
	if len(key) != util.AESKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", util.AESKeySize, len(key))
	}
	// memguard wipes the source buffer when building the enclave.
	return &Holder{enclave: memguard.NewEnclave(key)}, nil
}

// LoadOrCreate reads the master key from path, generating and persisting a
// fresh key on first use. The key file is created read-only for the owner.
func LoadOrCreate(path string) (*Holder, error) {
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(raw) != util.AESKeySize {
			return nil, fmt.Errorf("key file %s: expected %d bytes, got %d", path, util.AESKeySize, len(raw))
		}
		return New(raw)
	case os.IsNotExist(err):
		key, err := util.NewAESKey()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, key, 0o400); err != nil {
			util.WipeBytes(key)
			return nil, fmt.Errorf("writing key file: %w", err)
		}
		return New(key)
	default:
		return nil, fmt.Errorf("reading key file: %w", err)
	}
}

// Subkey derives a purpose-bound 32-byte subkey from the master key via HKDF.
// The caller owns the returned slice and should wipe it after use.
func (h *Holder) Subkey(info []byte) ([]byte, error) {
	if h == nil || h.enclave == nil {
		return nil, ErrDestroyed
	}
	buf, err := h.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("opening master key enclave: %w", err)
	}
	defer buf.Destroy()

	return util.HKDF(buf.Bytes(), nil, info)
}

// Destroy discards the key material. Further derivations fail with
// ErrDestroyed.
func (h *Holder) Destroy() {
	h.enclave = nil
}
