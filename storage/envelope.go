// Package storage defines the persistent layout for user credential records
// and the repository abstraction over durable backends.
package storage

import (
	"fmt"

	"github.com/jmcleod/facelock/internal/util"
)

// Envelope is a sealed field containing AES-256-GCM encrypted data. The
// version and scheme tags allow future re-encryption without data loss.
type Envelope struct {
	Ver        int    `json:"ver"`
	Scheme     string `json:"scheme"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

const (
	envelopeVer    = 1
	envelopeScheme = "aes256gcm"
)

// Seal encrypts plaintext into an Envelope under the given key, binding aad.
func Seal(key, plaintext, aad []byte) (*Envelope, error) {
	sealed, err := util.SealAES(plaintext, key, aad)
	if err != nil {
		return nil, err
	}

	// util.SealAES returns nonce || ciphertext.
	return &Envelope{
		Ver:        envelopeVer,
		Scheme:     envelopeScheme,
		Nonce:      sealed[:12],
		Ciphertext: sealed[12:],
	}, nil
}

// Open decrypts the envelope under the given key and aad.
func (e *Envelope) Open(key, aad []byte) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("nil envelope")
	}
	if e.Ver != envelopeVer {
		return nil, fmt.Errorf("unsupported envelope version: %d", e.Ver)
	}
	if e.Scheme != envelopeScheme {
		return nil, fmt.Errorf("unsupported envelope scheme: %s", e.Scheme)
	}

	sealed := make([]byte, len(e.Nonce)+len(e.Ciphertext))
	copy(sealed, e.Nonce)
	copy(sealed[len(e.Nonce):], e.Ciphertext)

	return util.OpenAES(sealed, key, aad)
}

// Clone returns an independent copy of the envelope.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	return &Envelope{
		Ver:        e.Ver,
		Scheme:     e.Scheme,
		Nonce:      util.CopyBytes(e.Nonce),
		Ciphertext: util.CopyBytes(e.Ciphertext),
	}
}
