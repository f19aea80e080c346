// Package credstore manages enrolled credentials on top of the storage layer:
// sealing and opening encrypted fields with keys derived from the master key,
// password verification, the failed-attempt lockout policy, and the TOTP
// replay guard.
package credstore

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"

	"github.com/jmcleod/facelock/internal/util"
	"github.com/jmcleod/facelock/masterkey"
	"github.com/jmcleod/facelock/storage"
)

const (
	// MaxFailedAttempts arms the lockout once reached.
	MaxFailedAttempts = 3

	// LockoutDuration is how long a locked account refuses attempts.
	LockoutDuration = 5 * time.Minute
)

// Subkey derivation labels. Changing one orphans every record sealed under it.
var (
	embeddingKeyInfo = []byte("facelock/embedding/v1")
	totpKeyInfo      = []byte("facelock/totp/v1")
)

// Store seals and opens credential records and enforces the lockout policy.
// All mutations go through Repository.UpdateUser so concurrent attempts never
// lose counter increments.
type Store struct {
	repo  storage.Repository
	keys  *masterkey.Holder
	locks *userLocks
	now   func() time.Time
}

// Option adjusts Store construction.
type Option func(*Store)

// WithClock substitutes the time source, for lockout tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over the repository, deriving record keys from keys.
func New(repo storage.Repository, keys *masterkey.Holder, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		keys:  keys,
		locks: newUserLocks(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// aad binds a sealed field to its owner and purpose, so an envelope copied
// between records or columns fails to open.
func aad(username, purpose string) []byte {
	return []byte(purpose + "\x00" + username)
}

// Enroll persists a new user: hashed password, sealed face embeddings, sealed
// TOTP secret, and hashes of the single-use backup codes. Returns
// storage.ErrUserExists if the username is taken.
func (s *Store) Enroll(username, password string, embeddings [][]float64, totpSecret string, backupCodes []string) error {
	if len(embeddings) == 0 {
		return fmt.Errorf("enrolling %q: no face embeddings", username)
	}

	hash, err := util.HashPassword(password, util.DefaultArgon2idParams())
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	embKey, err := s.keys.Subkey(embeddingKeyInfo)
	if err != nil {
		return err
	}
	defer util.WipeBytes(embKey)

	sealed := make([]*storage.Envelope, len(embeddings))
	for i, emb := range embeddings {
		plaintext, err := json.Marshal(emb)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		env, err := storage.Seal(embKey, plaintext, aad(username, "embedding"))
		util.WipeBytes(plaintext)
		if err != nil {
			return fmt.Errorf("sealing embedding: %w", err)
		}
		sealed[i] = env
	}

	totpKey, err := s.keys.Subkey(totpKeyInfo)
	if err != nil {
		return err
	}
	defer util.WipeBytes(totpKey)

	secretEnv, err := storage.Seal(totpKey, []byte(totpSecret), aad(username, "totp"))
	if err != nil {
		return fmt.Errorf("sealing totp secret: %w", err)
	}

	codeHashes := make([][]byte, len(backupCodes))
	for i, code := range backupCodes {
		codeHashes[i] = hashBackupCode(code)
	}

	return s.repo.CreateUser(&storage.UserRecord{
		Username:         username,
		PasswordHash:     hash,
		Embeddings:       sealed,
		TOTPSecret:       secretEnv,
		BackupCodeHashes: codeHashes,
		CreatedAt:        s.now().UTC(),
	})
}

func hashBackupCode(code string) []byte {
	sum := sha256.Sum256([]byte(strings.ToUpper(strings.TrimSpace(code))))
	return sum[:]
}

// ConsumeBackupCode redeems a single-use recovery code. A matching hash is
// removed from the record so the code can never be redeemed twice.
func (s *Store) ConsumeBackupCode(username, code string) (bool, error) {
	candidate := hashBackupCode(code)
	redeemed := false
	err := s.repo.UpdateUser(username, func(r *storage.UserRecord) error {
		for i, h := range r.BackupCodeHashes {
			if subtle.ConstantTimeCompare(h, candidate) == 1 {
				r.BackupCodeHashes = append(r.BackupCodeHashes[:i], r.BackupCodeHashes[i+1:]...)
				redeemed = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return redeemed, nil
}

// VerifyPassword checks the password against the stored Argon2id hash.
// Returns storage.ErrNotFound for unknown users; callers are expected to
// collapse that into the same outward denial as a wrong password.
func (s *Store) VerifyPassword(username, password string) (bool, error) {
	rec, err := s.repo.GetUser(username)
	if err != nil {
		return false, err
	}
	return rec.PasswordHash.Verify(password), nil
}

// Embeddings opens and decodes the user's enrolled face embeddings.
func (s *Store) Embeddings(username string) ([][]float64, error) {
	rec, err := s.repo.GetUser(username)
	if err != nil {
		return nil, err
	}

	key, err := s.keys.Subkey(embeddingKeyInfo)
	if err != nil {
		return nil, err
	}
	defer util.WipeBytes(key)

	out := make([][]float64, len(rec.Embeddings))
	for i, env := range rec.Embeddings {
		plaintext, err := env.Open(key, aad(username, "embedding"))
		if err != nil {
			return nil, fmt.Errorf("opening embedding %d for %q: %w", i, username, err)
		}
		var emb []float64
		if err := json.Unmarshal(plaintext, &emb); err != nil {
			util.WipeBytes(plaintext)
			return nil, fmt.Errorf("decoding embedding %d for %q: %w", i, username, err)
		}
		util.WipeBytes(plaintext)
		out[i] = emb
	}
	return out, nil
}

// TOTPSecret opens the user's TOTP secret into a locked buffer. The caller
// must Destroy the buffer as soon as the code check is done.
func (s *Store) TOTPSecret(username string) (*memguard.LockedBuffer, error) {
	rec, err := s.repo.GetUser(username)
	if err != nil {
		return nil, err
	}

	key, err := s.keys.Subkey(totpKeyInfo)
	if err != nil {
		return nil, err
	}
	defer util.WipeBytes(key)

	plaintext, err := rec.TOTPSecret.Open(key, aad(username, "totp"))
	if err != nil {
		return nil, fmt.Errorf("opening totp secret for %q: %w", username, err)
	}
	// memguard wipes the source slice when building the buffer.
	return memguard.NewBufferFromBytes(plaintext), nil
}

// CheckLockout reports whether the account currently refuses attempts. An
// expired lockout is cleared on observation, resetting the attempt counter.
func (s *Store) CheckLockout(username string) (locked bool, until time.Time, err error) {
	rec, err := s.repo.GetUser(username)
	if err != nil {
		return false, time.Time{}, err
	}
	if rec.LockoutUntil == nil {
		return false, time.Time{}, nil
	}

	if s.now().Before(*rec.LockoutUntil) {
		return true, *rec.LockoutUntil, nil
	}

	err = s.repo.UpdateUser(username, func(r *storage.UserRecord) error {
		// Re-check under the write transaction: another attempt may have
		// already cleared and re-armed it.
		if r.LockoutUntil != nil && !s.now().Before(*r.LockoutUntil) {
			r.LockoutUntil = nil
			r.FailedAttempts = 0
		}
		return nil
	})
	if err != nil {
		return false, time.Time{}, err
	}
	return false, time.Time{}, nil
}

// RecordFailure counts a failed attempt, arming the lockout when the count
// reaches MaxFailedAttempts, and appends the outcome to the attempt log.
func (s *Store) RecordFailure(username, reason string) (lockedNow bool, err error) {
	err = s.repo.UpdateUser(username, func(r *storage.UserRecord) error {
		r.FailedAttempts++
		if r.FailedAttempts >= MaxFailedAttempts && r.LockoutUntil == nil {
			until := s.now().Add(LockoutDuration).UTC()
			r.LockoutUntil = &until
			lockedNow = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return lockedNow, s.appendAttempt(username, false, reason)
}

// RecordSuccess resets the failure state, stamps the login time, and appends
// the outcome to the attempt log.
func (s *Store) RecordSuccess(username string) error {
	err := s.repo.UpdateUser(username, func(r *storage.UserRecord) error {
		r.FailedAttempts = 0
		r.LockoutUntil = nil
		now := s.now().UTC()
		r.LastLogin = &now
		return nil
	})
	if err != nil {
		return err
	}
	return s.appendAttempt(username, true, "")
}

// ConsumeTOTPStep records the accepted TOTP time step. It reports false when
// the step has already been used, which the caller must treat as a failed
// code: accepting it would let a shoulder-surfed code replay within its step.
func (s *Store) ConsumeTOTPStep(username string, step uint64) (bool, error) {
	fresh := false
	err := s.repo.UpdateUser(username, func(r *storage.UserRecord) error {
		if step <= r.LastTOTPStep {
			return nil
		}
		r.LastTOTPStep = step
		fresh = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return fresh, nil
}

// Attempts returns the most recent attempt records, newest first.
func (s *Store) Attempts(username string, limit int) ([]*storage.AttemptRecord, error) {
	return s.repo.ListAttempts(username, limit)
}

// LogAttempt appends an outcome that does not touch the failure counter,
// such as an attempt refused while the account is locked.
func (s *Store) LogAttempt(username string, success bool, reason string) error {
	return s.appendAttempt(username, success, reason)
}

func (s *Store) appendAttempt(username string, success bool, reason string) error {
	return s.repo.AppendAttempt(&storage.AttemptRecord{
		ID:       uuid.NewString(),
		Username: username,
		At:       s.now().UTC(),
		Success:  success,
		Reason:   reason,
	})
}
