package storage

import (
	"time"

	"github.com/jmcleod/facelock/internal/util"
)

// UserRecord is the persistent state for one enrolled user. Encrypted fields
// are opaque envelopes; the record is mutated only through Repository
// operations.
type UserRecord struct {
	Username       string             `json:"username"`
	PasswordHash   *util.PasswordHash `json:"password_hash"`
	Embeddings     []*Envelope        `json:"embeddings"`
	TOTPSecret     *Envelope          `json:"totp_secret"`
	// BackupCodeHashes are SHA-256 digests of unredeemed recovery codes.
	// Redeeming a code removes its hash.
	BackupCodeHashes [][]byte   `json:"backup_code_hashes,omitempty"`
	FailedAttempts   int        `json:"failed_attempts"`
	LockoutUntil     *time.Time `json:"lockout_until,omitempty"`
	LastTOTPStep     uint64     `json:"last_totp_step"`
	CreatedAt        time.Time  `json:"created_at"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
}

// Clone returns a deep copy so backends never hand out aliased state.
func (r *UserRecord) Clone() *UserRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.PasswordHash != nil {
		ph := *r.PasswordHash
		ph.Salt = util.CopyBytes(r.PasswordHash.Salt)
		ph.Hash = util.CopyBytes(r.PasswordHash.Hash)
		c.PasswordHash = &ph
	}
	c.Embeddings = make([]*Envelope, len(r.Embeddings))
	for i, e := range r.Embeddings {
		c.Embeddings[i] = e.Clone()
	}
	c.TOTPSecret = r.TOTPSecret.Clone()
	if r.BackupCodeHashes != nil {
		c.BackupCodeHashes = make([][]byte, len(r.BackupCodeHashes))
		for i, h := range r.BackupCodeHashes {
			c.BackupCodeHashes[i] = util.CopyBytes(h)
		}
	}
	if r.LockoutUntil != nil {
		t := *r.LockoutUntil
		c.LockoutUntil = &t
	}
	if r.LastLogin != nil {
		t := *r.LastLogin
		c.LastLogin = &t
	}
	return &c
}

// AttemptRecord is one append-only authentication attempt outcome.
type AttemptRecord struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
	Success  bool      `json:"success"`
	Reason   string    `json:"reason,omitempty"`
}
