package storage

import "errors"

var (
	// ErrNotFound is returned when no record exists for the username.
	ErrNotFound = errors.New("user record not found")
	// ErrUserExists is returned when creating a record for a taken username.
	ErrUserExists = errors.New("username already exists")
)

// Repository persists user records and the append-only attempt log.
//
// UpdateUser must apply fn as an atomic read-modify-write: concurrent updates
// for the same username must never lose counter increments. Backends are
// expected to commit synchronously, since lockout state must survive a crash
// mid-attempt.
type Repository interface {
	CreateUser(rec *UserRecord) error
	GetUser(username string) (*UserRecord, error)
	UpdateUser(username string, fn func(*UserRecord) error) error
	AppendAttempt(rec *AttemptRecord) error
	ListAttempts(username string, limit int) ([]*AttemptRecord, error)
}
