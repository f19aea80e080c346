// Package memory provides a thread-safe in-memory implementation of
// storage.Repository, suitable for tests and demos.
package memory

import (
	"fmt"
	"sync"

	"github.com/jmcleod/facelock/storage"
)

// Repository is an in-memory storage.Repository.
type Repository struct {
	mu       sync.RWMutex
	users    map[string]*storage.UserRecord
	attempts map[string][]*storage.AttemptRecord
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates an empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{
		users:    make(map[string]*storage.UserRecord),
		attempts: make(map[string][]*storage.AttemptRecord),
	}
}

func (r *Repository) CreateUser(rec *storage.UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[rec.Username]; ok {
		return fmt.Errorf("%s: %w", rec.Username, storage.ErrUserExists)
	}
	r.users[rec.Username] = rec.Clone()
	return nil
}

func (r *Repository) GetUser(username string) (*storage.UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.users[username]
	if !ok {
		return nil, fmt.Errorf("%s: %w", username, storage.ErrNotFound)
	}
	return rec.Clone(), nil
}

func (r *Repository) UpdateUser(username string, fn func(*storage.UserRecord) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.users[username]
	if !ok {
		return fmt.Errorf("%s: %w", username, storage.ErrNotFound)
	}
	updated := rec.Clone()
	if err := fn(updated); err != nil {
		return err
	}
	r.users[username] = updated
	return nil
}

func (r *Repository) AppendAttempt(rec *storage.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *rec
	r.attempts[rec.Username] = append(r.attempts[rec.Username], &c)
	return nil
}

func (r *Repository) ListAttempts(username string, limit int) ([]*storage.AttemptRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.attempts[username]
	out := make([]*storage.AttemptRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		c := *all[i]
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
