// Package bbolt provides a BBolt-backed credential repository.
package bbolt

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/facelock/storage"
)

var (
	bucketUsers    = []byte("users")
	bucketAttempts = []byte("attempts")
)

// Store implements storage.Repository backed by a BBolt database. BBolt
// commits synchronously by default, which the lockout invariants rely on.
type Store struct {
	db *bbolt.DB
}

var _ storage.Repository = (*Store)(nil)

// Open opens (or creates) a BBolt database at the given path.
func Open(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketUsers); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketAttempts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateUser(rec *storage.UserRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		key := []byte(rec.Username)
		if b.Get(key) != nil {
			return fmt.Errorf("%s: %w", rec.Username, storage.ErrUserExists)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *Store) GetUser(username string) (*storage.UserRecord, error) {
	var rec storage.UserRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get([]byte(username))
		if data == nil {
			return fmt.Errorf("%s: %w", username, storage.ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateUser applies fn to the stored record inside a single write
// transaction, so concurrent mutations for the same username serialize at the
// database and no counter update is lost.
func (s *Store) UpdateUser(username string, fn func(*storage.UserRecord) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		key := []byte(username)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("%s: %w", username, storage.ErrNotFound)
		}
		var rec storage.UserRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if err := fn(&rec); err != nil {
			return err
		}
		updated, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return b.Put(key, updated)
	})
}

func (s *Store) AppendAttempt(rec *storage.AttemptRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAttempts)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(attemptKey(rec.Username, seq), data)
	})
}

// ListAttempts returns up to limit attempt records for the user, most recent
// first. A non-positive limit returns all records.
func (s *Store) ListAttempts(username string, limit int) ([]*storage.AttemptRecord, error) {
	var out []*storage.AttemptRecord
	prefix := attemptPrefix(username)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketAttempts).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec storage.AttemptRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Cursor order is oldest first; reverse to most recent first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// attemptPrefix length-prefixes the username, so a username that is a prefix
// of another can never match the other's keys.
func attemptPrefix(username string) []byte {
	prefix := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+len(username)), uint64(len(username)))
	return append(prefix, username...)
}

func attemptKey(username string, seq uint64) []byte {
	key := attemptPrefix(username)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], seq)
	return append(key, n[:]...)
}
