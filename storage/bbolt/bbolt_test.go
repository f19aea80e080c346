package bbolt

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/facelock/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "facelock.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testUser(username string) *storage.UserRecord {
	return &storage.UserRecord{
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreateGetUser(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateUser(testUser("alice")))

	rec, err := s.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)

	err = s.CreateUser(testUser("alice"))
	assert.ErrorIs(t, err, storage.ErrUserExists)

	_, err = s.GetUser("bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateUser_Atomic(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateUser(testUser("alice")))

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				err := s.UpdateUser("alice", func(rec *storage.UserRecord) error {
					rec.FailedAttempts++
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	rec, err := s.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, rec.FailedAttempts)
}

func TestUpdateUser_FnErrorAborts(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateUser(testUser("alice")))

	boom := assert.AnError
	err := s.UpdateUser("alice", func(rec *storage.UserRecord) error {
		rec.FailedAttempts = 99
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := s.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.FailedAttempts)
}

func TestAttempts_AppendAndList(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendAttempt(&storage.AttemptRecord{
			Username: "alice",
			At:       time.Now().UTC(),
			Success:  i == 4,
			Reason:   "BAD_TOTP",
		}))
	}
	require.NoError(t, s.AppendAttempt(&storage.AttemptRecord{Username: "bob"}))

	all, err := s.ListAttempts("alice", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	// Most recent first.
	assert.True(t, all[0].Success)

	limited, err := s.ListAttempts("alice", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	other, err := s.ListAttempts("carol", 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestAttempts_PrefixUsernamesDoNotCollide(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AppendAttempt(&storage.AttemptRecord{Username: "a", Reason: "BAD_TOTP"}))
	require.NoError(t, s.AppendAttempt(&storage.AttemptRecord{Username: "a/b", Reason: "LOCKED"}))
	require.NoError(t, s.AppendAttempt(&storage.AttemptRecord{Username: "ab", Reason: "SPOOF_SUSPECTED"}))

	short, err := s.ListAttempts("a", 0)
	require.NoError(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, "BAD_TOTP", short[0].Reason)

	slashed, err := s.ListAttempts("a/b", 0)
	require.NoError(t, err)
	require.Len(t, slashed, 1)
	assert.Equal(t, "LOCKED", slashed[0].Reason)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facelock.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(testUser("alice")))
	require.NoError(t, s.UpdateUser("alice", func(rec *storage.UserRecord) error {
		until := time.Now().Add(5 * time.Minute).UTC()
		rec.FailedAttempts = 3
		rec.LockoutUntil = &until
		return nil
	}))
	require.NoError(t, s.Close())

	s2, err := Open(path, nil)
	require.NoError(t, err)
	defer s2.Close()

	rec, err := s2.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.FailedAttempts)
	require.NotNil(t, rec.LockoutUntil)
}
