package credstore

import (
	"context"
	"sync"
)

// userLocks serializes authentication attempts per username. A second attempt
// for the same user waits (or gives up with its context) rather than racing
// the first for the attempt counter.
type userLocks struct {
	mu    sync.Mutex
	chans map[string]chan struct{}
}

func newUserLocks() *userLocks {
	return &userLocks{chans: make(map[string]chan struct{})}
}

func (l *userLocks) get(username string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.chans[username]
	if !ok {
		ch = make(chan struct{}, 1)
		l.chans[username] = ch
	}
	return ch
}

// acquire blocks until the user's lock is held or ctx is done. The returned
// release must be called exactly once.
func (l *userLocks) acquire(ctx context.Context, username string) (release func(), err error) {
	ch := l.get(username)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LockUser serializes an attempt for the user: it blocks while another
// attempt holds the lock and fails with the context's error on cancellation.
func (s *Store) LockUser(ctx context.Context, username string) (release func(), err error) {
	return s.locks.acquire(ctx, username)
}
