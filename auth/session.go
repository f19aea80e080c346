package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Grant is an ephemeral proof of a completed authentication. It lives in
// process memory only and is never persisted.
type Grant struct {
	ID        string
	Username  string
	GrantedAt time.Time
	ExpiresAt time.Time
}

type sessionTable struct {
	mu     sync.Mutex
	grants map[string]*Grant
}

func newSessionTable() *sessionTable {
	return &sessionTable{grants: make(map[string]*Grant)}
}

// issue replaces any existing grant for the user.
func (t *sessionTable) issue(username string, now time.Time, ttl time.Duration) *Grant {
	g := &Grant{
		ID:        uuid.NewString(),
		Username:  username,
		GrantedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	t.mu.Lock()
	t.grants[username] = g
	t.mu.Unlock()
	return g
}

func (t *sessionTable) active(username string, now time.Time) (*Grant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.grants[username]
	if !ok {
		return nil, false
	}
	if !now.Before(g.ExpiresAt) {
		delete(t.grants, username)
		return nil, false
	}
	c := *g
	return &c, true
}

func (t *sessionTable) drop(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.grants[username]
	delete(t.grants, username)
	return ok
}

// Authenticated reports whether the user holds an unexpired grant, and
// returns a copy of it. Expired grants are dropped on observation.
func (c *Coordinator) Authenticated(username string) (*Grant, bool) {
	return c.sessions.active(username, c.now())
}

// Logout discards the user's grant, if any. It reports whether one existed.
func (c *Coordinator) Logout(username string) bool {
	ok := c.sessions.drop(username)
	if ok {
		c.logger.Info("logout", "username", username)
	}
	return ok
}
