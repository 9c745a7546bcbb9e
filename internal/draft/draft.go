// Package draft holds the local optimistic copies of drinking sessions. The
// cache is an injected object rather than package state so independent
// instances can exist side by side (one per test, one per signed-in user).
package draft

import (
	"sync"

	"github.com/kiroku-app/kiroku-sync/internal/model"
)

// Kind names a draft slot.
type Kind string

// The two slots: one live (ongoing) session and one session opened for
// retroactive edits. They are independent; both may be occupied at once.
const (
	Live Kind = "live"
	Edit Kind = "edit"
)

// Cache is a single-writer, last-write-wins store of at most one session per
// slot. Sessions are deep-copied on the way in and out so callers never alias
// the cached record.
type Cache struct {
	mu    sync.Mutex
	slots map[Kind]model.DrinkingSession
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{slots: map[Kind]model.DrinkingSession{}}
}

// Set places a session in the slot, replacing whatever was there.
func (c *Cache) Set(kind Kind, s model.DrinkingSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[kind] = s.Clone()
}

// Get returns the slot's session and whether the slot is occupied.
func (c *Cache) Get(kind Kind) (model.DrinkingSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[kind]
	if !ok {
		return model.DrinkingSession{}, false
	}
	return s.Clone(), true
}

// Clear empties the slot.
func (c *Cache) Clear(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.slots, kind)
}

// Find locates the slot holding the session with the given id.
func (c *Cache) Find(sessionID string) (Kind, model.DrinkingSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range []Kind{Live, Edit} {
		if s, ok := c.slots[kind]; ok && s.ID == sessionID {
			return kind, s.Clone(), true
		}
	}
	return "", model.DrinkingSession{}, false
}

// Mutate applies fn to the session with the given id, in place, under the
// cache lock. Returns false when no slot holds that session.
func (c *Cache) Mutate(sessionID string, fn func(*model.DrinkingSession)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range []Kind{Live, Edit} {
		s, ok := c.slots[kind]
		if !ok || s.ID != sessionID {
			continue
		}
		cp := s.Clone()
		fn(&cp)
		c.slots[kind] = cp
		return true
	}
	return false
}
