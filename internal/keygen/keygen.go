// Package keygen produces push-style keys: time-ordered, collision-resistant
// identifiers generated client-side without a store round trip. A key sorts
// lexicographically by creation time, so allocated ids double as a creation
// order for sibling records.
package keygen

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

// Alphabet is ordered by ASCII value so key ordering matches time ordering.
const alphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

const (
	timestampChars = 8
	randomChars    = 12
	// KeyLen is the length of every generated key.
	KeyLen = timestampChars + randomChars
)

// Generator allocates keys. Safe for concurrent use. The zero value is not
// usable; construct with New.
type Generator struct {
	mu         sync.Mutex
	now        func() time.Time
	lastMillis int64
	lastRand   [randomChars]int
}

// New returns a generator backed by the wall clock.
func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock returns a generator with an injected clock, for tests.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// NewKey allocates the next key. Two calls never return the same key: calls
// in distinct milliseconds differ in the timestamp prefix, and calls within
// one millisecond increment the previous random suffix, which also keeps them
// strictly ordered.
func (g *Generator) NewKey() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	millis := g.now().UnixMilli()
	if millis == g.lastMillis {
		if err := g.incrementSuffix(); err != nil {
			return "", err
		}
	} else {
		if err := g.freshSuffix(); err != nil {
			return "", err
		}
		g.lastMillis = millis
	}

	buf := make([]byte, KeyLen)
	ts := millis
	for i := timestampChars - 1; i >= 0; i-- {
		buf[i] = alphabet[ts%64]
		ts /= 64
	}
	if ts > 0 {
		return "", fmt.Errorf("keygen: timestamp overflows %d characters", timestampChars)
	}
	for i, v := range g.lastRand {
		buf[timestampChars+i] = alphabet[v]
	}
	return string(buf), nil
}

func (g *Generator) freshSuffix() error {
	raw := make([]byte, randomChars)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	for i, b := range raw {
		g.lastRand[i] = int(b) % 64
	}
	return nil
}

// incrementSuffix treats the suffix as a base-64 number and adds one.
func (g *Generator) incrementSuffix() error {
	for i := randomChars - 1; i >= 0; i-- {
		if g.lastRand[i] < 63 {
			g.lastRand[i]++
			return nil
		}
		g.lastRand[i] = 0
	}
	// 64^12 keys exhausted within one millisecond.
	return fmt.Errorf("keygen: suffix space exhausted")
}
