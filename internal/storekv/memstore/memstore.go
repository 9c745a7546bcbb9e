// Package memstore is an in-process implementation of storekv.Store backed by
// a tree of nested maps. It mirrors the remote store's semantics closely
// enough to stand in for it in tests and local development: one Commit applies
// all entries or none, nil deletes a subtree, and subscriptions observe every
// change to their subtree.
package memstore

import (
	"context"
	"sync"

	"github.com/kiroku-app/kiroku-sync/internal/keygen"
	"github.com/kiroku-app/kiroku-sync/internal/storekv"
)

type subscriber struct {
	path string
	fn   storekv.Handler
}

// Store is an in-memory hierarchical key-value store. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	root   map[string]any
	keys   *keygen.Generator
	subs   map[int]subscriber
	nextID int

	// CommitCalls counts Commit invocations, letting tests assert how many
	// atomic batches a logical transition issued.
	CommitCalls int
}

var _ storekv.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		root: map[string]any{},
		keys: keygen.New(),
		subs: map[int]subscriber{},
	}
}

// ReadOnce returns a deep copy of the value at path, nil when absent.
func (s *Store) ReadOnce(_ context.Context, path string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(path), nil
}

// Subscribe registers fn for changes under path and immediately returns; the
// first invocation happens on the next commit touching the subtree.
func (s *Store) Subscribe(_ context.Context, path string, fn storekv.Handler) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = subscriber{path: path, fn: fn}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}, nil
}

// Commit applies every entry of updates under one lock. Values are normalized
// to their JSON shape up front, so a malformed value fails the whole batch
// before anything is written.
func (s *Store) Commit(_ context.Context, updates storekv.Updates) error {
	s.mu.Lock()

	normalized := make(map[string]any, len(updates))
	for path, value := range updates {
		if len(storekv.Segments(path)) == 0 {
			s.mu.Unlock()
			return &storekv.StoreError{Op: "commit", Err: errEmptyPath}
		}
		if value == nil {
			normalized[path] = nil
			continue
		}
		v, err := storekv.Normalize(value)
		if err != nil {
			s.mu.Unlock()
			return &storekv.StoreError{Op: "commit", Err: err}
		}
		normalized[path] = v
	}

	for path, value := range normalized {
		if value == nil {
			s.deletePath(path)
		} else {
			s.writePath(path, value)
		}
	}
	s.CommitCalls++

	// Snapshot matching subscriptions under the lock, deliver outside it so
	// handlers may call back into the store.
	type delivery struct {
		fn    storekv.Handler
		value any
	}
	var pending []delivery
	for _, sub := range s.subs {
		touched := false
		for path := range normalized {
			if storekv.Within(path, sub.path) || storekv.Within(sub.path, path) {
				touched = true
				break
			}
		}
		if touched {
			pending = append(pending, delivery{fn: sub.fn, value: s.snapshot(sub.path)})
		}
	}
	s.mu.Unlock()

	for _, d := range pending {
		d.fn(d.value)
	}
	return nil
}

// AllocateKey reserves a push-style key; parentPath only scopes where the
// caller intends to use it.
func (s *Store) AllocateKey(string) (string, error) {
	key, err := s.keys.NewKey()
	if err != nil {
		return "", &storekv.StoreError{Op: "allocate key", Err: err}
	}
	return key, nil
}

var errEmptyPath = &pathError{}

type pathError struct{}

func (*pathError) Error() string { return "empty path" }

// writePath replaces the node at path with value, creating branch maps on the
// way down and overwriting any leaf that blocks the descent.
func (s *Store) writePath(path string, value any) {
	segs := storekv.Segments(path)
	cur := s.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
}

// deletePath removes the subtree at path and prunes branches left empty.
func (s *Store) deletePath(path string) {
	segs := storekv.Segments(path)
	parents := make([]map[string]any, 0, len(segs))
	cur := s.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			return // path does not exist
		}
		parents = append(parents, cur)
		cur = next
	}
	delete(cur, segs[len(segs)-1])
	for i := len(parents) - 1; i >= 0; i-- {
		if len(cur) > 0 {
			break
		}
		delete(parents[i], segs[i])
		cur = parents[i]
	}
}

func (s *Store) snapshot(path string) any {
	var cur any = s.root
	for _, seg := range storekv.Segments(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	if m, ok := cur.(map[string]any); ok && len(m) == 0 {
		return nil
	}
	return deepCopy(cur)
}

func deepCopy(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, child := range m {
		out[k] = deepCopy(child)
	}
	return out
}
