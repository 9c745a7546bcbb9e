// Package storekv defines the contract of the remote hierarchical key-value
// store. Records are addressed by slash-separated paths; a single Commit call
// applies every entry in one map atomically, and separate calls carry no joint
// guarantee. Values are JSON-shaped: map[string]any for branches and string,
// float64, bool or nil for leaves.
package storekv

import (
	"context"
	"encoding/json"
	"strings"
)

// Updates maps store paths to the values to write. A nil value deletes the
// path and its whole subtree.
type Updates map[string]any

// Handler receives the current value of a watched subtree, nil when deleted.
type Handler func(value any)

// Store is the remote store client. Implementations must apply all entries of
// one Commit call or none of them.
type Store interface {
	// ReadOnce fetches the value at path, nil when the path does not exist.
	ReadOnce(ctx context.Context, path string) (any, error)

	// Subscribe watches the subtree at path and invokes fn with a fresh
	// snapshot after every change. The returned function cancels the watch.
	Subscribe(ctx context.Context, path string, fn Handler) (func(), error)

	// Commit atomically applies every entry of updates.
	Commit(ctx context.Context, updates Updates) error

	// AllocateKey reserves a time-ordered key under parentPath without
	// writing anything; the record may be created later or never.
	AllocateKey(parentPath string) (string, error)
}

// StoreError wraps a failed store operation with the operation name, so
// callers can surface a typed failure while errors.Is/As still reach the cause.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "store: " + e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

// Decode converts a store value into a typed record (or the reverse) through
// its JSON form.
func Decode(src, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// Normalize rewrites an arbitrary value into its JSON-shaped store form.
func Normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Segments splits a path into its non-empty segments.
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Within reports whether path lies inside the subtree rooted at prefix
// (inclusive). The empty prefix is the root and contains everything.
func Within(path, prefix string) bool {
	if prefix == "" || path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
