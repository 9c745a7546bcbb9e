package postgres

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kiroku-app/kiroku-sync/internal/keygen"
	"github.com/kiroku-app/kiroku-sync/internal/storekv"
)

// Store implements storekv.Store on a kv_entries table.
type Store struct {
	db   *DB
	keys *keygen.Generator
	log  *zap.Logger

	// listenPool is the concrete pool used for the notification connection;
	// nil when the store was built over a mock, in which case subscriptions
	// register but never fire.
	listenPool *pgxpool.Pool

	mu     sync.Mutex
	subs   map[int]subscriber
	nextID int
}

type subscriber struct {
	path string
	fn   storekv.Handler
}

var _ storekv.Store = (*Store)(nil)

// NewStore constructs a store over an established pool.
func NewStore(pool *pgxpool.Pool, log *zap.Logger) *Store {
	s := NewStoreWithDB(&DB{Pool: pool}, log)
	s.listenPool = pool
	return s
}

// NewStoreWithDB constructs a store over a DB wrapper; used by tests with a
// mocked pool.
func NewStoreWithDB(db *DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:   db,
		keys: keygen.New(),
		log:  log,
		subs: map[int]subscriber{},
	}
}

const (
	selSubtree = `SELECT path, value FROM kv_entries WHERE path = $1 OR path LIKE $1 || '/%'`
	delSubtree = `DELETE FROM kv_entries WHERE path = $1 OR path LIKE $1 || '/%' OR $1 LIKE path || '/%'`
	insLeaf    = `INSERT INTO kv_entries (path, value) VALUES ($1, $2)`
	notifyStmt = `SELECT pg_notify('kv_changed', $1)`
)

// ReadOnce reassembles the subtree rooted at path from its leaf rows.
func (s *Store) ReadOnce(ctx context.Context, path string) (any, error) {
	rows, err := s.db.Pool.Query(ctx, selSubtree, path)
	if err != nil {
		return nil, &storekv.StoreError{Op: "read " + path, Err: err}
	}
	defer rows.Close()

	leaves := map[string]json.RawMessage{}
	for rows.Next() {
		var (
			p   string
			raw []byte
		)
		if err := rows.Scan(&p, &raw); err != nil {
			return nil, &storekv.StoreError{Op: "read " + path, Err: err}
		}
		leaves[p] = json.RawMessage(raw)
	}
	if err := rows.Err(); err != nil {
		return nil, &storekv.StoreError{Op: "read " + path, Err: err}
	}
	if len(leaves) == 0 {
		return nil, nil
	}

	if raw, ok := leaves[path]; ok && len(leaves) == 1 {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &storekv.StoreError{Op: "read " + path, Err: err}
		}
		return v, nil
	}

	root := map[string]any{}
	for p, raw := range leaves {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &storekv.StoreError{Op: "read " + path, Err: err}
		}
		rel := strings.TrimPrefix(p, path+"/")
		segs := storekv.Segments(rel)
		cur := root
		for _, seg := range segs[:len(segs)-1] {
			next, ok := cur[seg].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[seg] = next
			}
			cur = next
		}
		cur[segs[len(segs)-1]] = v
	}
	return root, nil
}

// Commit applies all entries in one transaction: each target subtree is
// deleted (together with any leaf ancestor blocking it), non-nil values are
// flattened back into leaf rows, and a notification per path fires on commit.
// Paths are processed in sorted order so statement sequence is deterministic.
func (s *Store) Commit(ctx context.Context, updates storekv.Updates) (err error) {
	if len(updates) == 0 {
		return nil
	}

	paths := make([]string, 0, len(updates))
	for p := range updates {
		if len(storekv.Segments(p)) == 0 {
			return &storekv.StoreError{Op: "commit", Err: errEmptyPath}
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &storekv.StoreError{Op: "commit", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = &storekv.StoreError{Op: "commit", Err: e}
		}
	}()

	for _, p := range paths {
		if _, err = tx.Exec(ctx, delSubtree, p); err != nil {
			return &storekv.StoreError{Op: "commit", Err: err}
		}
		if updates[p] == nil {
			continue
		}
		leaves := map[string]any{}
		flatten(p, updates[p], leaves)
		leafPaths := make([]string, 0, len(leaves))
		for lp := range leaves {
			leafPaths = append(leafPaths, lp)
		}
		sort.Strings(leafPaths)
		for _, lp := range leafPaths {
			var raw []byte
			raw, err = json.Marshal(leaves[lp])
			if err != nil {
				return &storekv.StoreError{Op: "commit", Err: err}
			}
			if _, err = tx.Exec(ctx, insLeaf, lp, raw); err != nil {
				return &storekv.StoreError{Op: "commit", Err: err}
			}
		}
	}
	for _, p := range paths {
		if _, err = tx.Exec(ctx, notifyStmt, p); err != nil {
			return &storekv.StoreError{Op: "commit", Err: err}
		}
	}
	return nil
}

// AllocateKey reserves a push-style key without touching the database.
func (s *Store) AllocateKey(string) (string, error) {
	key, err := s.keys.NewKey()
	if err != nil {
		return "", &storekv.StoreError{Op: "allocate key", Err: err}
	}
	return key, nil
}

var errEmptyPath = errEmpty{}

type errEmpty struct{}

func (errEmpty) Error() string { return "empty path" }

// flatten decomposes a value into leaf rows keyed by full path. Maps recurse;
// everything else, including empty maps' absence, is a leaf. Values arriving
// here are either JSON-shaped already or typed records; typed records are
// normalized first.
func flatten(path string, v any, out map[string]any) {
	m, ok := v.(map[string]any)
	if !ok {
		if n, err := storekv.Normalize(v); err == nil {
			if nm, isMap := n.(map[string]any); isMap {
				for k, child := range nm {
					flatten(path+"/"+k, child, out)
				}
				return
			}
			out[path] = n
			return
		}
		out[path] = v
		return
	}
	if len(m) == 0 {
		return
	}
	for k, child := range m {
		flatten(path+"/"+k, child, out)
	}
}
