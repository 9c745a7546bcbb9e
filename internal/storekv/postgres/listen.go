package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kiroku-app/kiroku-sync/internal/storekv"
)

// Subscribe registers fn for changes under path. Notifications are delivered
// only while Listen is running; with a mocked pool the watch registers but
// stays silent.
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

// Listen blocks on a dedicated connection, forwarding kv_changed
// notifications to matching subscribers until ctx is canceled. Each delivery
// re-reads the watched subtree so handlers always see a full, fresh snapshot.
func (s *Store) Listen(ctx context.Context) error {
	if s.listenPool == nil {
		return fmt.Errorf("listen: store has no concrete pool")
	}

	conn, err := s.listenPool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN kv_changed"); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("listen: %w", err)
		}
		s.dispatch(ctx, n.Payload)
	}
}

// dispatch fans a changed path out to subscribers whose subtree overlaps it.
func (s *Store) dispatch(ctx context.Context, changed string) {
	s.mu.Lock()
	matched := make([]subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		if storekv.Within(changed, sub.path) || storekv.Within(sub.path, changed) {
			matched = append(matched, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range matched {
		value, err := s.ReadOnce(ctx, sub.path)
		if err != nil {
			s.log.Warn("subscription re-read failed",
				zap.String("path", sub.path),
				zap.Error(err),
			)
			continue
		}
		sub.fn(value)
	}
}
