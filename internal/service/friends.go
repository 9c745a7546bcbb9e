package service

import (
	"context"
	"fmt"

	"github.com/kiroku-app/kiroku-sync/internal/dbpath"
	"github.com/kiroku-app/kiroku-sync/internal/errs"
	"github.com/kiroku-app/kiroku-sync/internal/model"
	"github.com/kiroku-app/kiroku-sync/internal/storekv"
)

// FriendService governs the friendship state machine between ordered pairs of
// users. Per-pair state lives in two denormalized fields on each side
// (friend_requests and friends); every transition mirrors both sides in one
// commit, skipping the side of a user that no longer exists.
type FriendService interface {
	// IsFriend reports whether other is in userID's friend list.
	IsFriend(ctx context.Context, userID, other string) (bool, error)
	// SendRequest records a pending request from -> to on both sides.
	SendRequest(ctx context.Context, from, to string) error
	// DeleteRequest clears a pending request between the two users.
	DeleteRequest(ctx context.Context, from, to string) error
	// AcceptRequest turns a pending request into a mutual friendship.
	AcceptRequest(ctx context.Context, accepter, requester string) error
	// Unfriend removes a mutual friendship.
	Unfriend(ctx context.Context, from, to string) error
}

type FriendServiceImpl struct {
	store storekv.Store
}

var _ FriendService = (*FriendServiceImpl)(nil)

// NewFriendService constructs FriendService over the given store.
func NewFriendService(store storekv.Store) *FriendServiceImpl {
	return &FriendServiceImpl{store: store}
}

// IsFriend reads users/{userID}/friends/{other}.
func (s *FriendServiceImpl) IsFriend(ctx context.Context, userID, other string) (bool, error) {
	if userID == "" || other == "" {
		return false, fmt.Errorf("validation: empty user id")
	}
	v, err := s.store.ReadOnce(ctx, dbpath.UserFriend(userID, other))
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// SendRequest writes "sent" on the requester's side and "received" on the
// target's, in one commit. Rejected before any write when the target identity
// does not exist. When both users send, the later commit overwrites both
// fields; acceptance stays an explicit action either way.
func (s *FriendServiceImpl) SendRequest(ctx context.Context, from, to string) error {
	if err := validatePair(from, to); err != nil {
		return err
	}
	exists, err := userExists(ctx, s.store, to)
	if err != nil {
		return err
	}
	if !exists {
		return errs.ErrUserNotFound
	}
	return s.store.Commit(ctx, storekv.Updates{
		dbpath.UserFriendRequest(from, to): string(model.RequestSent),
		dbpath.UserFriendRequest(to, from): string(model.RequestReceived),
	})
}

// DeleteRequest clears both request fields. When the counterpart no longer
// exists only the caller's side is written; the other subtree is already gone.
func (s *FriendServiceImpl) DeleteRequest(ctx context.Context, from, to string) error {
	if err := validatePair(from, to); err != nil {
		return err
	}
	updates := storekv.Updates{
		dbpath.UserFriendRequest(from, to): nil,
	}
	exists, err := userExists(ctx, s.store, to)
	if err != nil {
		return err
	}
	if exists {
		updates[dbpath.UserFriendRequest(to, from)] = nil
	}
	return s.store.Commit(ctx, updates)
}

// AcceptRequest sets the friend flags and clears the request fields in a
// single commit, so no interleaving failure can leave the friend flag set
// with a stale request still pending.
func (s *FriendServiceImpl) AcceptRequest(ctx context.Context, accepter, requester string) error {
	if err := validatePair(accepter, requester); err != nil {
		return err
	}
	updates := storekv.Updates{
		dbpath.UserFriend(accepter, requester):        true,
		dbpath.UserFriendRequest(accepter, requester): nil,
	}
	exists, err := userExists(ctx, s.store, requester)
	if err != nil {
		return err
	}
	if exists {
		updates[dbpath.UserFriend(requester, accepter)] = true
		updates[dbpath.UserFriendRequest(requester, accepter)] = nil
	}
	return s.store.Commit(ctx, updates)
}

// Unfriend removes the friends entries on both sides, tolerant of the
// counterpart's absence. Idempotent: repeating it writes the same deletions.
func (s *FriendServiceImpl) Unfriend(ctx context.Context, from, to string) error {
	if err := validatePair(from, to); err != nil {
		return err
	}
	updates := storekv.Updates{
		dbpath.UserFriend(from, to): nil,
	}
	exists, err := userExists(ctx, s.store, to)
	if err != nil {
		return err
	}
	if exists {
		updates[dbpath.UserFriend(to, from)] = nil
	}
	return s.store.Commit(ctx, updates)
}

func validatePair(a, b string) error {
	if a == "" || b == "" {
		return fmt.Errorf("validation: empty user id")
	}
	if a == b {
		return fmt.Errorf("validation: identical user ids")
	}
	return nil
}
