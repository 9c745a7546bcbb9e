package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kiroku-app/kiroku-sync/internal/auth"
	"github.com/kiroku-app/kiroku-sync/internal/dbpath"
	"github.com/kiroku-app/kiroku-sync/internal/model"
	"github.com/kiroku-app/kiroku-sync/internal/storekv"
)

// AccountService creates and tears down the denormalized records belonging to
// one user identity.
type AccountService interface {
	// CreateAccount writes every record of a new identity in one commit.
	CreateAccount(ctx context.Context, userID, deviceID string, profile model.Profile) error

	// DeleteAccount removes every record of the identity in one commit,
	// including the reciprocal friends/friend_requests fields listed in the
	// caller-supplied snapshots. The snapshots must be complete and current;
	// a stale snapshot leaves dangling reciprocal references behind.
	DeleteAccount(ctx context.Context, userID, nickname string, friends map[string]bool, friendRequests map[string]model.FriendRequestStatus) error

	// SignUp creates an identity with the auth provider, then its account
	// records; on failure both are rolled back best-effort.
	SignUp(ctx context.Context, email, displayName, password, deviceID string) (string, error)

	// ChangeDisplayName moves the nickname-index entry and rewrites the
	// profile display name atomically.
	ChangeDisplayName(ctx context.Context, userID, oldName, newName string) error

	// SyncUserStatus recomputes the denormalized latest-session mirror from
	// the authoritative session list.
	SyncUserStatus(ctx context.Context, userID string, status *model.UserStatus, sessions model.SessionList) error

	// UserExists reports whether the identity has a profile in the store.
	UserExists(ctx context.Context, userID string) (bool, error)
}

type AccountServiceImpl struct {
	store storekv.Store
	ids   auth.Provider
	now   func() int64
}

var _ AccountService = (*AccountServiceImpl)(nil)

// NewAccountService constructs AccountService. The provider may be nil when
// only store-side operations are used.
func NewAccountService(store storekv.Store, ids auth.Provider) *AccountServiceImpl {
	return &AccountServiceImpl{
		store: store,
		ids:   ids,
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

// CreateAccount writes the nickname-index entry, a fresh UserStatus, default
// Preferences, the user record and the per-device creation marker as one
// atomic batch, so a crash leaves no partial identity. Calling it again for
// the same id silently replaces Preferences and Profile; callers guard
// against double creation.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, userID, deviceID string, profile model.Profile) error {
	if userID == "" {
		return fmt.Errorf("validation: empty user id")
	}
	if profile.DisplayName == "" {
		return fmt.Errorf("validation: empty display name")
	}

	now := s.now()
	updates := storekv.Updates{
		dbpath.NicknameEntry(dbpath.NicknameKey(profile.DisplayName), userID): profile.DisplayName,
		dbpath.UserStatus(userID):      model.NewUserStatus(now),
		dbpath.UserPreferences(userID): model.DefaultPreferences(),
		dbpath.UserRecord(userID):      model.User{Profile: profile, Role: model.DefaultRole},
	}
	if deviceID != "" {
		updates[dbpath.AccountCreation(deviceID, userID)] = now
	}
	return s.store.Commit(ctx, updates)
}

// DeleteAccount nulls every subtree belonging to the identity plus the
// reciprocal fields on each counterpart from the supplied snapshots, all in
// one commit. There is no reverse index in the store, so counterparts not in
// the snapshots keep a dangling reference; no garbage collection repairs that
// later.
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, userID, nickname string, friends map[string]bool, friendRequests map[string]model.FriendRequestStatus) error {
	if userID == "" {
		return fmt.Errorf("validation: empty user id")
	}

	updates := storekv.Updates{
		dbpath.NicknameEntry(dbpath.NicknameKey(nickname), userID): nil,
		dbpath.UserStatus(userID):                                  nil,
		dbpath.UserPreferences(userID):                             nil,
		dbpath.UserRecord(userID):                                  nil,
		dbpath.UserSessions(userID):                                nil,
		dbpath.UserUnconfirmedDays(userID):                         nil,
	}
	for friendID := range friends {
		updates[dbpath.UserFriend(friendID, userID)] = nil
	}
	for otherID := range friendRequests {
		updates[dbpath.UserFriendRequest(otherID, userID)] = nil
	}
	return s.store.Commit(ctx, updates)
}

// SignUp runs the two-provider creation flow: identity first, then account
// records. The two writes cannot share a commit, so a failed second step
// rolls the identity back instead of leaving a user that can sign in but has
// no records.
func (s *AccountServiceImpl) SignUp(ctx context.Context, email, displayName, password, deviceID string) (string, error) {
	if s.ids == nil {
		return "", fmt.Errorf("validation: no auth provider configured")
	}
	if displayName == "" {
		return "", fmt.Errorf("validation: empty display name")
	}

	userID, err := s.ids.CreateIdentity(ctx, email, password)
	if err != nil {
		return "", err
	}

	profile := model.Profile{DisplayName: displayName}
	if err := s.CreateAccount(ctx, userID, deviceID, profile); err != nil {
		// Best-effort rollback; the creation error is the one worth surfacing.
		_ = s.DeleteAccount(ctx, userID, displayName, nil, nil)
		_ = s.ids.DeleteIdentity(ctx)
		return "", fmt.Errorf("create account: %w", err)
	}
	return userID, nil
}

// ChangeDisplayName nulls the old nickname-index entry and writes the new
// entry and profile field in one commit, keeping the manually maintained
// projection consistent. No-op when the stored name already matches.
func (s *AccountServiceImpl) ChangeDisplayName(ctx context.Context, userID, oldName, newName string) error {
	if userID == "" {
		return fmt.Errorf("validation: empty user id")
	}
	if oldName == "" || newName == "" {
		return fmt.Errorf("validation: empty display name")
	}

	current, err := s.store.ReadOnce(ctx, dbpath.UserDisplayName(userID))
	if err != nil {
		return err
	}
	if name, ok := current.(string); ok && name == newName {
		return nil
	}

	return s.store.Commit(ctx, storekv.Updates{
		dbpath.NicknameEntry(dbpath.NicknameKey(oldName), userID): nil,
		dbpath.NicknameEntry(dbpath.NicknameKey(newName), userID): newName,
		dbpath.UserDisplayName(userID):                            newName,
	})
}

// SyncUserStatus refreshes last_online and, when the latest session changed,
// repoints the latest_session mirror at whichever session in the list started
// most recently. A nil status means the user record is gone; nothing to sync.
func (s *AccountServiceImpl) SyncUserStatus(ctx context.Context, userID string, status *model.UserStatus, sessions model.SessionList) error {
	if userID == "" {
		return fmt.Errorf("validation: empty user id")
	}
	if status == nil {
		return nil
	}

	next := *status
	next.LastOnline = s.now()
	latestID := model.LastStartedSessionID(sessions)
	if next.LatestSessionID != latestID {
		next.LatestSessionID = latestID
		next.LatestSession = nil
		if latestID != "" {
			latest := sessions[latestID]
			next.LatestSession = &latest
		}
	}
	return s.store.Commit(ctx, storekv.Updates{
		dbpath.UserStatus(userID): next,
	})
}

// UserExists reads users/{id}/profile.
func (s *AccountServiceImpl) UserExists(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("validation: empty user id")
	}
	return userExists(ctx, s.store, userID)
}
