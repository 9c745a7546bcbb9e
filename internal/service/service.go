// Package service contains the application-level consistency managers:
// account lifecycle, friend relationships, and drinking-session lifecycle.
// The store enforces no referential integrity, so every cross-entity
// relationship these managers touch is kept consistent here, by collapsing
// each logical transition into a single atomic multi-path commit.
package service

import (
	"context"

	"github.com/kiroku-app/kiroku-sync/internal/dbpath"
	"github.com/kiroku-app/kiroku-sync/internal/storekv"
)

// userExists reports whether a user identity still has a profile in the
// store. Counterpart-side writes are skipped for users that no longer exist:
// account deletion has already removed their subtree and writing into it
// would resurrect it.
func userExists(ctx context.Context, store storekv.Store, userID string) (bool, error) {
	v, err := store.ReadOnce(ctx, dbpath.UserProfile(userID))
	if err != nil {
		return false, err
	}
	return v != nil, nil
}
