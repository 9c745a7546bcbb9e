// Package dbpath is the single source of truth for store path layout. Every
// component builds paths through these helpers so a path's shape changes in
// exactly one place.
package dbpath

import "fmt"

// Top-level subtrees, root-relative.
const (
	Users                = "users"
	NicknameToID         = "nickname_to_id"
	UserStatusRoot       = "user_status"
	UserPreferencesRoot  = "user_preferences"
	UserSessionsRoot     = "user_drinking_sessions"
	UnconfirmedDaysRoot  = "user_unconfirmed_days"
	AccountCreationsRoot = "account_creations"
	AuthIdentitiesRoot   = "auth_identities"
	AuthEmailToIDRoot    = "auth_email_to_id"
)

// UserRecord returns users/{id}.
func UserRecord(userID string) string {
	return fmt.Sprintf("%s/%s", Users, userID)
}

// UserProfile returns users/{id}/profile.
func UserProfile(userID string) string {
	return fmt.Sprintf("%s/%s/profile", Users, userID)
}

// UserDisplayName returns users/{id}/profile/display_name.
func UserDisplayName(userID string) string {
	return fmt.Sprintf("%s/%s/profile/display_name", Users, userID)
}

// UserFriend returns users/{id}/friends/{friendID}.
func UserFriend(userID, friendID string) string {
	return fmt.Sprintf("%s/%s/friends/%s", Users, userID, friendID)
}

// UserFriends returns users/{id}/friends.
func UserFriends(userID string) string {
	return fmt.Sprintf("%s/%s/friends", Users, userID)
}

// UserFriendRequest returns users/{id}/friend_requests/{otherID}.
func UserFriendRequest(userID, otherID string) string {
	return fmt.Sprintf("%s/%s/friend_requests/%s", Users, userID, otherID)
}

// UserFriendRequests returns users/{id}/friend_requests.
func UserFriendRequests(userID string) string {
	return fmt.Sprintf("%s/%s/friend_requests", Users, userID)
}

// NicknameEntry returns nickname_to_id/{key}/{userID}.
func NicknameEntry(nicknameKey, userID string) string {
	return fmt.Sprintf("%s/%s/%s", NicknameToID, nicknameKey, userID)
}

// UserStatus returns user_status/{id}.
func UserStatus(userID string) string {
	return fmt.Sprintf("%s/%s", UserStatusRoot, userID)
}

// UserPreferences returns user_preferences/{id}.
func UserPreferences(userID string) string {
	return fmt.Sprintf("%s/%s", UserPreferencesRoot, userID)
}

// UserSessions returns user_drinking_sessions/{id}.
func UserSessions(userID string) string {
	return fmt.Sprintf("%s/%s", UserSessionsRoot, userID)
}

// UserSession returns user_drinking_sessions/{id}/{sessionID}.
func UserSession(userID, sessionID string) string {
	return fmt.Sprintf("%s/%s/%s", UserSessionsRoot, userID, sessionID)
}

// UserSessionDrinks returns user_drinking_sessions/{id}/{sessionID}/drinks.
func UserSessionDrinks(userID, sessionID string) string {
	return fmt.Sprintf("%s/%s/%s/drinks", UserSessionsRoot, userID, sessionID)
}

// UserUnconfirmedDays returns user_unconfirmed_days/{id}.
func UserUnconfirmedDays(userID string) string {
	return fmt.Sprintf("%s/%s", UnconfirmedDaysRoot, userID)
}

// AccountCreation returns account_creations/{deviceID}/{userID}.
func AccountCreation(deviceID, userID string) string {
	return fmt.Sprintf("%s/%s/%s", AccountCreationsRoot, deviceID, userID)
}

// AuthIdentity returns auth_identities/{id}.
func AuthIdentity(identityID string) string {
	return fmt.Sprintf("%s/%s", AuthIdentitiesRoot, identityID)
}

// AuthEmailIndex returns auth_email_to_id/{emailKey}.
func AuthEmailIndex(emailKey string) string {
	return fmt.Sprintf("%s/%s", AuthEmailToIDRoot, emailKey)
}
