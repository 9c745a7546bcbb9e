// Package model defines domain entities mirrored in the hierarchical key-value store.
package model

// FriendRequestStatus is the value stored under users/{id}/friend_requests/{otherId}.
type FriendRequestStatus string

// Friend request statuses as persisted. "sent" lives on the requester's side,
// "received" on the counterpart's side.
const (
	RequestSent     FriendRequestStatus = "sent"
	RequestReceived FriendRequestStatus = "received"
)

// Profile is the public part of a user record.
type Profile struct {
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

// User is the record stored under users/{id}.
type User struct {
	Profile Profile `json:"profile"`
	Role    string  `json:"role"`
}

// DefaultRole is assigned to every newly created account.
const DefaultRole = "open_beta_user"

// UserStatus is the denormalized activity cache under user_status/{id}.
// LatestSession duplicates the authoritative session record and must be kept
// in sync by whoever writes the session.
type UserStatus struct {
	LastOnline      int64            `json:"last_online"`
	LatestSessionID string           `json:"latest_session_id,omitempty"`
	LatestSession   *DrinkingSession `json:"latest_session,omitempty"`
}

// DrinkKey identifies a drink category.
type DrinkKey string

// Drink categories tracked per consumption timestamp.
const (
	SmallBeer  DrinkKey = "small_beer"
	Beer       DrinkKey = "beer"
	Cocktail   DrinkKey = "cocktail"
	Other      DrinkKey = "other"
	StrongShot DrinkKey = "strong_shot"
	WeakShot   DrinkKey = "weak_shot"
	Wine       DrinkKey = "wine"
)

// DrinkKeys returns all drink categories in a stable order.
func DrinkKeys() []DrinkKey {
	return []DrinkKey{SmallBeer, Beer, Cocktail, Other, StrongShot, WeakShot, Wine}
}

// UnitsToColors maps unit thresholds to calendar colors.
type UnitsToColors struct {
	Orange int `json:"orange"`
	Yellow int `json:"yellow"`
}

// Preferences is the record stored under user_preferences/{id}.
type Preferences struct {
	FirstDayOfWeek string               `json:"first_day_of_week"`
	UnitsToColors  UnitsToColors        `json:"units_to_colors"`
	DrinksToUnits  map[DrinkKey]float64 `json:"drinks_to_units"`
}

// DefaultPreferences returns the preferences written at account creation.
func DefaultPreferences() Preferences {
	return Preferences{
		FirstDayOfWeek: "Monday",
		UnitsToColors:  UnitsToColors{Orange: 10, Yellow: 5},
		DrinksToUnits: map[DrinkKey]float64{
			SmallBeer:  0.5,
			Beer:       1,
			Cocktail:   1.5,
			Other:      1,
			StrongShot: 1,
			WeakShot:   0.5,
			Wine:       1,
		},
	}
}

// NewUserStatus returns a session-less status with the given last-online time.
func NewUserStatus(lastOnline int64) UserStatus {
	return UserStatus{LastOnline: lastOnline}
}
