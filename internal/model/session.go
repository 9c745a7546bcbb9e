package model

import "strconv"

// SessionType distinguishes a live (ongoing) session from a retroactive edit.
type SessionType string

// Session types as persisted.
const (
	SessionLive SessionType = "live"
	SessionEdit SessionType = "edit"
)

// Drinks holds per-category counts recorded at one timestamp.
type Drinks map[DrinkKey]int

// DrinksList maps a unix-millisecond timestamp (stringified, store keys are
// strings) to the drinks recorded at that moment.
type DrinksList map[string]Drinks

// DrinkingSession is the record stored under user_drinking_sessions/{id}/{sessionId}.
// ID is populated locally from the allocated key and travels with the record.
type DrinkingSession struct {
	ID        string      `json:"id,omitempty"`
	StartTime int64       `json:"start_time"`
	EndTime   int64       `json:"end_time,omitempty"`
	Drinks    DrinksList  `json:"drinks,omitempty"`
	Blackout  bool        `json:"blackout"`
	Note      string      `json:"note"`
	Ongoing   bool        `json:"ongoing,omitempty"`
	Type      SessionType `json:"type,omitempty"`
}

// SessionList is a user's sessions keyed by session id.
type SessionList map[string]DrinkingSession

// TimestampKey converts a unix-millisecond timestamp to its store key form.
func TimestampKey(ts int64) string {
	return strconv.FormatInt(ts, 10)
}

// EmptySession builds a blank session of the given type spanning a single instant.
func EmptySession(id string, typ SessionType, at int64) DrinkingSession {
	return DrinkingSession{
		ID:        id,
		StartTime: at,
		EndTime:   at,
		Type:      typ,
	}
}

// Clone returns a deep copy of the session.
func (s DrinkingSession) Clone() DrinkingSession {
	out := s
	if s.Drinks != nil {
		out.Drinks = make(DrinksList, len(s.Drinks))
		for ts, d := range s.Drinks {
			cp := make(Drinks, len(d))
			for k, v := range d {
				cp[k] = v
			}
			out.Drinks[ts] = cp
		}
	}
	return out
}

// AllZero reports whether every recorded count is zero (or the record is empty).
func (d Drinks) AllZero() bool {
	for _, n := range d {
		if n != 0 {
			return false
		}
	}
	return true
}

// SumAllDrinks totals every count across all timestamps and categories.
func SumAllDrinks(dl DrinksList) int {
	total := 0
	for _, d := range dl {
		for _, n := range d {
			total += n
		}
	}
	return total
}

// RemoveZeroDrinks strips timestamps whose counts are all zero, the hygiene
// pass applied before a session is persisted. Zero entries are removed only
// when a non-zero entry also exists; a session consisting solely of zero
// placeholders is left untouched so the pass never produces an empty session.
// Idempotent. The input is not mutated.
func RemoveZeroDrinks(s DrinkingSession) DrinkingSession {
	out := s.Clone()
	hasReal := false
	for _, d := range out.Drinks {
		if !d.AllZero() {
			hasReal = true
			break
		}
	}
	if !hasReal {
		return out
	}
	for ts, d := range out.Drinks {
		if d.AllZero() {
			delete(out.Drinks, ts)
		}
	}
	return out
}

// LastStartedSessionID returns the id of the session with the newest start
// time, or "" when there are none. Ties break toward the larger id, which for
// allocated push-style keys means the later-created session.
func LastStartedSessionID(sessions SessionList) string {
	var bestID string
	var bestStart int64
	for id, s := range sessions {
		if bestID == "" || s.StartTime > bestStart || (s.StartTime == bestStart && id > bestID) {
			bestID = id
			bestStart = s.StartTime
		}
	}
	return bestID
}

// FindOngoingSessionID returns the id of the session marked ongoing, if any.
func FindOngoingSessionID(sessions SessionList) (string, bool) {
	for id, s := range sessions {
		if s.Ongoing {
			return id, true
		}
	}
	return "", false
}
