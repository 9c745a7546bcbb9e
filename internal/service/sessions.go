package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kiroku-app/kiroku-sync/internal/dbpath"
	"github.com/kiroku-app/kiroku-sync/internal/draft"
	"github.com/kiroku-app/kiroku-sync/internal/errs"
	"github.com/kiroku-app/kiroku-sync/internal/model"
	"github.com/kiroku-app/kiroku-sync/internal/storekv"
)

// SessionService governs the lifecycle of a user's drinking sessions. Edits
// are local-first: AddDrinks, RemoveDrinks, UpdateNote and UpdateBlackout
// touch only the injected draft cache, and the store sees one commit per
// explicit save. Subscription-delivered data remains the source of truth;
// SyncLocalLive reconciles the live draft against it.
type SessionService interface {
	// StartLive allocates a session key, writes the ongoing session and its
	// UserStatus mirror in one commit, and populates the live draft.
	StartLive(ctx context.Context, userID string) (model.DrinkingSession, error)

	// AddDrinks records count drinks of one category at the given timestamp
	// in the drafted session. Local only.
	AddDrinks(sessionID string, at int64, key model.DrinkKey, count int) error
	// RemoveDrinks subtracts up to count drinks of one category, newest
	// timestamps first. Local only.
	RemoveDrinks(sessionID string, key model.DrinkKey, count int) error
	// UpdateNote replaces the drafted session's note. Local only.
	UpdateNote(sessionID, note string) error
	// UpdateBlackout flags the drafted session. Local only.
	UpdateBlackout(sessionID string, blackout bool) error

	// Save persists the session after the zero-drink hygiene pass, mirroring
	// UserStatus when updateStatus is set and clearing the session's draft
	// slot when clearDraft is set.
	Save(ctx context.Context, userID, sessionID string, data model.DrinkingSession, updateStatus, clearDraft bool) error

	// EndLive closes the live session: persists it with ongoing cleared,
	// always refreshes UserStatus and always clears the live draft.
	EndLive(ctx context.Context, userID, sessionID string, data model.DrinkingSession) error

	// DiscardLive deletes an abandoned live session and resets UserStatus to
	// a session-less state.
	DiscardLive(ctx context.Context, userID, sessionID string) error

	// Remove deletes a non-live session record.
	Remove(ctx context.Context, userID, sessionID string) error

	// OpenForEdit places a session in the edit draft slot.
	OpenForEdit(sessionID string, data model.DrinkingSession)

	// NewEditSession allocates a key and drafts an empty edit session for a
	// past moment. Nothing is written remotely until Save.
	NewEditSession(ctx context.Context, userID string, at int64) (model.DrinkingSession, error)

	// SyncLocalLive reconciles the live draft against the authoritative
	// session list, clearing it when the expected ongoing session is gone.
	SyncLocalLive(ongoingID string, sessions model.SessionList)

	// LiveDraft returns the drafted live session, if any.
	LiveDraft() (model.DrinkingSession, bool)
	// EditDraft returns the drafted edit session, if any.
	EditDraft() (model.DrinkingSession, bool)
}

type SessionServiceImpl struct {
	store  storekv.Store
	drafts *draft.Cache
	now    func() int64
}

var _ SessionService = (*SessionServiceImpl)(nil)

// NewSessionService constructs SessionService over the given store and draft cache.
func NewSessionService(store storekv.Store, drafts *draft.Cache) *SessionServiceImpl {
	return &SessionServiceImpl{
		store:  store,
		drafts: drafts,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// StartLive issues a single commit covering the session record and the
// UserStatus mirror. The draft is populated only after the commit succeeds;
// a failed allocation or commit leaves no local state behind.
func (s *SessionServiceImpl) StartLive(ctx context.Context, userID string) (model.DrinkingSession, error) {
	if userID == "" {
		return model.DrinkingSession{}, fmt.Errorf("validation: empty user id")
	}

	key, err := s.store.AllocateKey(dbpath.UserSessions(userID))
	if err != nil {
		return model.DrinkingSession{}, err
	}

	now := s.now()
	session := model.EmptySession(key, model.SessionLive, now)
	session.Ongoing = true

	status := model.UserStatus{
		LastOnline:      now,
		LatestSessionID: key,
		LatestSession:   &session,
	}
	err = s.store.Commit(ctx, storekv.Updates{
		dbpath.UserSession(userID, key): session,
		dbpath.UserStatus(userID):       status,
	})
	if err != nil {
		return model.DrinkingSession{}, err
	}

	s.drafts.Set(draft.Live, session)
	return session, nil
}

// AddDrinks merges count drinks into the drafted session at the timestamp.
func (s *SessionServiceImpl) AddDrinks(sessionID string, at int64, key model.DrinkKey, count int) error {
	if count <= 0 {
		return fmt.Errorf("validation: non-positive drink count")
	}
	ok := s.drafts.Mutate(sessionID, func(session *model.DrinkingSession) {
		if session.Drinks == nil {
			session.Drinks = model.DrinksList{}
		}
		ts := model.TimestampKey(at)
		if session.Drinks[ts] == nil {
			session.Drinks[ts] = model.Drinks{}
		}
		session.Drinks[ts][key] += count
	})
	if !ok {
		return errs.ErrSessionNotFound
	}
	return nil
}

// RemoveDrinks walks timestamps newest-first subtracting from the category,
// dropping category entries that reach zero and timestamps left empty.
func (s *SessionServiceImpl) RemoveDrinks(sessionID string, key model.DrinkKey, count int) error {
	if count <= 0 {
		return fmt.Errorf("validation: non-positive drink count")
	}
	ok := s.drafts.Mutate(sessionID, func(session *model.DrinkingSession) {
		remaining := count
		for remaining > 0 {
			ts := latestTimestampWith(session.Drinks, key)
			if ts == "" {
				return
			}
			have := session.Drinks[ts][key]
			take := min(have, remaining)
			remaining -= take
			if have == take {
				delete(session.Drinks[ts], key)
			} else {
				session.Drinks[ts][key] = have - take
			}
			if len(session.Drinks[ts]) == 0 {
				delete(session.Drinks, ts)
			}
		}
	})
	if !ok {
		return errs.ErrSessionNotFound
	}
	return nil
}

// UpdateNote replaces the drafted session's note.
func (s *SessionServiceImpl) UpdateNote(sessionID, note string) error {
	if !s.drafts.Mutate(sessionID, func(session *model.DrinkingSession) { session.Note = note }) {
		return errs.ErrSessionNotFound
	}
	return nil
}

// UpdateBlackout flags the drafted session.
func (s *SessionServiceImpl) UpdateBlackout(sessionID string, blackout bool) error {
	if !s.drafts.Mutate(sessionID, func(session *model.DrinkingSession) { session.Blackout = blackout }) {
		return errs.ErrSessionNotFound
	}
	return nil
}

// Save runs the hygiene pass and writes the session, plus the UserStatus
// mirror when requested, in one commit.
func (s *SessionServiceImpl) Save(ctx context.Context, userID, sessionID string, data model.DrinkingSession, updateStatus, clearDraft bool) error {
	if userID == "" || sessionID == "" {
		return fmt.Errorf("validation: empty user/session id")
	}

	data = model.RemoveZeroDrinks(data)
	data.ID = sessionID

	updates := storekv.Updates{
		dbpath.UserSession(userID, sessionID): data,
	}
	if updateStatus {
		updates[dbpath.UserStatus(userID)] = model.UserStatus{
			LastOnline:      s.now(),
			LatestSessionID: sessionID,
			LatestSession:   &data,
		}
	}
	if err := s.store.Commit(ctx, updates); err != nil {
		return err
	}

	if clearDraft {
		if kind, _, ok := s.drafts.Find(sessionID); ok {
			s.drafts.Clear(kind)
		}
	}
	return nil
}

// EndLive persists the final session data with ongoing cleared; the status
// mirror is always refreshed and the live draft always emptied.
func (s *SessionServiceImpl) EndLive(ctx context.Context, userID, sessionID string, data model.DrinkingSession) error {
	data.Ongoing = false
	if err := s.Save(ctx, userID, sessionID, data, true, false); err != nil {
		return err
	}
	s.drafts.Clear(draft.Live)
	return nil
}

// DiscardLive deletes the session subtree and resets UserStatus in one
// commit, then drops the live draft.
func (s *SessionServiceImpl) DiscardLive(ctx context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return fmt.Errorf("validation: empty user/session id")
	}
	err := s.store.Commit(ctx, storekv.Updates{
		dbpath.UserSession(userID, sessionID): nil,
		dbpath.UserStatus(userID):             model.NewUserStatus(s.now()),
	})
	if err != nil {
		return err
	}
	s.drafts.Clear(draft.Live)
	return nil
}

// Remove deletes a non-live session record, clearing the edit draft when it
// held that session.
func (s *SessionServiceImpl) Remove(ctx context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return fmt.Errorf("validation: empty user/session id")
	}
	err := s.store.Commit(ctx, storekv.Updates{
		dbpath.UserSession(userID, sessionID): nil,
	})
	if err != nil {
		return err
	}
	if kind, _, ok := s.drafts.Find(sessionID); ok && kind == draft.Edit {
		s.drafts.Clear(draft.Edit)
	}
	return nil
}

// OpenForEdit places the session in the edit slot under its id.
func (s *SessionServiceImpl) OpenForEdit(sessionID string, data model.DrinkingSession) {
	data.ID = sessionID
	s.drafts.Set(draft.Edit, data)
}

// NewEditSession drafts an empty retroactive session for the given moment.
func (s *SessionServiceImpl) NewEditSession(ctx context.Context, userID string, at int64) (model.DrinkingSession, error) {
	if userID == "" {
		return model.DrinkingSession{}, fmt.Errorf("validation: empty user id")
	}
	key, err := s.store.AllocateKey(dbpath.UserSessions(userID))
	if err != nil {
		return model.DrinkingSession{}, err
	}
	session := model.EmptySession(key, model.SessionEdit, at)
	s.drafts.Set(draft.Edit, session)
	return session, nil
}

// SyncLocalLive trusts the authoritative list: the draft is refreshed from it
// when the expected ongoing session is present and still marked ongoing, and
// cleared otherwise. Another device may have ended the session.
func (s *SessionServiceImpl) SyncLocalLive(ongoingID string, sessions model.SessionList) {
	if ongoingID != "" {
		if session, ok := sessions[ongoingID]; ok && session.Ongoing {
			session.ID = ongoingID
			s.drafts.Set(draft.Live, session)
			return
		}
	}
	s.drafts.Clear(draft.Live)
}

// LiveDraft returns the drafted live session, if any.
func (s *SessionServiceImpl) LiveDraft() (model.DrinkingSession, bool) {
	return s.drafts.Get(draft.Live)
}

// EditDraft returns the drafted edit session, if any.
func (s *SessionServiceImpl) EditDraft() (model.DrinkingSession, bool) {
	return s.drafts.Get(draft.Edit)
}

// latestTimestampWith returns the newest timestamp key carrying the category,
// "" when none does.
func latestTimestampWith(dl model.DrinksList, key model.DrinkKey) string {
	best := ""
	for ts, d := range dl {
		if n, ok := d[key]; ok && n > 0 && ts > best {
			best = ts
		}
	}
	return best
}
