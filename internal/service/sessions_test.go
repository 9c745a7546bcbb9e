package service

import (
	"context"
	"errors"
	"testing"

	"github.com/kiroku-app/kiroku-sync/internal/dbpath"
	"github.com/kiroku-app/kiroku-sync/internal/draft"
	"github.com/kiroku-app/kiroku-sync/internal/errs"
	"github.com/kiroku-app/kiroku-sync/internal/model"
	"github.com/kiroku-app/kiroku-sync/internal/storekv/memstore"
)

func newSessionService(t *testing.T) (*SessionServiceImpl, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc := NewSessionService(store, draft.NewCache())
	svc.now = func() int64 { return 1700000000000 }
	return svc, store
}

func TestStartLive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newSessionService(t)

	session, err := svc.StartLive(ctx, "u1")
	if err != nil {
		t.Fatalf("StartLive: %v", err)
	}
	if len(session.ID) != 20 {
		t.Fatalf("session id = %q, want allocated 20-char key", session.ID)
	}
	if !session.Ongoing || session.Type != model.SessionLive {
		t.Fatalf("session = %+v, want ongoing live", session)
	}
	if store.CommitCalls != 1 {
		t.Fatalf("start must be one commit, got %d", store.CommitCalls)
	}

	if v, _ := store.ReadOnce(ctx, dbpath.UserSession("u1", session.ID)+"/ongoing"); v != true {
		t.Fatalf("stored session ongoing = %v", v)
	}
	if v, _ := store.ReadOnce(ctx, dbpath.UserStatus("u1")+"/latest_session_id"); v != session.ID {
		t.Fatalf("status mirror = %v, want %s", v, session.ID)
	}

	local, ok := svc.LiveDraft()
	if !ok || local.ID != session.ID {
		t.Fatalf("live draft = %v, %v", local, ok)
	}
}

func TestDrinkEdits_LocalOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newSessionService(t)

	session, err := svc.StartLive(ctx, "u1")
	if err != nil {
		t.Fatalf("StartLive: %v", err)
	}
	commits := store.CommitCalls

	if err := svc.AddDrinks(session.ID, 1000, model.Beer, 2); err != nil {
		t.Fatalf("AddDrinks: %v", err)
	}
	if err := svc.AddDrinks(session.ID, 1000, model.Beer, 1); err != nil {
		t.Fatalf("AddDrinks again: %v", err)
	}
	if err := svc.UpdateNote(session.ID, "rooftop"); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if err := svc.UpdateBlackout(session.ID, true); err != nil {
		t.Fatalf("UpdateBlackout: %v", err)
	}

	if store.CommitCalls != commits {
		t.Fatalf("draft edits must not touch the store")
	}
	local, _ := svc.LiveDraft()
	if local.Drinks[model.TimestampKey(1000)][model.Beer] != 3 {
		t.Fatalf("drinks = %v", local.Drinks)
	}
	if local.Note != "rooftop" || !local.Blackout {
		t.Fatalf("draft = %+v", local)
	}

	// The remote record still has no drinks.
	if v, _ := store.ReadOnce(ctx, dbpath.UserSessionDrinks("u1", session.ID)); v != nil {
		t.Fatalf("remote drinks must stay empty until save, got %v", v)
	}
}

func TestDrinkEdits_UnknownSession(t *testing.T) {
	t.Parallel()
	svc, _ := newSessionService(t)

	if err := svc.AddDrinks("missing", 1000, model.Beer, 1); !errors.Is(err, errs.ErrSessionNotFound) {
		t.Fatalf("AddDrinks: want ErrSessionNotFound, got %v", err)
	}
	if err := svc.UpdateNote("missing", "x"); !errors.Is(err, errs.ErrSessionNotFound) {
		t.Fatalf("UpdateNote: want ErrSessionNotFound, got %v", err)
	}
	if err := svc.AddDrinks("missing", 1000, model.Beer, 0); err == nil {
		t.Fatalf("want validation error for zero count")
	}
}

func TestRemoveDrinks_NewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newSessionService(t)

	session, err := svc.StartLive(ctx, "u1")
	if err != nil {
		t.Fatalf("StartLive: %v", err)
	}
	if err := svc.AddDrinks(session.ID, 1000, model.Beer, 2); err != nil {
		t.Fatalf("AddDrinks: %v", err)
	}
	if err := svc.AddDrinks(session.ID, 2000, model.Beer, 1); err != nil {
		t.Fatalf("AddDrinks: %v", err)
	}
	if err := svc.AddDrinks(session.ID, 2000, model.Wine, 1); err != nil {
		t.Fatalf("AddDrinks: %v", err)
	}

	// Two beers removed: the newest timestamp empties first.
	if err := svc.RemoveDrinks(session.ID, model.Beer, 2); err != nil {
		t.Fatalf("RemoveDrinks: %v", err)
	}
	local, _ := svc.LiveDraft()
	if local.Drinks[model.TimestampKey(1000)][model.Beer] != 1 {
		t.Fatalf("older timestamp = %v, want one beer left", local.Drinks[model.TimestampKey(1000)])
	}
	if _, ok := local.Drinks[model.TimestampKey(2000)][model.Beer]; ok {
		t.Fatalf("newest beer entry must be gone")
	}
	if local.Drinks[model.TimestampKey(2000)][model.Wine] != 1 {
		t.Fatalf("other categories must be untouched")
	}

	// Removing more than present drains the category and stops.
	if err := svc.RemoveDrinks(session.ID, model.Beer, 10); err != nil {
		t.Fatalf("RemoveDrinks: %v", err)
	}
	local, _ = svc.LiveDraft()
	if _, ok := local.Drinks[model.TimestampKey(1000)]; ok {
		t.Fatalf("emptied timestamp must be dropped, got %v", local.Drinks)
	}
	if model.SumAllDrinks(local.Drinks) != 1 {
		t.Fatalf("only the wine should remain, got %v", local.Drinks)
	}
}

func TestEndLive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newSessionService(t)

	session, err := svc.StartLive(ctx, "u1")
	if err != nil {
		t.Fatalf("StartLive: %v", err)
	}
	if err := svc.AddDrinks(session.ID, 1000, model.Beer, 2); err != nil {
		t.Fatalf("AddDrinks: %v", err)
	}
	if err := svc.AddDrinks(session.ID, 2000, model.Wine, 1); err != nil {
		t.Fatalf("AddDrinks: %v", err)
	}
	if err := svc.RemoveDrinks(session.ID, model.Wine, 1); err != nil {
		t.Fatalf("RemoveDrinks: %v", err)
	}

	local, _ := svc.LiveDraft()
	commits := store.CommitCalls
	if err := svc.EndLive(ctx, "u1", session.ID, local); err != nil {
		t.Fatalf("EndLive: %v", err)
	}
	if store.CommitCalls != commits+1 {
		t.Fatalf("end must be one commit, got %d", store.CommitCalls-commits)
	}

	if v, _ := store.ReadOnce(ctx, dbpath.UserSession("u1", session.ID)+"/ongoing"); v != nil {
		t.Fatalf("ended session must not be ongoing, got %v", v)
	}
	if v, _ := store.ReadOnce(ctx, dbpath.UserSessionDrinks("u1", session.ID)+"/1000/beer"); v != float64(2) {
		t.Fatalf("persisted beer count = %v", v)
	}
	if v, _ := store.ReadOnce(ctx, dbpath.UserStatus("u1")+"/latest_session_id"); v != session.ID {
		t.Fatalf("status must point at the ended session, got %v", v)
	}
	if _, ok := svc.LiveDraft(); ok {
		t.Fatalf("live draft must be cleared")
	}
}

func TestSave_KeepsLonePlaceholder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newSessionService(t)

	session := model.EmptySession("s1", model.SessionEdit, 1000)
	session.Drinks = model.DrinksList{
		model.TimestampKey(1000): {model.Beer: 0},
	}
	if err := svc.Save(ctx, "u1", "s1", session, false, false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if v, _ := store.ReadOnce(ctx, dbpath.UserSessionDrinks("u1", "s1")+"/1000/beer"); v != float64(0) {
		t.Fatalf("lone zero placeholder must survive, got %v", v)
	}
}

func TestSave_ClearsMatchingDraft(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newSessionService(t)

	session := model.EmptySession("s1", model.SessionEdit, 1000)
	svc.OpenForEdit("s1", session)

	if err := svc.Save(ctx, "u1", "s1", session, false, true); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := svc.EditDraft(); ok {
		t.Fatalf("saved draft must be cleared")
	}
}

func TestDiscardLive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newSessionService(t)

	session, err := svc.StartLive(ctx, "u1")
	if err != nil {
		t.Fatalf("StartLive: %v", err)
	}

	commits := store.CommitCalls
	if err := svc.DiscardLive(ctx, "u1", session.ID); err != nil {
		t.Fatalf("DiscardLive: %v", err)
	}
	if store.CommitCalls != commits+1 {
		t.Fatalf("discard must be one commit")
	}

	if v, _ := store.ReadOnce(ctx, dbpath.UserSession("u1", session.ID)); v != nil {
		t.Fatalf("discarded session must be gone, got %v", v)
	}
	if v, _ := store.ReadOnce(ctx, dbpath.UserStatus("u1")+"/latest_session_id"); v != nil {
		t.Fatalf("status must be reset, got %v", v)
	}
	if _, ok := svc.LiveDraft(); ok {
		t.Fatalf("live draft must be cleared")
	}
}

func TestRemove_ClearsEditDraft(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newSessionService(t)

	session := model.EmptySession("s1", model.SessionEdit, 1000)
	if err := svc.Save(ctx, "u1", "s1", session, false, false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	svc.OpenForEdit("s1", session)

	live, err := svc.StartLive(ctx, "u1")
	if err != nil {
		t.Fatalf("StartLive: %v", err)
	}

	if err := svc.Remove(ctx, "u1", "s1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if v, _ := store.ReadOnce(ctx, dbpath.UserSession("u1", "s1")); v != nil {
		t.Fatalf("removed session must be gone, got %v", v)
	}
	if _, ok := svc.EditDraft(); ok {
		t.Fatalf("edit draft must be cleared")
	}
	if local, ok := svc.LiveDraft(); !ok || local.ID != live.ID {
		t.Fatalf("live draft must survive an unrelated removal")
	}
}

func TestNewEditSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newSessionService(t)

	session, err := svc.NewEditSession(ctx, "u1", 1000)
	if err != nil {
		t.Fatalf("NewEditSession: %v", err)
	}
	if session.Type != model.SessionEdit || session.StartTime != 1000 {
		t.Fatalf("session = %+v", session)
	}
	if store.CommitCalls != 0 {
		t.Fatalf("drafting must not write remotely")
	}
	if local, ok := svc.EditDraft(); !ok || local.ID != session.ID {
		t.Fatalf("edit draft = %v, %v", local, ok)
	}
}

func TestSyncLocalLive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newSessionService(t)

	session, err := svc.StartLive(ctx, "u1")
	if err != nil {
		t.Fatalf("StartLive: %v", err)
	}

	// Another device added drinks; the authoritative list wins.
	remote := session.Clone()
	remote.Drinks = model.DrinksList{
		model.TimestampKey(1000): {model.Beer: 1},
	}
	svc.SyncLocalLive(session.ID, model.SessionList{session.ID: remote})
	local, ok := svc.LiveDraft()
	if !ok || local.Drinks[model.TimestampKey(1000)][model.Beer] != 1 {
		t.Fatalf("draft must be refreshed from the list, got %v, %v", local, ok)
	}

	// Another device ended the session; the stale draft clears.
	remote.Ongoing = false
	svc.SyncLocalLive(session.ID, model.SessionList{session.ID: remote})
	if _, ok := svc.LiveDraft(); ok {
		t.Fatalf("draft must be cleared once the session stops being ongoing")
	}

	// Session gone entirely.
	svc.SyncLocalLive(session.ID, model.SessionList{})
	if _, ok := svc.LiveDraft(); ok {
		t.Fatalf("draft must be cleared when the session disappears")
	}
}
