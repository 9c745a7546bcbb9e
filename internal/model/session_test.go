package model

import (
	"reflect"
	"testing"
)

func TestRemoveZeroDrinks_StripsPlaceholdersAlongsideRealEntries(t *testing.T) {
	t.Parallel()
	s := DrinkingSession{
		StartTime: 1,
		Drinks: DrinksList{
			"100": {Beer: 2},
			"200": {Beer: 0, Wine: 0},
			"300": {},
		},
	}
	got := RemoveZeroDrinks(s)
	want := DrinksList{"100": {Beer: 2}}
	if !reflect.DeepEqual(got.Drinks, want) {
		t.Fatalf("got %v, want %v", got.Drinks, want)
	}
}

func TestRemoveZeroDrinks_KeepsLonePlaceholder(t *testing.T) {
	t.Parallel()
	s := DrinkingSession{Drinks: DrinksList{"100": {Beer: 0}}}
	got := RemoveZeroDrinks(s)
	if len(got.Drinks) != 1 {
		t.Fatalf("a session with only zero placeholders must stay intact, got %v", got.Drinks)
	}
}

func TestRemoveZeroDrinks_Idempotent(t *testing.T) {
	t.Parallel()
	s := DrinkingSession{
		Drinks: DrinksList{
			"100": {Beer: 1},
			"200": {Wine: 0},
		},
	}
	once := RemoveZeroDrinks(s)
	twice := RemoveZeroDrinks(once)
	if !reflect.DeepEqual(once.Drinks, twice.Drinks) {
		t.Fatalf("hygiene pass must be idempotent: %v vs %v", once.Drinks, twice.Drinks)
	}
}

func TestRemoveZeroDrinks_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	s := DrinkingSession{
		Drinks: DrinksList{
			"100": {Beer: 1},
			"200": {Wine: 0},
		},
	}
	_ = RemoveZeroDrinks(s)
	if len(s.Drinks) != 2 {
		t.Fatalf("input session was mutated: %v", s.Drinks)
	}
}

func TestClone_Independent(t *testing.T) {
	t.Parallel()
	s := DrinkingSession{Drinks: DrinksList{"100": {Beer: 1}}}
	c := s.Clone()
	c.Drinks["100"][Beer] = 9
	c.Drinks["200"] = Drinks{Wine: 1}
	if s.Drinks["100"][Beer] != 1 || len(s.Drinks) != 1 {
		t.Fatalf("clone shares state with original: %v", s.Drinks)
	}
}

func TestLastStartedSessionID(t *testing.T) {
	t.Parallel()
	sessions := SessionList{
		"a": {StartTime: 100},
		"b": {StartTime: 300},
		"c": {StartTime: 200},
	}
	if got := LastStartedSessionID(sessions); got != "b" {
		t.Fatalf("got %q, want b", got)
	}
	if got := LastStartedSessionID(nil); got != "" {
		t.Fatalf("empty list must yield empty id, got %q", got)
	}
}

func TestLastStartedSessionID_TieBreaksTowardLargerID(t *testing.T) {
	t.Parallel()
	sessions := SessionList{
		"a": {StartTime: 100},
		"b": {StartTime: 100},
	}
	if got := LastStartedSessionID(sessions); got != "b" {
		t.Fatalf("got %q, want b", got)
	}
}

func TestSumAllDrinks(t *testing.T) {
	t.Parallel()
	dl := DrinksList{
		"100": {Beer: 2, Wine: 1},
		"200": {Cocktail: 3},
	}
	if got := SumAllDrinks(dl); got != 6 {
		t.Fatalf("got %d, want 6", got)
	}
	if got := SumAllDrinks(nil); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestFindOngoingSessionID(t *testing.T) {
	t.Parallel()
	sessions := SessionList{
		"a": {StartTime: 100},
		"b": {StartTime: 200, Ongoing: true},
	}
	id, ok := FindOngoingSessionID(sessions)
	if !ok || id != "b" {
		t.Fatalf("got %q/%v, want b/true", id, ok)
	}
	if _, ok := FindOngoingSessionID(SessionList{"a": {}}); ok {
		t.Fatalf("no ongoing session expected")
	}
}
