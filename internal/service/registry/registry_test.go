package registry_test

import (
	"errors"
	"testing"
	"time"

	"cardroom/internal/service/registry"
	appErr "cardroom/pkg/errors"
)

func newTestRegistry() *registry.Registry {
	return registry.New(registry.Config{
		PublicPokerCodes: []string{"PUBLIC-POKER"},
		PublicUnoCodes:   []string{"PUBLIC-UNO"},
		MaxPlayers:       6,
		SmallBlind:       10,
		BigBlind:         20,
		StartingStack:    1000,
	})
}

func TestBootstrapCreatesPublicLobbies(t *testing.T) {
	r := newTestRegistry()
	r.Bootstrap(time.Now())

	if _, ok := r.Poker("PUBLIC-POKER"); !ok {
		t.Fatalf("expected the public poker lobby to exist after bootstrap")
	}
	if _, ok := r.Uno("PUBLIC-UNO"); !ok {
		t.Fatalf("expected the public uno lobby to exist after bootstrap")
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	r.Bootstrap(time.Now())
	first, _ := r.Poker("PUBLIC-POKER")
	r.Bootstrap(time.Now())
	second, _ := r.Poker("PUBLIC-POKER")
	if first != second {
		t.Fatalf("expected bootstrap to leave an existing public lobby untouched")
	}
}

func TestCreatePokerLobbyAllocatesUniqueCode(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()
	a := r.CreatePokerLobby("host1", "Host1", "", now)
	b := r.CreatePokerLobby("host2", "Host2", "", now)
	if a.Code == b.Code {
		t.Fatalf("expected distinct lobby codes, got %q twice", a.Code)
	}
	if _, ok := r.Poker(a.Code); !ok {
		t.Fatalf("expected lobby %s to be registered", a.Code)
	}
}

func TestDeletePrivateLobbySucceeds(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()
	l := r.CreatePokerLobby("host1", "Host1", "", now)
	if err := r.DeletePoker(l.Code); err != nil {
		t.Fatalf("expected deleting a private lobby to succeed: %v", err)
	}
	if _, ok := r.Poker(l.Code); ok {
		t.Fatalf("expected lobby to be gone after deletion")
	}
}

func TestDeletePublicLobbyRejected(t *testing.T) {
	r := newTestRegistry()
	r.Bootstrap(time.Now())
	err := r.DeletePoker("PUBLIC-POKER")
	if !errors.Is(err, appErr.ErrPublicNotEndable) {
		t.Fatalf("expected public-not-endable error, got: %v", err)
	}
}

func TestDeleteUnknownLobbyNotFound(t *testing.T) {
	r := newTestRegistry()
	err := r.DeletePoker("GHOST01")
	if !errors.Is(err, appErr.ErrLobbyNotFound) {
		t.Fatalf("expected lobby-not-found error, got: %v", err)
	}
}

func TestResetPublicPokerReplacesLobby(t *testing.T) {
	r := newTestRegistry()
	r.Bootstrap(time.Now())
	before, _ := r.Poker("PUBLIC-POKER")
	r.ResetPublicPoker("PUBLIC-POKER", time.Now())
	after, _ := r.Poker("PUBLIC-POKER")
	if before == after {
		t.Fatalf("expected reset to replace the public lobby with a fresh instance")
	}
}

func TestListPublicRoomsExcludesPrivateLobbies(t *testing.T) {
	r := newTestRegistry()
	r.Bootstrap(time.Now())
	r.CreatePokerLobby("host1", "Host1", "", time.Now())

	rooms := r.ListPublicRooms()
	if len(rooms) != 2 {
		t.Fatalf("expected exactly the two bootstrapped public lobbies, got %d: %+v", len(rooms), rooms)
	}
	for _, room := range rooms {
		if room.Code != "PUBLIC-POKER" && room.Code != "PUBLIC-UNO" {
			t.Fatalf("expected only public codes listed, got %q", room.Code)
		}
	}
}
