package game

import (
	"testing"
	"time"
)

func newTestUnoLobby(players []string) *UnoLobby {
	l := &UnoLobby{
		Code:       "TEST01",
		MaxPlayers: 4,
		Phase:      PhasePlaying,
		Hands:      make(map[string][]UnoCard),
		hub:        newHub(),
		Direction:  1,
	}
	for i, id := range players {
		l.Players = append(l.Players, &BasePlayer{UserID: id, Seat: i, Connected: true})
	}
	return l
}

func unoCard(kind UnoFaceKind, color UnoColor, value int) UnoCard {
	return UnoCard{ID: kind.String() + color.String() + "-" + string(rune('0'+value)), Face: UnoFace{Kind: kind, Color: color, Value: value}}
}

func (k UnoFaceKind) String() string { return string(k) }
func (c UnoColor) String() string    { return string(c) }

func TestUnoRemovePlayerDropsSeatInLobbyPhase(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.Phase = PhaseLobby
	now := time.Now()
	empty := l.RemovePlayer("a", now)
	if empty {
		t.Fatalf("expected b to still be seated")
	}
	if len(l.Players) != 1 || l.Players[0].UserID != "b" || l.Players[0].Seat != 0 {
		t.Fatalf("expected only b to remain, renumbered to seat 0, got %+v", l.Players)
	}
}

func TestUnoRemovePlayerKeepsSeatMidGame(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	now := time.Now()
	if l.RemovePlayer("a", now) {
		t.Fatalf("did not expect the lobby to report empty mid-game")
	}
	if len(l.Players) != 2 {
		t.Fatalf("expected both seats to remain occupied mid-game, got %d", len(l.Players))
	}
}

func TestUnoRemovePlayerLastSeatReportsEmpty(t *testing.T) {
	l := newTestUnoLobby([]string{"a"})
	l.Phase = PhaseLobby
	if !l.RemovePlayer("a", time.Now()) {
		t.Fatalf("expected removing the only seated player to report empty")
	}
}

func TestUnoAddPlayerRejectsWhenFull(t *testing.T) {
	l := NewUnoLobby("ABC123", "host", "Host", "", 2, false, time.Now())
	now := time.Now()
	if err := l.AddPlayer("p2", "P2", "", now); err != nil {
		t.Fatalf("expected second player to join, got %v", err)
	}
	if err := l.AddPlayer("p3", "P3", "", now); err == nil {
		t.Fatalf("expected lobby-full error for a third player")
	}
}

func TestUnoPlayRejectsWrongTurn(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.CurrentSeat = 0
	l.CurrentColor = Red
	l.Discard = []UnoCard{unoCard(FaceNumber, Red, 5)}
	l.Hands["b"] = []UnoCard{unoCard(FaceNumber, Red, 7)}

	err := l.Play("b", l.Hands["b"][0].ID, NoColor, time.Now())
	if err == nil {
		t.Fatalf("expected not-your-turn error")
	}
}

func TestUnoPlayRejectsUnplayableCard(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.CurrentSeat = 0
	l.CurrentColor = Red
	l.Discard = []UnoCard{unoCard(FaceNumber, Red, 5)}
	l.Hands["a"] = []UnoCard{unoCard(FaceNumber, Blue, 9)}

	err := l.Play("a", l.Hands["a"][0].ID, NoColor, time.Now())
	if err == nil {
		t.Fatalf("expected unplayable-card error for mismatched color and value")
	}
}

func TestUnoWild4RestrictedWhenHandHasCurrentColor(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.CurrentSeat = 0
	l.CurrentColor = Red
	l.Discard = []UnoCard{unoCard(FaceNumber, Red, 5)}
	wild4 := unoCard(FaceWild4, NoColor, 0)
	l.Hands["a"] = []UnoCard{wild4, unoCard(FaceNumber, Red, 2)}

	err := l.Play("a", wild4.ID, Blue, time.Now())
	if err == nil {
		t.Fatalf("expected wild4-restricted error when hand still has a red card")
	}
}

func TestUnoWild4AllowedWhenNoMatchingColor(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.CurrentSeat = 0
	l.CurrentColor = Red
	l.Discard = []UnoCard{unoCard(FaceNumber, Red, 5)}
	l.DrawPile = []UnoCard{
		unoCard(FaceNumber, Blue, 3), unoCard(FaceNumber, Blue, 4),
		unoCard(FaceNumber, Blue, 6), unoCard(FaceNumber, Blue, 7),
	}
	wild4 := unoCard(FaceWild4, NoColor, 0)
	l.Hands["a"] = []UnoCard{wild4, unoCard(FaceNumber, Blue, 2)}

	if err := l.Play("a", wild4.ID, Green, time.Now()); err != nil {
		t.Fatalf("expected wild4 to be legal with no red cards in hand, got %v", err)
	}
	if l.CurrentColor != Green {
		t.Fatalf("expected chosen color green, got %s", l.CurrentColor)
	}
	if len(l.Hands["b"]) != 4 {
		t.Fatalf("expected next player to draw 4 penalty cards, got %d", len(l.Hands["b"]))
	}
}

func TestUnoMustCallUnoPromptAtOneCard(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.CurrentSeat = 0
	l.CurrentColor = Red
	l.Discard = []UnoCard{unoCard(FaceNumber, Red, 5)}
	last := unoCard(FaceNumber, Red, 1)
	l.Hands["a"] = []UnoCard{last, unoCard(FaceNumber, Blue, 2)}

	if err := l.Play("a", last.ID, NoColor, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.MustCallUno != "a" {
		t.Fatalf("expected must-call-uno prompt for a, got %q", l.MustCallUno)
	}
	if l.Prompt == nil {
		t.Fatalf("expected a pending uno prompt")
	}
}

func TestUnoCatchUnoPenalizesAfterGraceWindow(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.MustCallUno = "a"
	now := time.Now()
	l.Prompt = &UnoPrompt{UserID: "a", Deadline: now.Add(-time.Second)}
	l.DrawPile = []UnoCard{unoCard(FaceNumber, Green, 1), unoCard(FaceNumber, Green, 2)}
	l.Hands["a"] = []UnoCard{unoCard(FaceNumber, Red, 1)}

	if err := l.CatchUno("b", "a", now); err != nil {
		t.Fatalf("expected catch to succeed after grace window elapsed, got %v", err)
	}
	if len(l.Hands["a"]) != 3 {
		t.Fatalf("expected a to draw 2 penalty cards, has %d", len(l.Hands["a"]))
	}
	if l.MustCallUno != "" {
		t.Fatalf("expected must-call-uno cleared after catch")
	}
}

func TestUnoCatchUnoRejectedDuringGraceWindowBySelf(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.MustCallUno = "a"
	now := time.Now()
	l.Prompt = &UnoPrompt{UserID: "a", Deadline: now.Add(5 * time.Second)}

	if err := l.CatchUno("a", "a", now); err == nil {
		t.Fatalf("expected self-catch within the grace window to be rejected")
	}
}

func TestUnoCatchUnoRejectedAfterDeadlineBySelf(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.MustCallUno = "a"
	now := time.Now()
	l.Prompt = &UnoPrompt{UserID: "a", Deadline: now.Add(-time.Second)}
	l.Hands["a"] = []UnoCard{unoCard(FaceNumber, Red, 1)}

	if err := l.CatchUno("a", "a", now); err == nil {
		t.Fatalf("expected self-catch to be rejected even after the grace window elapsed")
	}
	if len(l.Hands["a"]) != 1 {
		t.Fatalf("expected no penalty cards drawn on a rejected self-catch, has %d", len(l.Hands["a"]))
	}
}

func TestUnoReverseActsAsSkipHeadsUp(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.CurrentSeat = 0
	l.CurrentColor = Red
	l.Discard = []UnoCard{unoCard(FaceNumber, Red, 5)}
	reverse := unoCard(FaceReverse, Red, 0)
	l.Hands["a"] = []UnoCard{reverse, unoCard(FaceNumber, Blue, 2)}

	if err := l.Play("a", reverse.ID, NoColor, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.CurrentSeat != 0 {
		t.Fatalf("expected heads-up reverse to leave the same player's turn, current seat %d", l.CurrentSeat)
	}
	if l.Direction != -1 {
		t.Fatalf("expected direction to flip even when heads-up reverse acts as a skip, got %d", l.Direction)
	}
}

func TestUnoPlayEmptyingHandFinishesRound(t *testing.T) {
	l := newTestUnoLobby([]string{"a", "b"})
	l.CurrentSeat = 0
	l.CurrentColor = Red
	l.Discard = []UnoCard{unoCard(FaceNumber, Red, 5)}
	last := unoCard(FaceNumber, Red, 1)
	l.Hands["a"] = []UnoCard{last}

	if err := l.Play("a", last.ID, NoColor, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Phase != PhaseFinished {
		t.Fatalf("expected round to finish once a player empties their hand")
	}
	if l.Winner != "a" {
		t.Fatalf("expected a to be recorded as the winner, got %q", l.Winner)
	}

	winnerID, ok := l.ClaimReward()
	if !ok || winnerID != "a" {
		t.Fatalf("expected reward claimable for winner a, got winner=%q ok=%v", winnerID, ok)
	}
	if _, ok := l.ClaimReward(); ok {
		t.Fatalf("expected reward to be claimable only once")
	}
}
