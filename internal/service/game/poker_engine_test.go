package game

import (
	"math/rand"
	"testing"
	"time"
)

func seededSource(seed int64) Source {
	return DeterministicSource{Rand: rand.New(rand.NewSource(seed))}
}

func twoPlayerLobby(t *testing.T) *PokerLobby {
	t.Helper()
	now := time.Now()
	l := NewPokerLobby("TABLE1", "p0", "P0", "", 4, false, 10, 20, 1000, now)
	if err := l.AddPlayer("p1", "P1", "", 1000, now); err != nil {
		t.Fatalf("failed to seat second player: %v", err)
	}
	return l
}

func TestStartHandPostsBlindsHeadsUp(t *testing.T) {
	l := twoPlayerLobby(t)
	now := time.Now()
	if err := l.StartHand(seededSource(1), now); err != nil {
		t.Fatalf("unexpected error starting hand: %v", err)
	}
	if l.Phase != PhasePlaying {
		t.Fatalf("expected phase playing, got %s", l.Phase)
	}
	if l.SBSeat != l.DealerSeat {
		t.Fatalf("expected the dealer to post the small blind heads-up, dealer=%d sb=%d", l.DealerSeat, l.SBSeat)
	}
	if l.CurrentSeat != l.DealerSeat {
		t.Fatalf("expected the dealer to act first preflop heads-up, dealer=%d current=%d", l.DealerSeat, l.CurrentSeat)
	}
	sb := l.playerBySeat(l.SBSeat)
	bb := l.playerBySeat(l.BBSeat)
	if sb.CurrentBet != 10 {
		t.Fatalf("expected small blind of 10, got %d", sb.CurrentBet)
	}
	if bb.CurrentBet != 20 {
		t.Fatalf("expected big blind of 20, got %d", bb.CurrentBet)
	}
	if l.CurrentBet != 20 {
		t.Fatalf("expected current bet 20, got %d", l.CurrentBet)
	}
	for _, p := range l.Players {
		if len(p.HoleCards) != 2 {
			t.Fatalf("expected 2 hole cards for %s, got %d", p.UserID, len(p.HoleCards))
		}
	}
}

func TestCallThenCheckAdvancesToFlop(t *testing.T) {
	l := twoPlayerLobby(t)
	now := time.Now()
	if err := l.StartHand(seededSource(2), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sbUser := l.playerBySeat(l.SBSeat).UserID
	bbUser := l.playerBySeat(l.BBSeat).UserID

	if err := l.Call(sbUser, now); err != nil {
		t.Fatalf("small blind call failed: %v", err)
	}
	if l.Street != StreetPreFlop {
		t.Fatalf("expected still preflop pending the big blind option, got %s", l.Street)
	}
	if err := l.Check(bbUser, now); err != nil {
		t.Fatalf("big blind check failed: %v", err)
	}
	if l.Street != StreetFlop {
		t.Fatalf("expected flop after both players acted, got %s", l.Street)
	}
	if len(l.Community) != 3 {
		t.Fatalf("expected 3 flop cards, got %d", len(l.Community))
	}
	if l.CurrentBet != 0 {
		t.Fatalf("expected current bet reset to 0 on the new street, got %d", l.CurrentBet)
	}
}

func TestFoldResolvesHandToSoleContender(t *testing.T) {
	l := twoPlayerLobby(t)
	now := time.Now()
	if err := l.StartHand(seededSource(3), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sbUser := l.playerBySeat(l.SBSeat).UserID
	bbUser := l.playerBySeat(l.BBSeat).UserID
	bbPlayerBefore := l.playerByID(bbUser)
	potBefore := bbPlayerBefore.CurrentBet + l.playerByID(sbUser).CurrentBet

	if err := l.Fold(sbUser, now); err != nil {
		t.Fatalf("fold failed: %v", err)
	}
	if l.Phase != PhaseFinished {
		t.Fatalf("expected hand to finish immediately when one contender remains")
	}
	if l.Celebration == nil || l.Celebration.WinnerID != bbUser {
		t.Fatalf("expected %s to be recorded as winner", bbUser)
	}
	if l.playerByID(bbUser).Stack != 1000-20+potBefore {
		t.Fatalf("expected winner's stack to include the folded pot")
	}
}

func TestBetOrRaiseRejectsBelowMinimum(t *testing.T) {
	l := twoPlayerLobby(t)
	now := time.Now()
	if err := l.StartHand(seededSource(4), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sbUser := l.playerBySeat(l.SBSeat).UserID
	// Current bet is 20 (the big blind); a raise of only 5 more is below MinRaise (20).
	if err := l.BetOrRaise(sbUser, 25, now); err == nil {
		t.Fatalf("expected a too-small raise to be rejected")
	}
}

func TestBetOrRaiseRejectsExceedingStack(t *testing.T) {
	l := twoPlayerLobby(t)
	now := time.Now()
	if err := l.StartHand(seededSource(5), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sbUser := l.playerBySeat(l.SBSeat).UserID
	if err := l.BetOrRaise(sbUser, 100_000, now); err == nil {
		t.Fatalf("expected a raise beyond the player's stack to be rejected")
	}
}

func TestClaimRewardIsSingleUse(t *testing.T) {
	l := twoPlayerLobby(t)
	now := time.Now()
	if err := l.StartHand(seededSource(6), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sbUser := l.playerBySeat(l.SBSeat).UserID
	if err := l.Fold(sbUser, now); err != nil {
		t.Fatalf("fold failed: %v", err)
	}

	winnerID, handNumber, ok := l.ClaimReward()
	if !ok || winnerID == "" || handNumber != 1 {
		t.Fatalf("expected a claimable reward for hand 1, got winner=%q hand=%d ok=%v", winnerID, handNumber, ok)
	}
	if _, _, ok := l.ClaimReward(); ok {
		t.Fatalf("expected reward to be claimable only once per hand")
	}
}

func TestHandleTurnTimeoutFoldsWhenBetOwed(t *testing.T) {
	l := twoPlayerLobby(t)
	now := time.Now()
	if err := l.StartHand(seededSource(7), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sbUser := l.playerBySeat(l.SBSeat).UserID
	past := l.TurnDeadline.Add(time.Second)

	l.HandleTurnTimeout(past)
	if l.playerByID(sbUser).LastAction != "fold" {
		t.Fatalf("expected the player who owed a call to be auto-folded on timeout")
	}
}

func TestRemovePlayerDropsSeatInLobbyPhase(t *testing.T) {
	l := twoPlayerLobby(t)
	now := time.Now()
	empty := l.RemovePlayer("p1", now)
	if empty {
		t.Fatalf("expected the lobby to still have the host seated")
	}
	if len(l.Players) != 1 || l.Players[0].UserID != "p0" {
		t.Fatalf("expected only p0 to remain seated, got %+v", l.Players)
	}
	if l.playerByID("p0").Seat != 0 {
		t.Fatalf("expected remaining seats to be renumbered from 0")
	}
}

func TestRemovePlayerKeepsSeatMidHand(t *testing.T) {
	l := twoPlayerLobby(t)
	now := time.Now()
	if err := l.StartHand(seededSource(3), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	empty := l.RemovePlayer("p1", now)
	if empty {
		t.Fatalf("did not expect the lobby to report empty mid-hand")
	}
	if len(l.Players) != 2 {
		t.Fatalf("expected both seats to remain occupied mid-hand, got %d", len(l.Players))
	}
}

func TestRemovePlayerLastSeatReportsEmpty(t *testing.T) {
	now := time.Now()
	l := NewPokerLobby("SOLO1", "p0", "P0", "", 4, false, 10, 20, 1000, now)
	if !l.RemovePlayer("p0", now) {
		t.Fatalf("expected removing the only seated player to report empty")
	}
}

func TestSetCardsRevealedRequiresShowdownWinner(t *testing.T) {
	l := twoPlayerLobby(t)
	now := time.Now()
	if err := l.StartHand(seededSource(11), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.SetCardsRevealed("p0", true, now); err == nil {
		t.Fatalf("expected revealCards to be rejected before showdown")
	}
	folder := l.playerBySeat(l.CurrentSeat).UserID
	winner := "p0"
	if folder == "p0" {
		winner = "p1"
	}
	if err := l.Fold(folder, now); err != nil {
		t.Fatalf("unexpected error folding to end the hand: %v", err)
	}
	if len(l.LastShowdown) != 1 || l.LastShowdown[0].UserID != winner {
		t.Fatalf("expected %s to be recorded as the sole winner, got %+v", winner, l.LastShowdown)
	}
	if err := l.SetCardsRevealed(folder, true, now); err == nil {
		t.Fatalf("expected revealCards to be rejected for the folded loser")
	}
	if err := l.SetCardsRevealed(winner, false, now); err != nil {
		t.Fatalf("expected the showdown winner to toggle reveal, got %v", err)
	}
}
