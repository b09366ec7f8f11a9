package game

import (
	"fmt"
	"time"

	appErr "cardroom/pkg/errors"
)

const pokerTurnTimeout = 30 * time.Second

// NewPokerLobby creates an empty lobby with the host seated, awaiting a
// second player before a hand can start.
func NewPokerLobby(code, hostID, nickname, avatar string, maxPlayers int, isPublic bool, smallBlind, bigBlind, startingStack int64, now time.Time) *PokerLobby {
	l := &PokerLobby{
		Code:       code,
		IsPublic:   isPublic,
		HostID:     hostID,
		MaxPlayers: maxPlayers,
		Phase:      PhaseLobby,
		CreatedAt:  now,
		UpdatedAt:  now,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
		hub:        newHub(),
	}
	l.Players = append(l.Players, &PokerPlayer{
		BasePlayer: BasePlayer{UserID: hostID, Seat: 0, Nickname: nickname, Avatar: avatar, Connected: true, LastSeenAt: now},
		Stack:      startingStack,
	})
	return l
}

func (l *PokerLobby) bumpLocked(now time.Time) {
	l.Version++
	l.UpdatedAt = now
}

// AddPlayer seats a new player with a fresh stack while the table is not
// mid-hand.
func (l *PokerLobby) AddPlayer(userID, nickname, avatar string, startingStack int64, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	if l.Phase == PhasePlaying {
		return appErr.ErrWrongPhase
	}
	if len(l.Players) >= l.MaxPlayers {
		return appErr.ErrLobbyFull
	}
	for _, p := range l.Players {
		if p.UserID == userID {
			return nil
		}
	}
	l.Players = append(l.Players, &PokerPlayer{
		BasePlayer: BasePlayer{UserID: userID, Seat: len(l.Players), Nickname: nickname, Avatar: avatar, Connected: true, LastSeenAt: now},
		Stack:      startingStack,
	})
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "join"})
	l.bumpLocked(now)
	return nil
}

// SetCosmetics records userID's resolved cosmetics, looked up by the
// dispatcher outside the lobby lock and applied here under it.
func (l *PokerLobby) SetCosmetics(userID string, c Cosmetics) {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	if p := l.playerByID(userID); p != nil {
		p.Cosmetics = c
	}
}

func (l *PokerLobby) SetConnected(userID string, connected bool, now time.Time) {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	p := l.playerByID(userID)
	if p == nil {
		return
	}
	p.Connected = connected
	p.LastSeenAt = now
	l.bumpLocked(now)
}

// StartHand deals a fresh hand: rotates the button, posts blinds, deals hole
// cards, and opens preflop action. It requires at least two players with
// chips who are connected.
func (l *PokerLobby) StartHand(src Source, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	eligible := 0
	for _, p := range l.Players {
		if p.Connected && p.Stack > 0 {
			eligible++
		}
	}
	if eligible < 2 {
		return appErr.ErrNotEnoughPlayers
	}

	for _, p := range l.Players {
		p.Folded = p.Stack <= 0 || !p.Connected
		p.AllIn = false
		p.CurrentBet = 0
		p.Contributed = 0
		p.LastAction = ""
		p.CardsRevealed = false
		p.HoleCards = nil
	}

	l.HandNumber++
	l.Deck = NewPokerDeck(src)
	l.Community = nil
	l.Pots = nil
	l.LastShowdown = nil
	l.Celebration = nil
	l.RewardIssued = false
	l.Street = StreetPreFlop
	l.CurrentBet = 0
	l.MinRaise = l.BigBlind
	l.ActedThisRound = map[string]bool{}

	eligible = 0
	for _, p := range l.Players {
		if !p.Folded {
			eligible++
		}
	}

	l.DealerSeat = l.nextOccupiedSeat(l.DealerSeat)
	if eligible == 2 {
		// Heads-up: the dealer posts the small blind and acts first preflop.
		l.SBSeat = l.DealerSeat
		l.BBSeat = l.nextToAct(l.DealerSeat)
	} else {
		l.SBSeat = l.nextToAct(l.DealerSeat)
		l.BBSeat = l.nextToAct(l.SBSeat)
	}
	if l.SBSeat < 0 || l.BBSeat < 0 || l.SBSeat == l.BBSeat {
		return appErr.ErrNotEnoughPlayers
	}

	for _, p := range l.Players {
		if p.Folded {
			continue
		}
		p.HoleCards = l.Deck.Deal(2)
	}

	l.postBlindLocked(l.SBSeat, l.SmallBlind)
	l.postBlindLocked(l.BBSeat, l.BigBlind)
	l.CurrentBet = l.BigBlind

	if eligible == 2 {
		l.CurrentSeat = l.DealerSeat
	} else {
		l.CurrentSeat = l.nextToAct(l.BBSeat)
	}
	l.Phase = PhasePlaying
	l.TurnDeadline = now.Add(pokerTurnTimeout)
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Type: "hand-start", Detail: fmt.Sprintf("hand %d", l.HandNumber)})
	l.bumpLocked(now)
	return nil
}

func (l *PokerLobby) postBlindLocked(seat int, amount int64) {
	p := l.playerBySeat(seat)
	if p == nil {
		return
	}
	if amount > p.Stack {
		amount = p.Stack
	}
	p.Stack -= amount
	p.CurrentBet += amount
	p.Contributed += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}

func (l *PokerLobby) requireTurn(userID string) (*PokerPlayer, error) {
	if l.Phase != PhasePlaying {
		return nil, appErr.ErrWrongPhase
	}
	cur := l.playerBySeat(l.CurrentSeat)
	if cur == nil || cur.UserID != userID {
		return nil, appErr.ErrNotYourTurn
	}
	return cur, nil
}

// Fold removes the acting player from the hand.
func (l *PokerLobby) Fold(userID string, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	p, err := l.requireTurn(userID)
	if err != nil {
		return err
	}
	p.Folded = true
	p.LastAction = "fold"
	l.ActedThisRound[userID] = true
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "fold"})
	l.advanceLocked(now)
	l.bumpLocked(now)
	return nil
}

// Check passes the action when no bet is owed.
func (l *PokerLobby) Check(userID string, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	p, err := l.requireTurn(userID)
	if err != nil {
		return err
	}
	if p.CurrentBet != l.CurrentBet {
		return appErr.ErrCheckNotAllowed
	}
	p.LastAction = "check"
	l.ActedThisRound[userID] = true
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "check"})
	l.advanceLocked(now)
	l.bumpLocked(now)
	return nil
}

// Call matches the current bet, going all-in if the player's stack is short.
func (l *PokerLobby) Call(userID string, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	p, err := l.requireTurn(userID)
	if err != nil {
		return err
	}
	owed := l.CurrentBet - p.CurrentBet
	if owed <= 0 {
		return appErr.ErrInvalidAction
	}
	if owed > p.Stack {
		owed = p.Stack
	}
	p.Stack -= owed
	p.CurrentBet += owed
	p.Contributed += owed
	if p.Stack == 0 {
		p.AllIn = true
	}
	p.LastAction = "call"
	l.ActedThisRound[userID] = true
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "call"})
	l.advanceLocked(now)
	l.bumpLocked(now)
	return nil
}

// BetOrRaise opens or raises the betting to totalBet (the player's new
// CurrentBet for the round, not the delta). It is a bet when currentBet is
// zero and a raise otherwise.
func (l *PokerLobby) BetOrRaise(userID string, totalBet int64, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	p, err := l.requireTurn(userID)
	if err != nil {
		return err
	}
	delta := totalBet - p.CurrentBet
	if delta <= 0 || delta > p.Stack {
		return appErr.ErrInsufficientStack
	}
	raiseAmount := totalBet - l.CurrentBet
	isAllIn := delta == p.Stack
	if totalBet <= l.CurrentBet {
		return appErr.ErrBetTooLow
	}
	minRaiseBefore := l.MinRaise
	if !isAllIn && raiseAmount < minRaiseBefore {
		return appErr.ErrBetTooLow
	}

	p.Stack -= delta
	p.CurrentBet = totalBet
	p.Contributed += delta
	if p.Stack == 0 {
		p.AllIn = true
	}
	if raiseAmount > l.MinRaise {
		l.MinRaise = raiseAmount
	}
	l.CurrentBet = totalBet
	p.LastAction = "raise"
	if !isAllIn || raiseAmount >= minRaiseBefore {
		// A full raise reopens action for everyone else.
		l.ActedThisRound = map[string]bool{userID: true}
	} else {
		// A short all-in raise does not reopen action for players already matched.
		l.ActedThisRound[userID] = true
	}
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "raise", Detail: fmt.Sprintf("%d", totalBet)})
	l.advanceLocked(now)
	l.bumpLocked(now)
	return nil
}

func (l *PokerLobby) bettingRoundComplete() bool {
	contenders := l.contenders()
	live := 0
	for _, p := range contenders {
		if !p.AllIn {
			live++
		}
	}
	if live == 0 {
		return true
	}
	for _, p := range contenders {
		if p.AllIn {
			continue
		}
		if !l.ActedThisRound[p.UserID] || p.CurrentBet != l.CurrentBet {
			return false
		}
	}
	return true
}

// advanceLocked moves the turn to the next actor, or resolves the hand /
// advances the street when the round is complete. Caller holds the lock.
func (l *PokerLobby) advanceLocked(now time.Time) {
	if len(l.contenders()) == 1 {
		l.resolveByFoldLocked(now)
		return
	}
	if l.bettingRoundComplete() {
		l.advanceStreetLocked(now)
		return
	}
	l.CurrentSeat = l.nextToAct(l.CurrentSeat)
	l.TurnDeadline = now.Add(pokerTurnTimeout)
}

func (l *PokerLobby) resolveByFoldLocked(now time.Time) {
	winner := l.contenders()[0]
	pots := l.collectPots()
	total := int64(0)
	for _, pot := range pots {
		total += pot.Amount
	}
	winner.Stack += total
	l.LastShowdown = []ShowdownResult{{UserID: winner.UserID, Won: total}}
	l.finishHandLocked(winner.UserID, now)
}

func (l *PokerLobby) collectPots() []Pot {
	contributions := map[string]int64{}
	folded := map[string]bool{}
	for _, p := range l.Players {
		if p.Contributed > 0 {
			contributions[p.UserID] = p.Contributed
		}
		folded[p.UserID] = p.Folded
	}
	pots := buildPots(contributions, folded)
	l.Pots = pots
	return pots
}

func (l *PokerLobby) advanceStreetLocked(now time.Time) {
	for _, p := range l.Players {
		p.CurrentBet = 0
	}
	l.CurrentBet = 0
	l.MinRaise = l.BigBlind
	l.ActedThisRound = map[string]bool{}

	switch l.Street {
	case StreetPreFlop:
		l.Community = append(l.Community, l.Deck.Deal(3)...)
		l.Street = StreetFlop
	case StreetFlop:
		l.Community = append(l.Community, l.Deck.Deal(1)...)
		l.Street = StreetTurn
	case StreetTurn:
		l.Community = append(l.Community, l.Deck.Deal(1)...)
		l.Street = StreetRiver
	case StreetRiver:
		l.showdownLocked(now)
		return
	}

	remaining := 0
	for _, p := range l.contenders() {
		if !p.AllIn {
			remaining++
		}
	}
	if remaining < 2 {
		// Everyone left is all-in: deal straight through to showdown.
		l.advanceStreetLocked(now)
		return
	}
	l.CurrentSeat = l.nextToAct(l.DealerSeat)
	l.TurnDeadline = now.Add(pokerTurnTimeout)
}

func (l *PokerLobby) showdownLocked(now time.Time) {
	l.Street = StreetShowdown
	pots := l.collectPots()
	hands := map[string]EvaluatedHand{}
	seatOf := map[string]int{}
	for _, p := range l.contenders() {
		full := append(append([]PokerCard(nil), p.HoleCards...), l.Community...)
		hands[p.UserID] = Evaluate(full)
		seatOf[p.UserID] = p.Seat
		p.CardsRevealed = true
	}
	won := awardPots(pots, hands, seatOf, l.DealerSeat, len(l.Players))

	var results []ShowdownResult
	bestWinner := ""
	var bestAmt int64 = -1
	for _, p := range l.contenders() {
		amt := won[p.UserID]
		p.Stack += amt
		results = append(results, ShowdownResult{UserID: p.UserID, Hand: hands[p.UserID], Won: amt})
		if amt > bestAmt {
			bestAmt = amt
			bestWinner = p.UserID
		}
	}
	l.LastShowdown = results
	l.finishHandLocked(bestWinner, now)
}

func (l *PokerLobby) finishHandLocked(winner string, now time.Time) {
	l.Phase = PhaseFinished
	l.Celebration = &Celebration{ID: fmt.Sprintf("%s-%d", l.Code, l.HandNumber), WinnerID: winner, EffectID: "poker-pot", CreatedAt: now}
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: winner, Type: "hand-end"})
}

// ClaimReward reports whether a hand-end reward is pending issuance and, if
// so, marks it claimed under the lobby lock so a concurrent dispatch cannot
// claim the same hand twice. The actual reward-service write happens
// outside this lock.
func (l *PokerLobby) ClaimReward() (winnerID string, handNumber int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Phase != PhaseFinished || l.RewardIssued || l.Celebration == nil {
		return "", 0, false
	}
	l.RewardIssued = true
	return l.Celebration.WinnerID, l.HandNumber, true
}

// HandleTurnTimeout is invoked by the owning runtime when TurnDeadline
// elapses with no action: it checks if legal, otherwise folds.
func (l *PokerLobby) HandleTurnTimeout(now time.Time) {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	if l.Phase != PhasePlaying || now.Before(l.TurnDeadline) {
		return
	}
	p := l.playerBySeat(l.CurrentSeat)
	if p == nil {
		return
	}
	if p.CurrentBet == l.CurrentBet {
		p.LastAction = "check"
		l.ActedThisRound[p.UserID] = true
	} else {
		p.Folded = true
		p.LastAction = "fold"
		l.ActedThisRound[p.UserID] = true
	}
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: p.UserID, Type: "timeout"})
	l.advanceLocked(now)
	l.bumpLocked(now)
}

// RemovePlayer executes a full leave for userID. While the table is still
// forming (PhaseLobby) the seat is given up outright and remaining seats are
// renumbered so a later AddPlayer never collides with a stale seat index.
// Once a hand is underway or finished the seat is kept since the player is
// already marked disconnected by SetConnected, so a reconnect can still
// resume it. Reports whether the lobby now has no seated players at all.
func (l *PokerLobby) RemovePlayer(userID string, now time.Time) (empty bool) {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	if l.Phase == PhaseLobby {
		kept := l.Players[:0]
		for _, p := range l.Players {
			if p.UserID == userID {
				continue
			}
			p.Seat = len(kept)
			kept = append(kept, p)
		}
		l.Players = kept
		l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "leave"})
		l.bumpLocked(now)
	}
	return len(l.Players) == 0
}

// NotifyEnded pushes a one-shot lobbyEnded frame to every subscriber, used
// by a host-initiated endLobby before the registry drops the lobby.
func (l *PokerLobby) NotifyEnded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID := range l.subscribers {
		l.sendLocked(userID, OutgoingMessage{Type: MsgTypeLobbyEnded, Seq: l.Version, Data: LobbyEndedEvent{Code: l.Code}})
	}
}

// SetCardsRevealed lets a showdown winner override the default full reveal
// of hole cards, hiding or re-showing their own hand for other viewers.
func (l *PokerLobby) SetCardsRevealed(userID string, reveal bool, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastPoker(l); l.mu.Unlock() }()
	if l.Phase != PhaseFinished {
		return appErr.ErrWrongPhase
	}
	won := false
	for _, sd := range l.LastShowdown {
		if sd.UserID == userID && sd.Won > 0 {
			won = true
			break
		}
	}
	if !won {
		return appErr.ErrNotWinner
	}
	p := l.playerByID(userID)
	if p == nil {
		return appErr.ErrPlayerNotFound
	}
	p.CardsRevealed = reveal
	l.bumpLocked(now)
	return nil
}
