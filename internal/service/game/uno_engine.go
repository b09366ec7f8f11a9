package game

import (
	"fmt"
	"time"

	appErr "cardroom/pkg/errors"
)

const (
	unoStartHandSize  = 7
	unoCallGraceWindow = 5 * time.Second
	unoTurnTimeout     = 20 * time.Second
)

// NewUnoLobby creates an empty lobby in PhaseLobby, host already seated.
func NewUnoLobby(code, hostID, nickname, avatar string, maxPlayers int, isPublic bool, now time.Time) *UnoLobby {
	l := &UnoLobby{
		Code:       code,
		IsPublic:   isPublic,
		HostID:     hostID,
		MaxPlayers: maxPlayers,
		Phase:      PhaseLobby,
		CreatedAt:  now,
		UpdatedAt:  now,
		Hands:      make(map[string][]UnoCard),
		hub:        newHub(),
	}
	l.Players = append(l.Players, &BasePlayer{UserID: hostID, Seat: 0, Nickname: nickname, Avatar: avatar, Connected: true, LastSeenAt: now})
	return l
}

func (l *UnoLobby) bumpLocked(now time.Time) {
	l.Version++
	l.UpdatedAt = now
}

// AddPlayer seats a new player while the lobby is still forming.
func (l *UnoLobby) AddPlayer(userID, nickname, avatar string, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
	if l.Phase != PhaseLobby {
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
	l.Players = append(l.Players, &BasePlayer{UserID: userID, Seat: len(l.Players), Nickname: nickname, Avatar: avatar, Connected: true, LastSeenAt: now})
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "join"})
	l.bumpLocked(now)
	return nil
}

// SetCosmetics records userID's resolved cosmetics, looked up by the
// dispatcher outside the lobby lock and applied here under it.
func (l *UnoLobby) SetCosmetics(userID string, c Cosmetics) {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
	if p := l.playerByID(userID); p != nil {
		p.Cosmetics = c
	}
}

// SetConnected flips a seated player's connectivity flag, used by the
// session layer on disconnect/reconnect. It does not remove the seat.
func (l *UnoLobby) SetConnected(userID string, connected bool, now time.Time) {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
	p := l.playerByID(userID)
	if p == nil {
		return
	}
	p.Connected = connected
	p.LastSeenAt = now
	l.bumpLocked(now)
}

// Start deals hands and turns the top of the discard face up. It requires at
// least two connected players and a lobby still forming.
func (l *UnoLobby) Start(src Source, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
	if l.Phase != PhaseLobby {
		return appErr.ErrWrongPhase
	}
	if len(l.connectedSeats()) < 2 {
		return appErr.ErrNotEnoughPlayers
	}
	l.rng = src
	deck := ShuffledUnoDeck(src)
	for _, p := range l.Players {
		l.Hands[p.UserID] = append([]UnoCard(nil), deck[:unoStartHandSize]...)
		deck = deck[unoStartHandSize:]
	}
	// The starter face must not be Wild/Wild4; redraw to the bottom until it isn't.
	for deck[0].Face.isWild() {
		card := deck[0]
		deck = append(deck[1:], card)
	}
	l.Discard = []UnoCard{deck[0]}
	l.DrawPile = deck[1:]
	l.CurrentColor = l.Discard[0].Face.Color
	l.Direction = 1
	l.DealerSeat = 0
	l.CurrentSeat = l.nextSeat(l.DealerSeat)
	l.Phase = PhasePlaying
	l.TurnDeadline = now.Add(unoTurnTimeout)
	l.applyOpeningEffect(now)
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Type: "start"})
	l.bumpLocked(now)
	return nil
}

// applyOpeningEffect handles the (rare, spec-defined) case where the flipped
// starter card is itself an action card: Skip/Reverse/Draw2 apply against
// the first player to act before any card is played.
func (l *UnoLobby) applyOpeningEffect(now time.Time) {
	top := l.topCard()
	if top == nil {
		return
	}
	switch top.Face.Kind {
	case FaceReverse:
		l.Direction = -1
		if len(l.connectedSeats()) == 2 {
			// heads-up: acts as skip, dealer's opponent stays put and dealer leads
			l.CurrentSeat = l.DealerSeat
		} else {
			l.CurrentSeat = l.nextSeat(l.DealerSeat)
		}
	case FaceSkip:
		l.CurrentSeat = l.nextSeat(l.CurrentSeat)
	case FaceDraw2:
		victim := l.playerBySeat(l.CurrentSeat)
		l.drawCardsInto(victim.UserID, 2)
		l.CurrentSeat = l.nextSeat(l.CurrentSeat)
	}
}

func (l *UnoLobby) reshuffleIfNeededLocked() {
	if len(l.DrawPile) > 0 {
		return
	}
	if len(l.Discard) <= 1 {
		return
	}
	top := l.Discard[len(l.Discard)-1]
	rest := l.Discard[:len(l.Discard)-1]
	for i := range rest {
		rest[i].Face.Color = normalizeWildColor(rest[i].Face)
	}
	l.DrawPile = rest
	l.Discard = []UnoCard{top}
}

func normalizeWildColor(f UnoFace) UnoColor {
	if f.isWild() {
		return NoColor
	}
	return f.Color
}

func (l *UnoLobby) drawCardsInto(userID string, n int) []UnoCard {
	var drawn []UnoCard
	for i := 0; i < n; i++ {
		l.reshuffleIfNeededLocked()
		if len(l.DrawPile) == 0 {
			break
		}
		c := l.DrawPile[0]
		l.DrawPile = l.DrawPile[1:]
		drawn = append(drawn, c)
	}
	l.Hands[userID] = append(l.Hands[userID], drawn...)
	if len(drawn) > 0 {
		l.DrawFx = &DrawFx{ID: fmt.Sprintf("%s-%d-drawfx", l.Code, l.Version+1), PlayerID: userID, Count: len(drawn)}
	}
	return drawn
}

func findCard(hand []UnoCard, cardID string) (UnoCard, int) {
	for i, c := range hand {
		if c.ID == cardID {
			return c, i
		}
	}
	return UnoCard{}, -1
}

func removeAt(hand []UnoCard, idx int) []UnoCard {
	return append(hand[:idx:idx], hand[idx+1:]...)
}

// Play plays cardID from userID's hand. chosenColor is required (and only
// meaningful) when the played face is Wild or Wild4.
func (l *UnoLobby) Play(userID, cardID string, chosenColor UnoColor, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
	if err := l.requireTurn(userID); err != nil {
		return err
	}
	hand := l.Hands[userID]
	card, idx := findCard(hand, cardID)
	if idx < 0 {
		return appErr.ErrCardNotFound
	}
	top := l.topCard()
	var topFace *UnoFace
	if top != nil {
		topFace = &top.Face
	}
	if !isPlayable(card.Face, topFace, l.CurrentColor) {
		return appErr.ErrCardNotPlayable
	}
	if card.Face.Kind == FaceWild4 && handHasColor(withoutCard(hand, idx), l.CurrentColor) {
		return appErr.ErrWild4Restricted
	}
	if card.Face.isWild() {
		valid := false
		for _, c := range unoColors {
			if c == chosenColor {
				valid = true
			}
		}
		if !valid {
			return appErr.ErrInvalidAction
		}
		card.Face.Color = chosenColor
	}

	l.Hands[userID] = removeAt(hand, idx)
	l.Discard = append(l.Discard, card)
	l.CurrentColor = card.Face.Color
	l.DrawnPlayable = nil

	if len(l.Hands[userID]) == 1 {
		l.MustCallUno = userID
		l.Prompt = &UnoPrompt{
			UserID:    userID,
			ButtonPos: l.randomButtonPos(),
			CreatedAt: now,
			Deadline:  now.Add(unoCallGraceWindow),
		}
	} else {
		l.MustCallUno = ""
		l.Prompt = nil
	}

	if len(l.Hands[userID]) == 0 {
		l.finishHandLocked(userID, now)
		l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "play", Detail: "out"})
		l.bumpLocked(now)
		return nil
	}

	l.applyPlayEffectLocked(card.Face, now)
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "play"})
	l.bumpLocked(now)
	return nil
}

func withoutCard(hand []UnoCard, idx int) []UnoCard {
	out := append([]UnoCard(nil), hand[:idx]...)
	return append(out, hand[idx+1:]...)
}

func (l *UnoLobby) applyPlayEffectLocked(face UnoFace, now time.Time) {
	heads := len(l.connectedSeats()) == 2
	switch face.Kind {
	case FaceReverse:
		l.Direction *= -1
		if heads {
			// Heads-up: acts as a skip, the same player goes again.
			l.TurnDeadline = now.Add(unoTurnTimeout)
			return
		}
		l.CurrentSeat = l.nextSeat(l.CurrentSeat)
	case FaceSkip:
		l.CurrentSeat = l.nextSeat(l.nextSeat(l.CurrentSeat))
	case FaceDraw2:
		next := l.nextSeat(l.CurrentSeat)
		victim := l.playerBySeat(next)
		l.drawCardsInto(victim.UserID, 2)
		l.CurrentSeat = l.nextSeat(next)
	case FaceWild4:
		next := l.nextSeat(l.CurrentSeat)
		victim := l.playerBySeat(next)
		l.drawCardsInto(victim.UserID, 4)
		l.CurrentSeat = l.nextSeat(next)
	default:
		l.CurrentSeat = l.nextSeat(l.CurrentSeat)
	}
	l.TurnDeadline = now.Add(unoTurnTimeout)
}

// Draw draws one card for the current player. If the drawn card is playable
// it is held as the pending drawn-playable card and turn does not advance
// until Pass or Play(that exact card) is called.
func (l *UnoLobby) Draw(userID string, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
	if err := l.requireTurn(userID); err != nil {
		return err
	}
	if l.DrawnPlayable != nil {
		return appErr.ErrInvalidAction
	}
	top := l.topCard()
	var topFaceBeforeDraw *UnoFace
	if top != nil {
		topFaceBeforeDraw = &top.Face
	}
	if handHasPlayableCard(l.Hands[userID], topFaceBeforeDraw, l.CurrentColor) {
		return appErr.ErrInvalidAction
	}
	drawn := l.drawCardsInto(userID, 1)
	if len(drawn) == 0 {
		l.CurrentSeat = l.nextSeat(l.CurrentSeat)
		l.TurnDeadline = now.Add(unoTurnTimeout)
		l.bumpLocked(now)
		return nil
	}
	card := drawn[0]
	playable := isPlayable(card.Face, topFaceBeforeDraw, l.CurrentColor)
	if playable && card.Face.Kind == FaceWild4 {
		if _, idx := findCard(l.Hands[userID], card.ID); idx >= 0 && handHasColor(withoutCard(l.Hands[userID], idx), l.CurrentColor) {
			playable = false
		}
	}
	if playable {
		l.DrawnPlayable = &DrawnPlayable{Card: card}
	} else {
		l.CurrentSeat = l.nextSeat(l.CurrentSeat)
		l.TurnDeadline = now.Add(unoTurnTimeout)
	}
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "draw"})
	l.bumpLocked(now)
	return nil
}

// Pass ends the current player's turn when they decline to play the playable
// card they just drew; it is rejected unless such a drawn card is pending.
func (l *UnoLobby) Pass(userID string, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
	if err := l.requireTurn(userID); err != nil {
		return err
	}
	if l.DrawnPlayable == nil {
		return appErr.ErrNoDrawnPlayable
	}
	l.DrawnPlayable = nil
	l.CurrentSeat = l.nextSeat(l.CurrentSeat)
	l.TurnDeadline = now.Add(unoTurnTimeout)
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "pass"})
	l.bumpLocked(now)
	return nil
}

// CallUno lets a player at one card claim their own call before being caught.
func (l *UnoLobby) CallUno(userID string, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
	if l.MustCallUno != userID {
		return appErr.ErrMustCallUnoFirst
	}
	l.MustCallUno = ""
	l.Prompt = nil
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "uno-call"})
	l.bumpLocked(now)
	return nil
}

// CatchUno lets any other player penalize targetID for failing to call uno
// within the grace window: targetID draws two cards.
func (l *UnoLobby) CatchUno(catcherID, targetID string, now time.Time) error {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
	if l.MustCallUno != targetID || l.Prompt == nil {
		return appErr.ErrNothingToCatch
	}
	if catcherID == targetID {
		return appErr.ErrNothingToCatch
	}
	if now.Before(l.Prompt.Deadline) {
		return appErr.ErrNothingToCatch
	}
	l.drawCardsInto(targetID, 2)
	l.MustCallUno = ""
	l.Prompt = nil
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: catcherID, Type: "uno-catch", Detail: targetID})
	l.bumpLocked(now)
	return nil
}

func (l *UnoLobby) requireTurn(userID string) error {
	if l.Phase != PhasePlaying {
		return appErr.ErrWrongPhase
	}
	cur := l.playerBySeat(l.CurrentSeat)
	if cur == nil || cur.UserID != userID {
		return appErr.ErrNotYourTurn
	}
	return nil
}

func (l *UnoLobby) finishHandLocked(winner string, now time.Time) {
	l.Phase = PhaseFinished
	l.Winner = winner
	l.Celebration = &Celebration{ID: fmt.Sprintf("%s-win", l.Code), WinnerID: winner, EffectID: "uno-out", CreatedAt: now}
}

// ClaimReward reports whether a game-end reward is pending issuance and, if
// so, marks it claimed under the lobby lock so a concurrent dispatch cannot
// claim the same game twice. The actual reward-service write happens
// outside this lock.
func (l *UnoLobby) ClaimReward() (winnerID string, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Phase != PhaseFinished || l.RewardIssued || l.Celebration == nil {
		return "", false
	}
	l.RewardIssued = true
	return l.Celebration.WinnerID, true
}

// HandleTurnTimeout is invoked by the owning runtime when TurnDeadline
// elapses with no action: it auto-draws (if no drawn-playable is pending)
// or auto-passes.
func (l *UnoLobby) HandleTurnTimeout(now time.Time) {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
	if l.Phase != PhasePlaying || now.Before(l.TurnDeadline) {
		return
	}
	cur := l.playerBySeat(l.CurrentSeat)
	if cur == nil {
		return
	}
	if l.DrawnPlayable != nil {
		l.DrawnPlayable = nil
		l.CurrentSeat = l.nextSeat(l.CurrentSeat)
	} else {
		l.drawCardsInto(cur.UserID, 1)
		l.CurrentSeat = l.nextSeat(l.CurrentSeat)
	}
	l.TurnDeadline = now.Add(unoTurnTimeout)
	l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: cur.UserID, Type: "timeout"})
	l.bumpLocked(now)
}

// RemovePlayer executes a full leave for userID. While the table is still
// forming (PhaseLobby) the seat is given up outright and remaining seats are
// renumbered; once a game is underway or finished the seat is kept since the
// player is already marked disconnected by SetConnected. Reports whether the
// lobby now has no seated players at all.
func (l *UnoLobby) RemovePlayer(userID string, now time.Time) (empty bool) {
	l.mu.Lock()
	defer func() { BroadcastUno(l); l.mu.Unlock() }()
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
		delete(l.Hands, userID)
		l.Log = appendLog(l.Log, ActionLogEntry{At: now, Actor: userID, Type: "leave"})
		l.bumpLocked(now)
	}
	return len(l.Players) == 0
}

// NotifyEnded pushes a one-shot lobbyEnded frame to every subscriber, used
// by a host-initiated endLobby before the registry drops the lobby.
func (l *UnoLobby) NotifyEnded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID := range l.subscribers {
		l.sendLocked(userID, OutgoingMessage{Type: MsgTypeLobbyEnded, Seq: l.Version, Data: LobbyEndedEvent{Code: l.Code}})
	}
}
