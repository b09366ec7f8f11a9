package game

import "time"

// PotView is the wire-safe projection of a Pot: the eligible-player set is
// an implementation detail, only the amount and contender count matter to
// a viewer.
type PotView struct {
	Amount      int64 `json:"amount"`
	Contenders  int   `json:"contenders"`
}

// PokerPlayerView is what a given viewer is allowed to see about one seat:
// hole cards are present only for the viewer's own seat, or for any seat
// once CardsRevealed is set at showdown.
type PokerPlayerView struct {
	UserID        string      `json:"userId"`
	Seat          int         `json:"seat"`
	Nickname      string      `json:"nickname"`
	Avatar        string      `json:"avatar"`
	Connected     bool        `json:"connected"`
	Cosmetics     Cosmetics   `json:"cosmetics"`
	Stack         int64       `json:"stack"`
	CurrentBet    int64       `json:"currentBet"`
	Folded        bool        `json:"folded"`
	AllIn         bool        `json:"allIn"`
	LastAction    string      `json:"lastAction,omitempty"`
	HoleCards     []PokerCard `json:"holeCards,omitempty"`
	CardsRevealed bool        `json:"cardsRevealed"`
}

// PokerView is the full per-viewer snapshot sent as a state frame.
type PokerView struct {
	Code         string            `json:"code"`
	Phase        Phase             `json:"phase"`
	Version      int64             `json:"version"`
	Community    []PokerCard       `json:"community"`
	Pots         []PotView         `json:"pots"`
	CurrentBet   int64             `json:"currentBet"`
	MinRaise     int64             `json:"minRaise"`
	DealerSeat   int               `json:"dealerSeat"`
	SBSeat       int               `json:"sbSeat"`
	BBSeat       int               `json:"bbSeat"`
	CurrentSeat  int               `json:"currentSeat"`
	Street       Street            `json:"street"`
	SmallBlind   int64             `json:"smallBlind"`
	BigBlind     int64             `json:"bigBlind"`
	HandNumber   int               `json:"handNumber"`
	TurnDeadline time.Time         `json:"turnDeadline,omitempty"`
	Players      []PokerPlayerView `json:"players"`
	Log          []ActionLogEntry  `json:"log"`
	Showdown     []ShowdownResult  `json:"showdown,omitempty"`
	YourSeat     int               `json:"yourSeat"`
}

// ProjectPoker builds viewerID's view of l. Caller must hold l's lock.
func ProjectPoker(l *PokerLobby, viewerID string) PokerView {
	view := PokerView{
		Code:         l.Code,
		Phase:        l.Phase,
		Version:      l.Version,
		Community:    append([]PokerCard(nil), l.Community...),
		CurrentBet:   l.CurrentBet,
		MinRaise:     l.MinRaise,
		DealerSeat:   l.DealerSeat,
		SBSeat:       l.SBSeat,
		BBSeat:       l.BBSeat,
		CurrentSeat:  l.CurrentSeat,
		Street:       l.Street,
		SmallBlind:   l.SmallBlind,
		BigBlind:     l.BigBlind,
		HandNumber:   l.HandNumber,
		TurnDeadline: l.TurnDeadline,
		Log:          projectLog(l.Log),
		Showdown:     l.LastShowdown,
		YourSeat:     -1,
	}
	for _, pot := range l.Pots {
		view.Pots = append(view.Pots, PotView{Amount: pot.Amount, Contenders: len(pot.Eligible)})
	}
	for _, p := range l.Players {
		if p.UserID == viewerID {
			view.YourSeat = p.Seat
		}
		pv := PokerPlayerView{
			UserID:        p.UserID,
			Seat:          p.Seat,
			Nickname:      p.Nickname,
			Avatar:        p.Avatar,
			Connected:     p.Connected,
			Cosmetics:     p.Cosmetics,
			Stack:         p.Stack,
			CurrentBet:    p.CurrentBet,
			Folded:        p.Folded,
			AllIn:         p.AllIn,
			LastAction:    p.LastAction,
			CardsRevealed: p.CardsRevealed,
		}
		if p.UserID == viewerID || p.CardsRevealed {
			pv.HoleCards = append([]PokerCard(nil), p.HoleCards...)
		}
		view.Players = append(view.Players, pv)
	}
	return view
}

// UnoPlayerView is what a given viewer is allowed to see about one seat:
// only the hand count, never the cards; the viewer's own hand is included
// in full via UnoView.Hand instead.
type UnoPlayerView struct {
	UserID    string    `json:"userId"`
	Seat      int       `json:"seat"`
	Nickname  string    `json:"nickname"`
	Avatar    string    `json:"avatar"`
	Connected bool      `json:"connected"`
	Cosmetics Cosmetics `json:"cosmetics"`
	HandCount int       `json:"handCount"`
}

// UnoView is the full per-viewer snapshot sent as a state frame.
type UnoView struct {
	Code         string          `json:"code"`
	Phase        Phase           `json:"phase"`
	Version      int64           `json:"version"`
	TopCard      *UnoCard        `json:"topCard,omitempty"`
	CurrentColor UnoColor        `json:"currentColor"`
	Direction    int             `json:"direction"`
	CurrentSeat  int             `json:"currentSeat"`
	DealerSeat   int             `json:"dealerSeat"`
	DrawnCard    *UnoCard        `json:"drawnCard,omitempty"`
	Prompt       *UnoPrompt      `json:"prompt,omitempty"`
	Winner       string          `json:"winner,omitempty"`
	TurnDeadline time.Time       `json:"turnDeadline,omitempty"`
	Players      []UnoPlayerView `json:"players"`
	Hand         []UnoCard       `json:"hand"`
	Log          []ActionLogEntry `json:"log"`
	YourSeat     int             `json:"yourSeat"`
}

// ProjectUno builds viewerID's view of l. Caller must hold l's lock.
func ProjectUno(l *UnoLobby, viewerID string) UnoView {
	view := UnoView{
		Code:         l.Code,
		Phase:        l.Phase,
		Version:      l.Version,
		TopCard:      l.topCard(),
		CurrentColor: l.CurrentColor,
		Direction:    l.Direction,
		CurrentSeat:  l.CurrentSeat,
		DealerSeat:   l.DealerSeat,
		Prompt:       l.Prompt,
		Winner:       l.Winner,
		TurnDeadline: l.TurnDeadline,
		Hand:         append([]UnoCard(nil), l.Hands[viewerID]...),
		Log:          projectLog(l.Log),
		YourSeat:     -1,
	}
	if l.DrawnPlayable != nil {
		view.DrawnCard = &l.DrawnPlayable.Card
	}
	for _, p := range l.Players {
		if p.UserID == viewerID {
			view.YourSeat = p.Seat
		}
		view.Players = append(view.Players, UnoPlayerView{
			UserID:    p.UserID,
			Seat:      p.Seat,
			Nickname:  p.Nickname,
			Avatar:    p.Avatar,
			Connected: p.Connected,
			Cosmetics: p.Cosmetics,
			HandCount: len(l.Hands[p.UserID]),
		})
	}
	return view
}

const (
	MsgTypeState          = "state"
	MsgTypeCelebration    = "celebration"
	MsgTypeLobbyEnded     = "lobbyEnded"
	MsgTypeShowdownChoice = "poker:showdownChoice"
	MsgTypeUnoDrawFx      = "uno:drawFx"
	MsgTypeUnoRoster      = "uno:roster"
)

// ShowdownChoiceEvent is a winner-only, one-shot prompt inviting the winner
// to override the default full hole-card reveal via revealCards.
type ShowdownChoiceEvent struct {
	LobbyCode string `json:"lobbyCode"`
	WinnerID  string `json:"winnerId"`
}

// BroadcastPoker pushes a fresh per-viewer snapshot to every subscriber and,
// if a celebration has not yet been delivered for this hand, a one-shot
// celebration event, followed by a one-shot showdown-choice prompt sent only
// to the hand's winner. Caller must hold l's lock.
func BroadcastPoker(l *PokerLobby) {
	for userID := range l.subscribers {
		l.sendLocked(userID, OutgoingMessage{Type: MsgTypeState, Seq: l.Version, Data: ProjectPoker(l, userID)})
	}
	if l.Celebration != nil && l.shouldEmitLocked(l.Celebration.ID) {
		for userID := range l.subscribers {
			l.sendLocked(userID, OutgoingMessage{Type: MsgTypeCelebration, Seq: l.Version, Data: l.Celebration})
		}
		if l.Celebration.WinnerID != "" && l.shouldEmitLocked(l.Celebration.ID+"-choice") {
			l.sendLocked(l.Celebration.WinnerID, OutgoingMessage{
				Type: MsgTypeShowdownChoice,
				Seq:  l.Version,
				Data: ShowdownChoiceEvent{LobbyCode: l.Code, WinnerID: l.Celebration.WinnerID},
			})
		}
	}
}

// BroadcastUno pushes a fresh per-viewer snapshot to every subscriber, a
// roster update while the table is still forming, a one-shot draw-effect
// event when cards were just drawn, and, if a celebration has not yet been
// delivered for this game, a one-shot celebration event. Caller must hold
// l's lock.
func BroadcastUno(l *UnoLobby) {
	for userID := range l.subscribers {
		l.sendLocked(userID, OutgoingMessage{Type: MsgTypeState, Seq: l.Version, Data: ProjectUno(l, userID)})
	}
	if l.Phase == PhaseLobby {
		roster := projectUnoRoster(l)
		for userID := range l.subscribers {
			l.sendLocked(userID, OutgoingMessage{Type: MsgTypeUnoRoster, Seq: l.Version, Data: roster})
		}
	}
	if l.DrawFx != nil && l.shouldEmitLocked(l.DrawFx.ID) {
		for userID := range l.subscribers {
			l.sendLocked(userID, OutgoingMessage{Type: MsgTypeUnoDrawFx, Seq: l.Version, Data: l.DrawFx})
		}
	}
	if l.Celebration != nil && l.shouldEmitLocked(l.Celebration.ID) {
		for userID := range l.subscribers {
			l.sendLocked(userID, OutgoingMessage{Type: MsgTypeCelebration, Seq: l.Version, Data: l.Celebration})
		}
	}
}

func projectUnoRoster(l *UnoLobby) []UnoPlayerView {
	roster := make([]UnoPlayerView, 0, len(l.Players))
	for _, p := range l.Players {
		roster = append(roster, UnoPlayerView{
			UserID:    p.UserID,
			Seat:      p.Seat,
			Nickname:  p.Nickname,
			Avatar:    p.Avatar,
			Connected: p.Connected,
			Cosmetics: p.Cosmetics,
		})
	}
	return roster
}

// Subscribe registers ch to receive broadcasts for viewerID and immediately
// enqueues the current snapshot so a fresh connection doesn't wait for the
// next mutation.
func (l *PokerLobby) Subscribe(userID string, ch chan OutgoingMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribeLocked(userID, ch)
	l.sendLocked(userID, OutgoingMessage{Type: MsgTypeState, Seq: l.Version, Data: ProjectPoker(l, userID)})
}

// ResendState re-sends userID's current snapshot on demand, without waiting
// for the next mutation, for a client that missed a frame or just resumed a
// connection.
func (l *PokerLobby) ResendState(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendLocked(userID, OutgoingMessage{Type: MsgTypeState, Seq: l.Version, Data: ProjectPoker(l, userID)})
}

func (l *PokerLobby) Unsubscribe(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unsubscribeLocked(userID)
}

func (l *UnoLobby) Subscribe(userID string, ch chan OutgoingMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribeLocked(userID, ch)
	l.sendLocked(userID, OutgoingMessage{Type: MsgTypeState, Seq: l.Version, Data: ProjectUno(l, userID)})
}

// ResendState re-sends userID's current snapshot on demand.
func (l *UnoLobby) ResendState(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendLocked(userID, OutgoingMessage{Type: MsgTypeState, Seq: l.Version, Data: ProjectUno(l, userID)})
}

func (l *UnoLobby) Unsubscribe(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unsubscribeLocked(userID)
}
