// Package dispatch validates inbound WebSocket envelopes, routes them to
// the right lobby and engine method, and builds the ack every command
// receives in reply. Grounded on the teacher's ws handler dispatch switch
// (internal/ws/handler.go in the source tree), generalized from one game to
// two and from the trivial evaluator to the full engine surface.
package dispatch

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	appErr "cardroom/pkg/errors"
	"cardroom/internal/service/cosmetics"
	"cardroom/internal/service/game"
	"cardroom/internal/service/registry"
	"cardroom/internal/service/rewards"
	"cardroom/internal/service/session"
)

// Envelope is the wire shape of every inbound client command.
type Envelope struct {
	Type      string          `json:"type"`
	GameType  string          `json:"gameType"`
	LobbyCode string          `json:"lobbyCode"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Ack is the wire shape of the reply every command receives, success or
// failure, in addition to whatever async state frames the mutation
// triggers on the subscriber channel.
type Ack struct {
	Success  bool                      `json:"success"`
	Accepted *bool                     `json:"accepted,omitempty"`
	Version  *int64                    `json:"version,omitempty"`
	Error    string                    `json:"error,omitempty"`
	Reason   string                    `json:"reason,omitempty"`
	Rooms    []registry.PublicRoomInfo `json:"rooms,omitempty"`
}

func ok(version int64) Ack {
	v := version
	return Ack{Success: true, Version: &v}
}

func fail(err error) Ack {
	return Ack{Success: false, Error: string(appErr.KindOf(err)), Reason: err.Error()}
}

// Dispatcher owns the collaborators needed to execute a command end to end:
// find the lobby, mutate it, and settle any reward the mutation triggered.
type Dispatcher struct {
	registry  *registry.Registry
	sessions  *session.Manager
	rewards   *rewards.Service
	cosmetics *cosmetics.Resolver
	rng       game.Source
	logger    *zap.Logger
}

func New(reg *registry.Registry, sessions *session.Manager, rw *rewards.Service, cos *cosmetics.Resolver, rng game.Source, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: reg, sessions: sessions, rewards: rw, cosmetics: cos, rng: rng, logger: logger}
}

// Subscribe wires ch into the lobby identified by ref so it starts
// receiving state/celebration frames, immediately enqueuing the current
// snapshot. Reports false if the lobby no longer exists.
func (d *Dispatcher) Subscribe(ref session.LobbyRef, userID string, ch chan game.OutgoingMessage) bool {
	switch ref.GameType {
	case game.GamePoker:
		l, ok := d.registry.Poker(ref.Code)
		if !ok {
			return false
		}
		l.Subscribe(userID, ch)
		return true
	case game.GameUno:
		l, ok := d.registry.Uno(ref.Code)
		if !ok {
			return false
		}
		l.Subscribe(userID, ch)
		return true
	default:
		return false
	}
}

// SetConnected flips userID's connectivity flag on their current lobby, if
// any, so opponents see an accurate presence indicator without waiting for
// the reconnect grace window to fully elapse.
func (d *Dispatcher) SetConnected(ref session.LobbyRef, userID string, connected bool) {
	switch ref.GameType {
	case game.GamePoker:
		if l, ok := d.registry.Poker(ref.Code); ok {
			l.SetConnected(userID, connected, time.Now())
		}
	case game.GameUno:
		if l, ok := d.registry.Uno(ref.Code); ok {
			l.SetConnected(userID, connected, time.Now())
		}
	}
}

// Unsubscribe detaches userID's outbound channel from their current lobby.
func (d *Dispatcher) Unsubscribe(ref session.LobbyRef, userID string) {
	switch ref.GameType {
	case game.GamePoker:
		if l, ok := d.registry.Poker(ref.Code); ok {
			l.Unsubscribe(userID)
		}
	case game.GameUno:
		if l, ok := d.registry.Uno(ref.Code); ok {
			l.Unsubscribe(userID)
		}
	}
}

// LeaveLobby executes a full leave for userID out of ref: the engine drops
// or keeps the seat per its own phase rules, and if the lobby ends up with
// no seated players at all, a private lobby is deleted while a public one is
// reset in place so its code stays perpetually available. Safe to call from
// both an explicit leaveLobby command and the reconnect-grace expiry path.
func (d *Dispatcher) LeaveLobby(ref session.LobbyRef, userID string) {
	now := time.Now()
	switch ref.GameType {
	case game.GamePoker:
		l, ok := d.registry.Poker(ref.Code)
		if !ok {
			return
		}
		if l.RemovePlayer(userID, now) {
			if l.IsPublic {
				d.registry.ResetPublicPoker(ref.Code, now)
			} else {
				_ = d.registry.DeletePoker(ref.Code)
			}
		}
	case game.GameUno:
		l, ok := d.registry.Uno(ref.Code)
		if !ok {
			return
		}
		if l.RemovePlayer(userID, now) {
			if l.IsPublic {
				d.registry.ResetPublicUno(ref.Code, now)
			} else {
				_ = d.registry.DeleteUno(ref.Code)
			}
		}
	}
}

// EndLobby is a host-only teardown of a private lobby: every subscriber
// receives a lobbyEnded frame before the lobby is dropped from the registry.
func (d *Dispatcher) EndLobby(ref session.LobbyRef, userID string) error {
	var members []string
	switch ref.GameType {
	case game.GamePoker:
		l, ok := d.registry.Poker(ref.Code)
		if !ok {
			return appErr.ErrLobbyNotFound
		}
		if l.HostID != userID {
			return appErr.ErrNotHost
		}
		for _, p := range l.Players {
			members = append(members, p.UserID)
		}
		l.NotifyEnded()
		if err := d.registry.DeletePoker(ref.Code); err != nil {
			return err
		}
	case game.GameUno:
		l, ok := d.registry.Uno(ref.Code)
		if !ok {
			return appErr.ErrLobbyNotFound
		}
		if l.HostID != userID {
			return appErr.ErrNotHost
		}
		for _, p := range l.Players {
			members = append(members, p.UserID)
		}
		l.NotifyEnded()
		if err := d.registry.DeleteUno(ref.Code); err != nil {
			return err
		}
	default:
		return appErr.ErrInvalidAction
	}
	for _, member := range members {
		d.sessions.LeaveLobby(member, ref)
	}
	return nil
}

// ListPublicRooms reports every always-on public lobby across both games,
// for a lobby browser.
func (d *Dispatcher) ListPublicRooms() []registry.PublicRoomInfo {
	return d.registry.ListPublicRooms()
}

// Handle routes one envelope from userID to completion, recovering from any
// panic in the underlying engine and reporting it as an internal error
// rather than letting it take down the connection's read pump.
func (d *Dispatcher) Handle(ctx context.Context, userID string, env Envelope) (ack Ack) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch panic recovered", zap.Any("panic", r), zap.String("type", env.Type))
			ack = fail(appErr.ErrInternal)
		}
	}()

	if env.Type == "listPublicRooms" {
		rooms := d.registry.ListPublicRooms()
		return Ack{Success: true, Rooms: rooms}
	}

	switch game.GameType(env.GameType) {
	case game.GamePoker:
		return d.handlePoker(ctx, userID, env)
	case game.GameUno:
		return d.handleUno(ctx, userID, env)
	default:
		return fail(appErr.ErrInvalidAction)
	}
}

func (d *Dispatcher) handlePoker(ctx context.Context, userID string, env Envelope) Ack {
	if env.Type == "create" {
		var req struct {
			Nickname string `json:"nickname"`
			Avatar   string `json:"avatar"`
		}
		_ = json.Unmarshal(env.Payload, &req)
		if _, exists := d.sessions.LobbyOf(userID); exists {
			return fail(appErr.ErrAlreadyInLobby)
		}
		l := d.registry.CreatePokerLobby(userID, req.Nickname, req.Avatar, time.Now())
		if err := d.sessions.JoinLobby(userID, session.LobbyRef{GameType: game.GamePoker, Code: l.Code}); err != nil {
			return fail(err)
		}
		return ok(0)
	}

	ref := session.LobbyRef{GameType: game.GamePoker, Code: env.LobbyCode}
	switch env.Type {
	case "leaveLobby":
		d.LeaveLobby(ref, userID)
		d.sessions.LeaveLobby(userID, ref)
		return ok(0)
	case "endLobby":
		if err := d.EndLobby(ref, userID); err != nil {
			return fail(err)
		}
		return ok(0)
	}

	lobby, exists := d.registry.Poker(env.LobbyCode)
	if !exists {
		return fail(appErr.ErrLobbyNotFound)
	}

	var err error
	switch env.Type {
	case "requestState":
		lobby.ResendState(userID)
		return ok(lobby.Version)
	case "revealCards":
		var req struct {
			Reveal bool `json:"reveal"`
		}
		if e := json.Unmarshal(env.Payload, &req); e != nil {
			return fail(appErr.ErrInvalidAction)
		}
		err = lobby.SetCardsRevealed(userID, req.Reveal, time.Now())
	case "join":
		var req struct {
			Nickname string `json:"nickname"`
			Avatar   string `json:"avatar"`
		}
		_ = json.Unmarshal(env.Payload, &req)
		cos := d.cosmetics.Resolve(ctx, userID)
		err = lobby.AddPlayer(userID, req.Nickname, req.Avatar, d.registry.StartingStack(), time.Now())
		if err == nil {
			lobby.SetCosmetics(userID, cos)
			err = d.sessions.JoinLobby(userID, session.LobbyRef{GameType: game.GamePoker, Code: lobby.Code})
		}
	case "start":
		err = lobby.StartHand(d.rng, time.Now())
	case "fold":
		err = lobby.Fold(userID, time.Now())
	case "check":
		err = lobby.Check(userID, time.Now())
	case "call":
		err = lobby.Call(userID, time.Now())
	case "bet", "raise":
		var req struct {
			Amount int64 `json:"amount"`
		}
		if e := json.Unmarshal(env.Payload, &req); e != nil {
			return fail(appErr.ErrInvalidAction)
		}
		err = lobby.BetOrRaise(userID, req.Amount, time.Now())
	default:
		return fail(appErr.ErrInvalidAction)
	}
	if err != nil {
		return fail(err)
	}
	d.settlePokerReward(lobby)
	return ok(0)
}

func (d *Dispatcher) settlePokerReward(lobby *game.PokerLobby) {
	winnerID, handNumber, pending := lobby.ClaimReward()
	if !pending || winnerID == "" {
		return
	}
	id, convErr := strconv.ParseInt(winnerID, 10, 64)
	if convErr != nil {
		return
	}
	if _, err := d.rewards.IssueHandWin(context.Background(), "poker", lobby.Code, handNumber, id, 10); err != nil {
		d.logger.Error("poker reward issuance failed", zap.Error(err), zap.String("lobby", lobby.Code))
	}
}

func (d *Dispatcher) handleUno(ctx context.Context, userID string, env Envelope) Ack {
	if env.Type == "create" {
		var req struct {
			Nickname string `json:"nickname"`
			Avatar   string `json:"avatar"`
		}
		_ = json.Unmarshal(env.Payload, &req)
		if _, exists := d.sessions.LobbyOf(userID); exists {
			return fail(appErr.ErrAlreadyInLobby)
		}
		l := d.registry.CreateUnoLobby(userID, req.Nickname, req.Avatar, time.Now())
		if err := d.sessions.JoinLobby(userID, session.LobbyRef{GameType: game.GameUno, Code: l.Code}); err != nil {
			return fail(err)
		}
		return ok(0)
	}

	ref := session.LobbyRef{GameType: game.GameUno, Code: env.LobbyCode}
	switch env.Type {
	case "leaveLobby":
		d.LeaveLobby(ref, userID)
		d.sessions.LeaveLobby(userID, ref)
		return ok(0)
	case "endLobby":
		if err := d.EndLobby(ref, userID); err != nil {
			return fail(err)
		}
		return ok(0)
	}

	lobby, exists := d.registry.Uno(env.LobbyCode)
	if !exists {
		return fail(appErr.ErrLobbyNotFound)
	}

	var err error
	switch env.Type {
	case "requestState":
		lobby.ResendState(userID)
		return ok(lobby.Version)
	case "join":
		var req struct {
			Nickname string `json:"nickname"`
			Avatar   string `json:"avatar"`
		}
		_ = json.Unmarshal(env.Payload, &req)
		cos := d.cosmetics.Resolve(ctx, userID)
		err = lobby.AddPlayer(userID, req.Nickname, req.Avatar, time.Now())
		if err == nil {
			lobby.SetCosmetics(userID, cos)
			err = d.sessions.JoinLobby(userID, session.LobbyRef{GameType: game.GameUno, Code: lobby.Code})
		}
	case "start":
		err = lobby.Start(d.rng, time.Now())
	case "play":
		var req struct {
			CardID string          `json:"cardId"`
			Color  game.UnoColor   `json:"color"`
		}
		if e := json.Unmarshal(env.Payload, &req); e != nil {
			return fail(appErr.ErrInvalidAction)
		}
		err = lobby.Play(userID, req.CardID, req.Color, time.Now())
	case "draw":
		err = lobby.Draw(userID, time.Now())
	case "pass":
		err = lobby.Pass(userID, time.Now())
	case "callUno":
		err = lobby.CallUno(userID, time.Now())
	case "catchUno":
		var req struct {
			TargetUserID string `json:"targetUserId"`
		}
		if e := json.Unmarshal(env.Payload, &req); e != nil {
			return fail(appErr.ErrInvalidAction)
		}
		err = lobby.CatchUno(userID, req.TargetUserID, time.Now())
	default:
		return fail(appErr.ErrInvalidAction)
	}
	if err != nil {
		return fail(err)
	}
	d.settleUnoReward(lobby)
	return ok(0)
}

func (d *Dispatcher) settleUnoReward(lobby *game.UnoLobby) {
	winnerID, pending := lobby.ClaimReward()
	if !pending || winnerID == "" {
		return
	}
	id, convErr := strconv.ParseInt(winnerID, 10, 64)
	if convErr != nil {
		return
	}
	if _, err := d.rewards.IssueHandWin(context.Background(), "uno", lobby.Code, 0, id, 10); err != nil {
		d.logger.Error("uno reward issuance failed", zap.Error(err), zap.String("lobby", lobby.Code))
	}
}
