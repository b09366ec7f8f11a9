// Package registry owns the mapping from lobby code to live lobby state
// for both games, and the small set of always-on public lobbies each game
// bootstraps at startup.
package registry

import (
	"sync"
	"time"

	appErr "cardroom/pkg/errors"
	"cardroom/internal/service/game"
	"cardroom/pkg/utils/random"
)

const lobbyCodeLength = 6

// Config controls how many public lobbies each game keeps warm and the
// default table parameters new private lobbies are created with.
type Config struct {
	PublicPokerCodes []string
	PublicUnoCodes   []string
	MaxPlayers       int
	SmallBlind       int64
	BigBlind         int64
	StartingStack    int64
}

// Registry serializes lobby creation/deletion and looks up live lobbies by
// code. Individual lobbies still serialize their own gameplay commands
// internally; Registry only protects the code->lobby maps.
type Registry struct {
	mu   sync.Mutex
	cfg  Config
	poker map[string]*game.PokerLobby
	uno   map[string]*game.UnoLobby
}

func New(cfg Config) *Registry {
	return &Registry{
		cfg:   cfg,
		poker: make(map[string]*game.PokerLobby),
		uno:   make(map[string]*game.UnoLobby),
	}
}

// Bootstrap creates the configured public lobbies for each game, each with
// no host and no seated players until someone joins.
// It is idempotent: codes already present are left untouched.
func (r *Registry) Bootstrap(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range r.cfg.PublicPokerCodes {
		if _, ok := r.poker[code]; ok {
			continue
		}
		r.poker[code] = r.newPublicPokerLocked(code, now)
	}
	for _, code := range r.cfg.PublicUnoCodes {
		if _, ok := r.uno[code]; ok {
			continue
		}
		r.uno[code] = r.newPublicUnoLocked(code, now)
	}
}

func (r *Registry) newPublicPokerLocked(code string, now time.Time) *game.PokerLobby {
	l := game.NewPokerLobby(code, "", "table", "", r.cfg.MaxPlayers, true, r.cfg.SmallBlind, r.cfg.BigBlind, r.cfg.StartingStack, now)
	l.Players = nil
	return l
}

func (r *Registry) newPublicUnoLocked(code string, now time.Time) *game.UnoLobby {
	l := game.NewUnoLobby(code, "", "table", "", r.cfg.MaxPlayers, true, now)
	l.Players = nil
	return l
}

// StartingStack reports the chip stack each newly seated poker player receives.
func (r *Registry) StartingStack() int64 {
	return r.cfg.StartingStack
}

func (r *Registry) allocateCode(exists func(string) bool) string {
	for {
		code := random.LobbyCode(lobbyCodeLength)
		if !exists(code) {
			return code
		}
	}
}

// CreatePokerLobby allocates a fresh code and lobby hosted by hostID.
func (r *Registry) CreatePokerLobby(hostID, nickname, avatar string, now time.Time) *game.PokerLobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := r.allocateCode(func(c string) bool { _, ok := r.poker[c]; return ok })
	l := game.NewPokerLobby(code, hostID, nickname, avatar, r.cfg.MaxPlayers, false, r.cfg.SmallBlind, r.cfg.BigBlind, r.cfg.StartingStack, now)
	r.poker[code] = l
	return l
}

// CreateUnoLobby allocates a fresh code and lobby hosted by hostID.
func (r *Registry) CreateUnoLobby(hostID, nickname, avatar string, now time.Time) *game.UnoLobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := r.allocateCode(func(c string) bool { _, ok := r.uno[c]; return ok })
	l := game.NewUnoLobby(code, hostID, nickname, avatar, r.cfg.MaxPlayers, false, now)
	r.uno[code] = l
	return l
}

func (r *Registry) Poker(code string) (*game.PokerLobby, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.poker[code]
	return l, ok
}

func (r *Registry) Uno(code string) (*game.UnoLobby, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.uno[code]
	return l, ok
}

// AllLobbies returns a point-in-time snapshot of every live lobby, for the
// dispatcher's turn-timeout sweep. Held pointers stay valid after the
// registry lock is released; each lobby still serializes its own state.
func (r *Registry) AllLobbies() (poker []*game.PokerLobby, uno []*game.UnoLobby) {
	r.mu.Lock()
	defer r.mu.Unlock()
	poker = make([]*game.PokerLobby, 0, len(r.poker))
	for _, l := range r.poker {
		poker = append(poker, l)
	}
	uno = make([]*game.UnoLobby, 0, len(r.uno))
	for _, l := range r.uno {
		uno = append(uno, l)
	}
	return poker, uno
}

// PublicRoomInfo is the wire-safe summary of one always-on public lobby,
// enough for a lobby browser to render and pick a seat.
type PublicRoomInfo struct {
	GameType    game.GameType `json:"gameType"`
	Code        string        `json:"code"`
	PlayerCount int           `json:"playerCount"`
	MaxPlayers  int           `json:"maxPlayers"`
	Phase       game.Phase    `json:"phase"`
}

// ListPublicRooms returns a point-in-time summary of every public lobby
// across both games, for a lobby-browser listPublicRooms query.
func (r *Registry) ListPublicRooms() []PublicRoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rooms []PublicRoomInfo
	for code, l := range r.poker {
		if !l.IsPublic {
			continue
		}
		rooms = append(rooms, PublicRoomInfo{
			GameType:    game.GamePoker,
			Code:        code,
			PlayerCount: len(l.Players),
			MaxPlayers:  l.MaxPlayers,
			Phase:       l.Phase,
		})
	}
	for code, l := range r.uno {
		if !l.IsPublic {
			continue
		}
		rooms = append(rooms, PublicRoomInfo{
			GameType:    game.GameUno,
			Code:        code,
			PlayerCount: len(l.Players),
			MaxPlayers:  l.MaxPlayers,
			Phase:       l.Phase,
		})
	}
	return rooms
}

// DeletePoker removes a private lobby. Public lobbies cannot be deleted,
// they are reset in place instead.
func (r *Registry) DeletePoker(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.poker[code]
	if !ok {
		return appErr.ErrLobbyNotFound
	}
	if l.IsPublic {
		return appErr.ErrPublicNotEndable
	}
	delete(r.poker, code)
	return nil
}

func (r *Registry) DeleteUno(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.uno[code]
	if !ok {
		return appErr.ErrLobbyNotFound
	}
	if l.IsPublic {
		return appErr.ErrPublicNotEndable
	}
	delete(r.uno, code)
	return nil
}

// ResetPublicPoker replaces an emptied public lobby with a fresh empty one
// under the same code, keeping the public seat always available.
func (r *Registry) ResetPublicPoker(code string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.poker[code]; !ok {
		return
	}
	r.poker[code] = r.newPublicPokerLocked(code, now)
}

func (r *Registry) ResetPublicUno(code string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uno[code]; !ok {
		return
	}
	r.uno[code] = r.newPublicUnoLocked(code, now)
}
