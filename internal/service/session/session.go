// Package session tracks which connection belongs to which user, which
// lobby a user currently occupies, and the reconnect grace window a user
// gets after an abrupt disconnect before their seat is given up.
package session

import (
	"sync"
	"time"

	appErr "cardroom/pkg/errors"
	"cardroom/internal/service/game"
)

// LobbyRef identifies a lobby by game and code.
type LobbyRef struct {
	GameType game.GameType
	Code     string
}

// Manager is the presence layer sitting between the WebSocket transport and
// the game registries. It is safe for concurrent use.
type Manager struct {
	mu          sync.Mutex
	connToUser  map[string]string
	userToConn  map[string]string
	userLobby   map[string]LobbyRef
	generation  map[string]uint64
	graceTimers map[string]*time.Timer
}

func New() *Manager {
	return &Manager{
		connToUser:  make(map[string]string),
		userToConn:  make(map[string]string),
		userLobby:   make(map[string]LobbyRef),
		generation:  make(map[string]uint64),
		graceTimers: make(map[string]*time.Timer),
	}
}

// Connect records connID as userID's active connection and returns a
// generation token: a Disconnect call carrying a stale generation (because
// the user already reconnected on a new socket) is a no-op.
func (m *Manager) Connect(connID, userID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.graceTimers[userID]; ok {
		t.Stop()
		delete(m.graceTimers, userID)
	}
	m.connToUser[connID] = userID
	m.userToConn[userID] = connID
	m.generation[userID]++
	return m.generation[userID]
}

// Disconnect drops connID's identity mapping and, if the caller's
// generation still matches the user's most recent connection (they have
// not already reconnected elsewhere), arms a grace timer. onExpire fires at
// most once, after graceWindow, unless a subsequent Connect cancels it.
func (m *Manager) Disconnect(connID, userID string, generation uint64, graceWindow time.Duration, onExpire func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connToUser, connID)
	if m.userToConn[userID] == connID {
		delete(m.userToConn, userID)
	}
	if m.generation[userID] != generation {
		return // superseded by a newer connection, nothing to arm
	}
	if _, hasLobby := m.userLobby[userID]; !hasLobby {
		return
	}
	timer := time.AfterFunc(graceWindow, func() {
		m.mu.Lock()
		stillStale := m.generation[userID] == generation
		delete(m.graceTimers, userID)
		m.mu.Unlock()
		if stillStale {
			onExpire()
		}
	})
	m.graceTimers[userID] = timer
}

// UserForConn resolves a connection id to its user, if still live.
func (m *Manager) UserForConn(connID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.connToUser[connID]
	return u, ok
}

// JoinLobby records userID's active lobby, enforcing the at-most-one-active
// -lobby-per-user invariant.
func (m *Manager) JoinLobby(userID string, ref LobbyRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.userLobby[userID]; ok && existing != ref {
		return appErr.ErrAlreadyInLobby
	}
	m.userLobby[userID] = ref
	return nil
}

// LeaveLobby clears userID's active lobby if it matches ref, and cancels
// any pending grace timer for them.
func (m *Manager) LeaveLobby(userID string, ref LobbyRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.userLobby[userID]; ok && existing == ref {
		delete(m.userLobby, userID)
	}
	if t, ok := m.graceTimers[userID]; ok {
		t.Stop()
		delete(m.graceTimers, userID)
	}
}

// LobbyOf reports the lobby userID currently occupies, if any.
func (m *Manager) LobbyOf(userID string) (LobbyRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.userLobby[userID]
	return ref, ok
}
