package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cardroom/internal/service/dispatch"
	"cardroom/internal/service/game"
	"cardroom/internal/service/session"
	pkgAuth "cardroom/pkg/auth"
	"cardroom/pkg/logger"
)

// reconnectGrace is how long a disconnected player's seat is held before
// the session layer treats them as having left.
const reconnectGrace = 15 * time.Second

type Handler struct {
	dispatcher *dispatch.Dispatcher
	sessions   *session.Manager
}

func NewHandler(dispatcher *dispatch.Dispatcher, sessions *session.Manager) *Handler {
	return &Handler{dispatcher: dispatcher, sessions: sessions}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// HandleLobbySocket upgrades the connection and pumps dispatch commands for
// the lifetime of the socket. A single socket may create/join at most one
// lobby at a time, enforced by the session manager, not by this handler.
func (h *Handler) HandleLobbySocket(c *gin.Context) {
	token, err := getTokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := pkgAuth.ParseUserToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID := strconv.FormatInt(claims.SubjectID, 10)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	logger.Log.Info("new websocket connection", zap.String("userId", userID), zap.String("connId", connID))

	cl := newClient(conn, connID, userID, h.dispatcher, h.sessions)
	cl.run()
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
			if token != "" {
				return token, nil
			}
		}
	}
	return "", errors.New("missing token")
}

type client struct {
	conn       *websocket.Conn
	connID     string
	userID     string
	dispatcher *dispatch.Dispatcher
	sessions   *session.Manager
	outbound   chan game.OutgoingMessage
	done       chan struct{}
	pingEvery  time.Duration
}

func newClient(conn *websocket.Conn, connID, userID string, dispatcher *dispatch.Dispatcher, sessions *session.Manager) *client {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:       conn,
		connID:     connID,
		userID:     userID,
		dispatcher: dispatcher,
		sessions:   sessions,
		outbound:   make(chan game.OutgoingMessage, 32),
		done:       make(chan struct{}),
		pingEvery:  25 * time.Second,
	}
}

func (c *client) run() {
	generation := c.sessions.Connect(c.connID, c.userID)
	if ref, ok := c.sessions.LobbyOf(c.userID); ok {
		c.dispatcher.SetConnected(ref, c.userID, true)
	}
	go c.writePump()
	c.readPump()

	if ref, ok := c.sessions.LobbyOf(c.userID); ok {
		c.dispatcher.SetConnected(ref, c.userID, false)
		c.dispatcher.Unsubscribe(ref, c.userID)
	}
	c.sessions.Disconnect(c.connID, c.userID, generation, reconnectGrace, func() {
		if ref, ok := c.sessions.LobbyOf(c.userID); ok {
			c.dispatcher.LeaveLobby(ref, c.userID)
			c.sessions.LeaveLobby(c.userID, ref)
			logger.Log.Info("reconnect grace expired, seat released", zap.String("userId", c.userID))
		}
	})
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("ws read error", zap.Error(err), zap.String("userId", c.userID))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var env dispatch.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.safeWrite(game.OutgoingMessage{Type: "error", Data: gin.H{"message": "invalid envelope"}})
			continue
		}
		if env.Type == "" {
			continue
		}
		if env.Type == "subscribe" {
			c.handleSubscribe(env)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ack := c.dispatcher.Handle(ctx, c.userID, env)
		cancel()
		c.safeWrite(game.OutgoingMessage{Type: "ack", Data: ack})
	}
}

// handleSubscribe wires this connection's outbound channel into the target
// lobby's broadcast hub so it starts receiving state frames.
func (c *client) handleSubscribe(env dispatch.Envelope) {
	ref, ok := c.sessions.LobbyOf(c.userID)
	if !ok || ref.Code != env.LobbyCode {
		c.safeWrite(game.OutgoingMessage{Type: "error", Data: gin.H{"message": "not a member of this lobby"}})
		return
	}
	if !c.dispatcher.Subscribe(ref, c.userID, c.outbound) {
		c.safeWrite(game.OutgoingMessage{Type: "error", Data: gin.H{"message": "lobby not found"}})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("ws write error", zap.Error(err), zap.String("userId", c.userID))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) safeWrite(msg game.OutgoingMessage) {
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.Log.Info("ws write error", zap.Error(err), zap.String("userId", c.userID))
	}
}
