package ws

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Divy1030/Code-Arena-Backend/internal/arena"
	"github.com/Divy1030/Code-Arena-Backend/internal/auth"
	"github.com/Divy1030/Code-Arena-Backend/internal/config"
	"github.com/Divy1030/Code-Arena-Backend/internal/matchmaking"
	"github.com/Divy1030/Code-Arena-Backend/internal/middleware"
	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

// Matchmaker is the slice of the matchmaking service the gateway calls.
type Matchmaker interface {
	FindMatch(ctx context.Context, user models.User) (*matchmaking.Result, error)
	Cancel(userID string) error
	Dequeue(userID string)
	Status(userID string) matchmaking.QueueStatus
}

// Arena is the slice of the room engine the gateway calls.
type Arena interface {
	Submit(ctx context.Context, roomID, userID, code, language string) (int, int, error)
	Forfeit(ctx context.Context, roomID, userID string) error
	RoomStatus(roomID string) (*arena.Snapshot, error)
	ActiveMatchesFor(userID string) []arena.Snapshot
	Rejoin(roomID, userID string) (*arena.Snapshot, *models.Problem, error)
	IsMember(roomID, userID string) bool
}

// UserLoader resolves token subjects to user rows.
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Gateway owns the websocket endpoint: handshake auth, the connection
// hub and the event dispatcher.
type Gateway struct {
	cfg      *config.Config
	hub      *Hub
	bridge   *RedisBridge
	arena    Arena
	match    Matchmaker
	users    UserLoader
	upgrader websocket.Upgrader
}

func NewGateway(cfg *config.Config, hub *Hub, bridge *RedisBridge, ar Arena, match Matchmaker, users UserLoader) *Gateway {
	g := &Gateway{
		cfg:    cfg,
		hub:    hub,
		bridge: bridge,
		arena:  ar,
		match:  match,
		users:  users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.AllowedWebSocketOrigin(cfg, r.Header.Get("Origin"))
			},
		},
	}
	hub.onDisconnect = g.onDisconnect
	return g
}

// HandleWebSocket authenticates the handshake and upgrades it into a
// session. Auth failures are rejected with plain JSON before any
// upgrade happens.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	token := auth.TokenFromRequest(c.Request)
	if token == "" {
		abortHandshake(c, "unauthorized request")
		return
	}

	userID, err := auth.Verify(token, g.cfg.AccessTokenSecret)
	if err != nil {
		abortHandshake(c, "invalid access token")
		return
	}

	user, err := g.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		abortHandshake(c, "invalid access token")
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed for user %s: %v", userID, err)
		return
	}

	client := &Client{
		gateway:     g,
		conn:        conn,
		userID:      user.ID,
		user:        user,
		send:        make(chan []byte, 256),
		joinedRooms: make(map[string]bool),
	}
	g.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// onDisconnect runs after the hub has dropped a closed connection. The
// user stays a room participant and can rejoin, so opponents only get a
// heads-up rather than a forfeit.
func (g *Gateway) onDisconnect(userID string, joinedRooms []string) {
	g.match.Dequeue(userID)
	for _, roomID := range joinedRooms {
		g.bridge.BroadcastToRoom(roomID, "opponentDisconnected", map[string]any{
			"userId":    userID,
			"temporary": true,
		})
	}
}

func abortHandshake(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"statusCode": http.StatusUnauthorized,
		"message":    msg,
		"success":    false,
		"errors":     []string{msg},
	})
}
