package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

// Client represents one authenticated websocket session.
type Client struct {
	gateway *Gateway
	conn    *websocket.Conn
	userID  string
	user    *models.User
	send    chan []byte

	// joinedRooms is owned by the hub and only touched under hub.mu.
	joinedRooms map[string]bool
}

// Hub maintains the set of active clients and per-room membership.
// A user has at most one connection; registering again replaces the old
// one and carries its room memberships over.
type Hub struct {
	clients    map[string]*Client            // userID -> Client
	rooms      map[string]map[string]*Client // roomID -> userID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// onDisconnect runs after the client is removed from the maps, with
	// the rooms it had joined. The gateway uses it to dequeue the user
	// and tell opponents.
	onDisconnect func(userID string, joinedRooms []string)
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes register/unregister events until the hub is abandoned.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()

	if old, exists := h.clients[client.userID]; exists {
		log.Printf("[WS] User %s reconnecting, closing old connection", client.userID)
		if err := old.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"),
			time.Now().Add(5*time.Second)); err != nil {
			log.Printf("[WS] Error writing close control to old client %s: %v", client.userID, err)
		}
		old.conn.Close()
		close(old.send)

		// The replacement inherits room membership so broadcasts keep
		// flowing between reconnect and an explicit rejoinMatch.
		for roomID := range old.joinedRooms {
			client.joinedRooms[roomID] = true
			if room, ok := h.rooms[roomID]; ok {
				room[client.userID] = client
			}
		}
	}

	h.clients[client.userID] = client
	h.mu.Unlock()

	log.Printf("[WS] User %s connected", client.userID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	cur, ok := h.clients[client.userID]
	if !ok || cur != client {
		// A replacement connection already owns this userID.
		h.mu.Unlock()
		return
	}

	delete(h.clients, client.userID)
	joined := make([]string, 0, len(client.joinedRooms))
	for roomID := range client.joinedRooms {
		joined = append(joined, roomID)
		if room, exists := h.rooms[roomID]; exists {
			delete(room, client.userID)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.mu.Unlock()

	close(client.send)
	log.Printf("[WS] User %s disconnected", client.userID)

	if h.onDisconnect != nil {
		h.onDisconnect(client.userID, joined)
	}
}

// JoinRoom adds a locally connected user to the room's broadcast set.
// Users connected to another gateway instance are handled there.
func (h *Hub) JoinRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[userID]
	if !ok {
		return
	}
	if _, exists := h.rooms[roomID]; !exists {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][userID] = client
	client.joinedRooms[roomID] = true
}

func (h *Hub) LeaveRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[userID]; ok {
		delete(client.joinedRooms, roomID)
	}
	if room, exists := h.rooms[roomID]; exists {
		delete(room, userID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// BroadcastToRoom fans a pre-marshaled frame out to every member of the
// room connected to this instance.
func (h *Hub) BroadcastToRoom(roomID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.rooms[roomID]; exists {
		for _, client := range room {
			select {
			case client.send <- frame:
			default:
				log.Printf("[WS] Send buffer full for user %s in room %s, dropping frame", client.userID, roomID)
			}
		}
	}
}

// SendToUser delivers a pre-marshaled frame to one connected user.
func (h *Hub) SendToUser(userID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[userID]; exists {
		select {
		case client.send <- frame:
		default:
			log.Printf("[WS] Send buffer full for user %s, dropping frame", userID)
		}
	}
}
