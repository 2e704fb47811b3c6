package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Envelope is the client-to-server message frame. Acknowledgements echo
// the request id back as {event: "ack", id, data}.
type Envelope struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// writePump writes frames and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed, connection replaced or cleaned up.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("[WS] Write error for user %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for user %s: %v", c.userID, err)
				return
			}
		}
	}
}

// readPump reads client events and hands them to the dispatcher. Events
// run in their own goroutines so a submission stuck in evaluation cannot
// block leaveMatch or chat on the same connection.
func (c *Client) readPump() {
	defer func() {
		c.gateway.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error for user %s: %v", c.userID, err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}

		go c.gateway.dispatch(c, env)
	}
}

// sendAck delivers the acknowledgement for one handled event. Dispatch
// goroutines can outlive the connection, so the frame goes through the
// hub's locked lookup rather than straight onto c.send; after a
// reconnect the replacement connection receives it, after a disconnect
// it is dropped.
func (c *Client) sendAck(id string, data map[string]any) {
	frame, err := json.Marshal(map[string]any{
		"event": "ack",
		"id":    id,
		"data":  data,
	})
	if err != nil {
		log.Printf("[WS] Failed to marshal ack for user %s: %v", c.userID, err)
		return
	}
	c.gateway.hub.SendToUser(c.userID, frame)
}
