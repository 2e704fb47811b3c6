package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// eventsChannel carries every room and user event between service code
// and gateway instances. A single channel keeps publish order, so a
// room join is always processed before the matchFound that follows it.
const eventsChannel = "arena:events"

// Envelope scopes on the events channel.
const (
	scopeRoom  = "room"
	scopeUser  = "user"
	scopeJoin  = "join"
	scopeLeave = "leave"
)

type busEnvelope struct {
	Scope  string          `json:"scope"`
	Target string          `json:"target"`
	User   string          `json:"user,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// RedisBridge publishes room and user events onto Redis and feeds the
// local hub from the subscription. The room engine and the matchmaking
// service write through it, which keeps every gateway instance behind a
// load balancer consistent.
type RedisBridge struct {
	rdb *redis.Client
}

func NewRedisBridge(rdb *redis.Client) *RedisBridge {
	return &RedisBridge{rdb: rdb}
}

func (b *RedisBridge) publish(env busEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("[WS] Failed to marshal %s event: %v", env.Scope, err)
		return
	}
	if err := b.rdb.Publish(context.Background(), eventsChannel, payload).Err(); err != nil {
		log.Printf("[WS] Publish failed (%s %s): %v", env.Scope, env.Event, err)
	}
}

// BroadcastToRoom delivers an event to every member of a room.
func (b *RedisBridge) BroadcastToRoom(roomID, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("[WS] Failed to marshal %s payload: %v", event, err)
		return
	}
	b.publish(busEnvelope{Scope: scopeRoom, Target: roomID, Event: event, Data: raw})
}

// SendToUser delivers an event to one user wherever they are connected.
func (b *RedisBridge) SendToUser(userID, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("[WS] Failed to marshal %s payload: %v", event, err)
		return
	}
	b.publish(busEnvelope{Scope: scopeUser, Target: userID, Event: event, Data: raw})
}

// JoinRoom subscribes a user's sessions to a room's broadcasts.
func (b *RedisBridge) JoinRoom(roomID, userID string) {
	b.publish(busEnvelope{Scope: scopeJoin, Target: roomID, User: userID})
}

// LeaveRoom removes a user's sessions from a room's broadcasts.
func (b *RedisBridge) LeaveRoom(roomID, userID string) {
	b.publish(busEnvelope{Scope: scopeLeave, Target: roomID, User: userID})
}

// StartSubscriber consumes the events channel and fans frames out to
// local connections until ctx is cancelled.
func (b *RedisBridge) StartSubscriber(ctx context.Context, hub *Hub) {
	pubsub := b.rdb.Subscribe(ctx, eventsChannel)
	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()

	ch := pubsub.Channel()
	go func() {
		log.Println("[WS] Arena events subscriber started")
		for msg := range ch {
			var env busEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("[WS] Invalid event payload: %v", err)
				continue
			}

			switch env.Scope {
			case scopeJoin:
				hub.JoinRoom(env.Target, env.User)
			case scopeLeave:
				hub.LeaveRoom(env.Target, env.User)
			case scopeRoom:
				if frame, ok := clientFrame(env); ok {
					hub.BroadcastToRoom(env.Target, frame)
				}
			case scopeUser:
				if frame, ok := clientFrame(env); ok {
					hub.SendToUser(env.Target, frame)
				}
			default:
				log.Printf("[WS] Unknown event scope %q", env.Scope)
			}
		}
	}()
}

// clientFrame converts a bus envelope into the {event, data} frame sent
// to browsers.
func clientFrame(env busEnvelope) ([]byte, bool) {
	frame, err := json.Marshal(map[string]any{"event": env.Event, "data": env.Data})
	if err != nil {
		log.Printf("[WS] Failed to marshal frame for %s: %v", env.Event, err)
		return nil, false
	}
	return frame, true
}
