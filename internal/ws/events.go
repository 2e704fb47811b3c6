package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Divy1030/Code-Arena-Backend/internal/arena"
	"github.com/Divy1030/Code-Arena-Backend/internal/matchmaking"
)

// maxChatMessageLen caps sendMessage payloads. Longer messages are
// truncated, not rejected.
const maxChatMessageLen = 500

type roomRef struct {
	RoomID string `json:"roomId"`
}

type submitPayload struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

type chatPayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// dispatch routes one client event and acknowledges it exactly once.
func (g *Gateway) dispatch(c *Client, env Envelope) {
	var ack map[string]any

	switch env.Event {
	case "findMatch":
		ack = g.handleFindMatch(c)
	case "cancelMatchmaking":
		ack = g.handleCancelMatchmaking(c)
	case "getMatchmakingStatus":
		ack = g.handleMatchmakingStatus(c)
	case "submitSolution":
		ack = g.handleSubmitSolution(c, env.Data)
	case "leaveMatch":
		ack = g.handleLeaveMatch(c, env.Data)
	case "getRoomStatus":
		ack = g.handleRoomStatus(c, env.Data)
	case "getActiveMatches":
		ack = g.handleActiveMatches(c)
	case "rejoinMatch":
		ack = g.handleRejoinMatch(c, env.Data)
	case "sendMessage":
		ack = g.handleSendMessage(c, env.Data)
	default:
		ack = fail("unknown event " + env.Event)
	}

	c.sendAck(env.ID, ack)
}

func fail(message string) map[string]any {
	return map[string]any{"success": false, "message": message}
}

// handleFindMatch queues the user or pairs them immediately. The user
// row is reloaded so the rating reflects matches finished since the
// connection was opened.
func (g *Gateway) handleFindMatch(c *Client) map[string]any {
	ctx := context.Background()
	user, err := g.users.GetUser(ctx, c.userID)
	if err != nil {
		return fail("failed to load profile")
	}

	res, err := g.match.FindMatch(ctx, *user)
	if err != nil {
		return fail(err.Error())
	}

	ack := map[string]any{"success": true, "status": res.Status}
	switch res.Status {
	case matchmaking.StatusSearching:
		ack["message"] = "Searching for an opponent..."
		ack["queuePosition"] = res.QueuePosition
	case matchmaking.StatusMatched:
		ack["message"] = "Match found!"
		ack["roomId"] = res.RoomID
	}
	return ack
}

func (g *Gateway) handleCancelMatchmaking(c *Client) map[string]any {
	if err := g.match.Cancel(c.userID); err != nil {
		return fail(err.Error())
	}
	return map[string]any{"success": true, "message": "Matchmaking cancelled"}
}

func (g *Gateway) handleMatchmakingStatus(c *Client) map[string]any {
	st := g.match.Status(c.userID)
	return map[string]any{
		"success":   true,
		"inQueue":   st.InQueue,
		"queueSize": st.QueueSize,
		"waitTime":  st.WaitTime,
	}
}

// handleSubmitSolution blocks through evaluation, which is why dispatch
// runs every event on its own goroutine.
func (g *Gateway) handleSubmitSolution(c *Client, raw json.RawMessage) map[string]any {
	var data submitPayload
	if err := json.Unmarshal(raw, &data); err != nil || data.RoomID == "" || data.Code == "" || data.Language == "" {
		return fail("roomId, code and language are required")
	}

	score, passed, err := g.arena.Submit(context.Background(), data.RoomID, c.userID, data.Code, data.Language)
	if err != nil {
		return fail(err.Error())
	}
	return map[string]any{"success": true, "score": score, "passedTestcases": passed}
}

func (g *Gateway) handleLeaveMatch(c *Client, raw json.RawMessage) map[string]any {
	var data roomRef
	if err := json.Unmarshal(raw, &data); err != nil || data.RoomID == "" {
		return fail("roomId is required")
	}

	if err := g.arena.Forfeit(context.Background(), data.RoomID, c.userID); err != nil {
		return fail(err.Error())
	}
	return map[string]any{"success": true, "message": "Match forfeited"}
}

// handleRoomStatus answers only for participants. The snapshot carries
// both players' scores, which spectators have no business seeing.
func (g *Gateway) handleRoomStatus(c *Client, raw json.RawMessage) map[string]any {
	var data roomRef
	if err := json.Unmarshal(raw, &data); err != nil || data.RoomID == "" {
		return fail("roomId is required")
	}

	if !g.arena.IsMember(data.RoomID, c.userID) {
		return fail(arena.ErrNotParticipant.Error())
	}

	snap, err := g.arena.RoomStatus(data.RoomID)
	if err != nil {
		return fail(err.Error())
	}
	return snapshotAck(snap)
}

func (g *Gateway) handleActiveMatches(c *Client) map[string]any {
	matches := g.arena.ActiveMatchesFor(c.userID)
	if matches == nil {
		matches = []arena.Snapshot{}
	}
	return map[string]any{"success": true, "matches": matches}
}

func (g *Gateway) handleRejoinMatch(c *Client, raw json.RawMessage) map[string]any {
	var data roomRef
	if err := json.Unmarshal(raw, &data); err != nil || data.RoomID == "" {
		return fail("roomId is required")
	}

	snap, problem, err := g.arena.Rejoin(data.RoomID, c.userID)
	if err != nil {
		return fail(err.Error())
	}

	ack := snapshotAck(snap)
	ack["problem"] = problem
	return ack
}

func (g *Gateway) handleSendMessage(c *Client, raw json.RawMessage) map[string]any {
	var data chatPayload
	if err := json.Unmarshal(raw, &data); err != nil || data.RoomID == "" || data.Message == "" {
		return fail("roomId and message are required")
	}

	if !g.arena.IsMember(data.RoomID, c.userID) {
		return fail(arena.ErrNotParticipant.Error())
	}

	msg := data.Message
	if runes := []rune(msg); len(runes) > maxChatMessageLen {
		msg = string(runes[:maxChatMessageLen])
	}

	g.bridge.BroadcastToRoom(data.RoomID, "newMessage", map[string]any{
		"userId":    c.userID,
		"username":  c.user.Username,
		"message":   msg,
		"timestamp": time.Now().UnixMilli(),
	})
	return map[string]any{"success": true}
}

func snapshotAck(snap *arena.Snapshot) map[string]any {
	return map[string]any{
		"success":       true,
		"roomId":        snap.RoomID,
		"problemId":     snap.ProblemID,
		"roomStatus":    snap.RoomStatus,
		"users":         snap.Users,
		"isActive":      snap.IsActive,
		"remainingTime": snap.RemainingTime,
	}
}
