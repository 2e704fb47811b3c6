package matchmaking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

// Pairing outcomes reported to the caller's ack.
const (
	StatusSearching = "searching"
	StatusMatched   = "matched"
)

var (
	ErrAlreadyQueued = errors.New("already searching for a match")
	ErrInActiveMatch = errors.New("already in an active match")
	ErrNotQueued     = errors.New("not in the matchmaking queue")
)

// Notifier delivers a server event to a connected user's session.
type Notifier interface {
	SendToUser(userID, event string, data any)
}

// RoomStarter creates duel rooms for paired players and answers
// live-room membership checks.
type RoomStarter interface {
	StartDuel(ctx context.Context, a, b QueuedPlayer) (roomID string, err error)
	HasLiveRoom(userID string) bool
}

// Result is the ack payload of a findMatch call.
type Result struct {
	Status        string `json:"status"`
	QueuePosition int    `json:"queuePosition,omitempty"`
	RoomID        string `json:"roomId,omitempty"`
}

// QueueStatus answers getMatchmakingStatus.
type QueueStatus struct {
	InQueue   bool `json:"inQueue"`
	QueueSize int  `json:"queueSize"`
	WaitTime  int  `json:"waitTime"`
}

// Service runs the pairing protocol over a Queue. One mutex serializes
// the findMatch + remove critical section so two concurrent calls cannot
// claim the same opponent.
type Service struct {
	queue    *Queue
	rooms    RoomStarter
	notify   Notifier
	deadline time.Duration

	mu sync.Mutex
}

func NewService(queue *Queue, rooms RoomStarter, notify Notifier, deadline time.Duration) *Service {
	return &Service{
		queue:    queue,
		rooms:    rooms,
		notify:   notify,
		deadline: deadline,
	}
}

// FindMatch pairs the user with the best waiting opponent, or queues
// them with a deadline. Room creation happens outside the queue mutex.
func (s *Service) FindMatch(ctx context.Context, user models.User) (*Result, error) {
	p := QueuedPlayer{
		UserID:   user.ID,
		Username: user.Username,
		Rating:   user.Rating,
		JoinedAt: time.Now(),
	}

	s.mu.Lock()
	if s.queue.Has(p.UserID) {
		s.mu.Unlock()
		return nil, ErrAlreadyQueued
	}
	if s.rooms.HasLiveRoom(p.UserID) {
		s.mu.Unlock()
		return nil, ErrInActiveMatch
	}

	opponent := s.queue.FindMatch(p)
	if opponent == nil {
		s.queue.Add(p, s.deadline, s.onDeadline)
		position := s.queue.Size()
		s.mu.Unlock()

		log.Printf("[MATCHMAKING] %s queued (rating=%d, position=%d)", p.Username, p.Rating, position)
		s.notify.SendToUser(p.UserID, "matchmakingStatus", QueueStatus{
			InQueue:   true,
			QueueSize: position,
		})
		return &Result{Status: StatusSearching, QueuePosition: position}, nil
	}

	s.queue.Remove(opponent.UserID)
	s.mu.Unlock()

	log.Printf("[MATCHMAKING] Paired %s (%d) with %s (%d)",
		opponent.Username, opponent.Rating, p.Username, p.Rating)

	roomID, err := s.rooms.StartDuel(ctx, *opponent, p)
	if err != nil {
		log.Printf("[MATCHMAKING] Failed to start duel %s vs %s: %v", opponent.UserID, p.UserID, err)
		msg := map[string]any{"message": "Failed to create match. Please try again."}
		s.notify.SendToUser(opponent.UserID, "matchmakingError", msg)
		s.notify.SendToUser(p.UserID, "matchmakingError", msg)
		return nil, errors.New("failed to create match")
	}

	return &Result{Status: StatusMatched, RoomID: roomID}, nil
}

// Cancel dequeues the user in response to an explicit cancelMatchmaking.
func (s *Service) Cancel(userID string) error {
	if _, ok := s.queue.Remove(userID); !ok {
		return ErrNotQueued
	}
	log.Printf("[MATCHMAKING] %s cancelled matchmaking", userID)
	return nil
}

// Dequeue removes userID without treating absence as an error. Used on
// session disconnect.
func (s *Service) Dequeue(userID string) {
	s.queue.Remove(userID)
}

// Status answers getMatchmakingStatus with the caller's wait time in
// whole seconds.
func (s *Service) Status(userID string) QueueStatus {
	st := QueueStatus{QueueSize: s.queue.Size()}
	if p, ok := s.queue.Get(userID); ok {
		st.InQueue = true
		st.WaitTime = int(time.Since(p.JoinedAt).Seconds())
	}
	return st
}

// Shutdown cancels all queued deadlines.
func (s *Service) Shutdown() {
	s.queue.Shutdown()
}

// onDeadline runs when a queued player's wait expires.
func (s *Service) onDeadline(p QueuedPlayer) {
	log.Printf("[MATCHMAKING] %s timed out after %s in queue", p.Username, s.deadline)
	s.notify.SendToUser(p.UserID, "matchmakingTimeout", map[string]any{
		"message": "No match found. Please try again.",
	})
}
