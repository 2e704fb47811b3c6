package arena

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Divy1030/Code-Arena-Backend/internal/matchmaking"
	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrMatchNotLive         = errors.New("match is not live")
	ErrNotParticipant       = errors.New("not a participant in this room")
	ErrAlreadySubmitted     = errors.New("solution already submitted")
	ErrEvaluationInProgress = errors.New("evaluation already in progress")
	ErrUnsupportedLanguage  = errors.New("unsupported language")
)

// completed rooms stay queryable for a short window after settlement
const completedRoomRetention = time.Minute

// Store is the persistence surface the engine needs.
type Store interface {
	RandomProblem(ctx context.Context) (*models.Problem, error)
	SaveRoom(ctx context.Context, room *models.Room) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ApplyDuelRating(ctx context.Context, userID string, newRating int) error
}

// Broadcaster delivers events to connected sessions. Implementations
// must not block the caller.
type Broadcaster interface {
	BroadcastToRoom(roomID, event string, data any)
	SendToUser(userID, event string, data any)
	JoinRoom(roomID, userID string)
	LeaveRoom(roomID, userID string)
}

// Evaluator scores a submission against a problem's test cases.
type Evaluator interface {
	Evaluate(ctx context.Context, userID string, problem *models.Problem, code, language string) (score, passedTestcases int, err error)
}

// Engine owns every live duel room, its timers and its settlement.
type Engine struct {
	store     Store
	events    Broadcaster
	evaluator Evaluator
	duration  time.Duration

	mu     sync.RWMutex
	rooms  map[string]*Room
	byUser map[string]string // userID -> live roomID

	// timers and starts are the scheduled-timeout tables, cleared when a
	// room settles. Settled rooms park their retention timer in the same
	// slot. stopped refuses new timers once Shutdown ran.
	timersMu sync.Mutex
	timers   map[string]*time.Timer
	starts   map[string]time.Time
	stopped  bool
}

func NewEngine(store Store, events Broadcaster, evaluator Evaluator, duration time.Duration) *Engine {
	return &Engine{
		store:     store,
		events:    events,
		evaluator: evaluator,
		duration:  duration,
		rooms:     make(map[string]*Room),
		byUser:    make(map[string]string),
		timers:    make(map[string]*time.Timer),
		starts:    make(map[string]time.Time),
	}
}

// StartDuel creates a Live room for two paired players, schedules its
// timeout and announces matchFound to both.
func (e *Engine) StartDuel(ctx context.Context, a, b matchmaking.QueuedPlayer) (string, error) {
	problem, err := e.store.RandomProblem(ctx)
	if err != nil {
		return "", err
	}

	now := time.Now()
	roomID := uuid.NewString()
	room := &Room{
		state: models.Room{
			ID:        roomID,
			ProblemID: problem.ID,
			Users: models.RoomUserList{
				{UserID: a.UserID, Username: a.Username, Rating: a.Rating, SubmissionStatus: models.SubmissionPending},
				{UserID: b.UserID, Username: b.Username, Rating: b.Rating, SubmissionStatus: models.SubmissionPending},
			},
			Status:    models.RoomStatusLive,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		problem:  problem,
		endsAt:   now.Add(e.duration),
		inFlight: make(map[string]bool),
	}

	if err := e.store.SaveRoom(ctx, &room.state); err != nil {
		return "", err
	}

	e.mu.Lock()
	e.rooms[roomID] = room
	e.byUser[a.UserID] = roomID
	e.byUser[b.UserID] = roomID
	e.mu.Unlock()

	e.timersMu.Lock()
	e.starts[roomID] = now
	e.timers[roomID] = time.AfterFunc(e.duration, func() {
		e.HandleTimeout(roomID)
	})
	e.timersMu.Unlock()

	e.events.JoinRoom(roomID, a.UserID)
	e.events.JoinRoom(roomID, b.UserID)
	e.events.BroadcastToRoom(roomID, "matchFound", map[string]any{
		"roomId":    roomID,
		"problem":   sanitizeProblem(problem),
		"users":     room.state.Users,
		"startedAt": now.UnixMilli(),
		"endsAt":    room.endsAt.UnixMilli(),
	})

	log.Printf("[ARENA] Room %s created: %s (%d) vs %s (%d), problem=%s",
		roomID, a.Username, a.Rating, b.Username, b.Rating, problem.ID)
	return roomID, nil
}

// HasLiveRoom reports whether the user is in a Live room.
func (e *Engine) HasLiveRoom(userID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.byUser[userID]
	return ok
}

// IsMember reports whether userID belongs to the room.
func (e *Engine) IsMember(roomID, userID string) bool {
	room := e.room(roomID)
	if room == nil {
		return false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.user(userID) != nil
}

// RoomStatus answers getRoomStatus.
func (e *Engine) RoomStatus(roomID string) (*Snapshot, error) {
	room := e.room(roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	snap := room.snapshotLocked(time.Now())
	return &snap, nil
}

// ActiveMatchesFor answers getActiveMatches: every live room the user
// belongs to.
func (e *Engine) ActiveMatchesFor(userID string) []Snapshot {
	e.mu.RLock()
	var members []*Room
	for _, room := range e.rooms {
		members = append(members, room)
	}
	e.mu.RUnlock()

	now := time.Now()
	matches := []Snapshot{}
	for _, room := range members {
		room.mu.Lock()
		if room.state.IsActive && room.user(userID) != nil {
			matches = append(matches, room.snapshotLocked(now))
		}
		room.mu.Unlock()
	}
	return matches
}

// Rejoin reattaches a returning member to the room's broadcast set,
// notifies the opponent and returns the current snapshot plus the
// problem payload. Calling it repeatedly does not change room state.
func (e *Engine) Rejoin(roomID, userID string) (*Snapshot, *models.Problem, error) {
	room := e.room(roomID)
	if room == nil {
		return nil, nil, ErrRoomNotFound
	}

	room.mu.Lock()
	member := room.user(userID)
	if member == nil {
		room.mu.Unlock()
		return nil, nil, ErrNotParticipant
	}
	if !room.state.IsActive {
		room.mu.Unlock()
		return nil, nil, ErrMatchNotLive
	}
	snap := room.snapshotLocked(time.Now())
	username := member.Username
	problem := sanitizeProblem(room.problem)
	room.mu.Unlock()

	e.events.JoinRoom(roomID, userID)
	e.events.BroadcastToRoom(roomID, "opponentReconnected", map[string]any{
		"userId":   userID,
		"username": username,
	})
	return &snap, problem, nil
}

// Shutdown cancels every scheduled timer, match timeouts and retention
// timers alike, and refuses new ones. Rooms are left as-is; they are
// in-memory only and the persisted copies stay authoritative.
func (e *Engine) Shutdown() {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	e.stopped = true
	for id, timer := range e.timers {
		timer.Stop()
		delete(e.timers, id)
		delete(e.starts, id)
	}
}

func (e *Engine) room(roomID string) *Room {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rooms[roomID]
}

// clearTimer stops and removes the room's timeout timer and start entry.
// Stopping an already-fired timer is harmless.
func (e *Engine) clearTimer(roomID string) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if timer, ok := e.timers[roomID]; ok {
		timer.Stop()
	}
	delete(e.timers, roomID)
	delete(e.starts, roomID)
}

// scheduleCleanup drops a settled room from the registry after a grace
// window so late status queries still resolve, then evicts both players
// from the room's broadcast group. The timer takes over the room's slot
// in e.timers, freed at settlement, so Shutdown cancels it like any
// other.
func (e *Engine) scheduleCleanup(roomID string) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if e.stopped {
		return
	}
	e.timers[roomID] = time.AfterFunc(completedRoomRetention, func() {
		e.timersMu.Lock()
		delete(e.timers, roomID)
		e.timersMu.Unlock()

		e.mu.Lock()
		room := e.rooms[roomID]
		delete(e.rooms, roomID)
		e.mu.Unlock()

		if room == nil {
			return
		}
		room.mu.Lock()
		users := make([]string, 0, len(room.state.Users))
		for _, u := range room.state.Users {
			users = append(users, u.UserID)
		}
		room.mu.Unlock()
		for _, userID := range users {
			e.events.LeaveRoom(roomID, userID)
		}
	})
}
