package arena

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Divy1030/Code-Arena-Backend/internal/matchmaking"
	"github.com/Divy1030/Code-Arena-Backend/internal/models"
	"github.com/Divy1030/Code-Arena-Backend/internal/rating"
)

type fakeStore struct {
	mu         sync.Mutex
	problem    *models.Problem
	problemErr error
	users      map[string]*models.User
	rooms      map[string]models.Room
	applied    map[string]int // userID -> last rating written
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		problem: &models.Problem{
			ID:       "prob-1",
			Title:    "Two Sum",
			MaxScore: 200,
			TestCases: models.TestCaseList{
				{Input: "1 2", ExpectedOutput: "3"},
				{Input: "2 3", ExpectedOutput: "5"},
			},
			Solution: "secret",
		},
		users:   make(map[string]*models.User),
		rooms:   make(map[string]models.Room),
		applied: make(map[string]int),
	}
}

func (f *fakeStore) RandomProblem(ctx context.Context) (*models.Problem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.problemErr != nil {
		return nil, f.problemErr
	}
	p := *f.problem
	return &p, nil
}

func (f *fakeStore) SaveRoom(ctx context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := *room
	saved.Users = make(models.RoomUserList, len(room.Users))
	copy(saved.Users, room.Users)
	f.rooms[room.ID] = saved
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) ApplyDuelRating(ctx context.Context, userID string, newRating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied[userID] = newRating
	return nil
}

func (f *fakeStore) savedRoom(id string) (models.Room, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	return r, ok
}

type roomEvent struct {
	roomID string
	event  string
	data   any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []roomEvent
	joins  map[string][]string
	ch     chan roomEvent
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		joins: make(map[string][]string),
		ch:    make(chan roomEvent, 64),
	}
}

func (f *fakeBroadcaster) BroadcastToRoom(roomID, event string, data any) {
	f.mu.Lock()
	f.events = append(f.events, roomEvent{roomID, event, data})
	f.mu.Unlock()
	f.ch <- roomEvent{roomID, event, data}
}

func (f *fakeBroadcaster) SendToUser(userID, event string, data any) {
	f.mu.Lock()
	f.events = append(f.events, roomEvent{"user:" + userID, event, data})
	f.mu.Unlock()
	f.ch <- roomEvent{"user:" + userID, event, data}
}

func (f *fakeBroadcaster) JoinRoom(roomID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins[roomID] = append(f.joins[roomID], userID)
}

func (f *fakeBroadcaster) LeaveRoom(roomID, userID string) {}

func (f *fakeBroadcaster) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (f *fakeBroadcaster) last(event string) (roomEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].event == event {
			return f.events[i], true
		}
	}
	return roomEvent{}, false
}

// waitFor blocks until the named event arrives or the test deadline hits.
func (f *fakeBroadcaster) waitFor(t *testing.T, event string) roomEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case e := <-f.ch:
			if e.event == event {
				return e
			}
		case <-deadline:
			t.Fatalf("event %q never broadcast", event)
		}
	}
}

type fakeEvaluator struct {
	score  int
	passed int
	err    error
	gate   chan struct{} // when set, Evaluate blocks until closed
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, userID string, problem *models.Problem, code, language string) (int, int, error) {
	if f.gate != nil {
		<-f.gate
	}
	return f.score, f.passed, f.err
}

func qp(id string, ratingVal int) matchmaking.QueuedPlayer {
	return matchmaking.QueuedPlayer{UserID: id, Username: id, Rating: ratingVal, JoinedAt: time.Now()}
}

func newTestEngine(store *fakeStore, events *fakeBroadcaster, eval *fakeEvaluator, duration time.Duration) *Engine {
	return NewEngine(store, events, eval, duration)
}

func startRoom(t *testing.T, e *Engine) string {
	t.Helper()
	roomID, err := e.StartDuel(context.Background(), qp("x", 1000), qp("y", 1000))
	if err != nil {
		t.Fatalf("StartDuel failed: %v", err)
	}
	return roomID
}

func TestStartDuelCreatesLiveRoom(t *testing.T) {
	store := newFakeStore()
	events := newFakeBroadcaster()
	e := newTestEngine(store, events, &fakeEvaluator{}, 30*time.Minute)
	defer e.Shutdown()

	roomID := startRoom(t, e)

	if !e.HasLiveRoom("x") || !e.HasLiveRoom("y") {
		t.Error("both players should be in a live room")
	}
	snap, err := e.RoomStatus(roomID)
	if err != nil {
		t.Fatalf("RoomStatus: %v", err)
	}
	if snap.RoomStatus != models.RoomStatusLive || !snap.IsActive {
		t.Errorf("room not live: %+v", snap)
	}
	if snap.RemainingTime <= 0 || snap.RemainingTime > 30*60 {
		t.Errorf("remainingTime out of range: %d", snap.RemainingTime)
	}
	if len(events.joins[roomID]) != 2 {
		t.Errorf("both players should join the broadcast set: %v", events.joins[roomID])
	}
	if _, ok := store.savedRoom(roomID); !ok {
		t.Error("room was not persisted")
	}

	found, ok := events.last("matchFound")
	if !ok {
		t.Fatal("matchFound not broadcast")
	}
	payload := found.data.(map[string]any)
	problem := payload["problem"].(*models.Problem)
	if problem.Solution != "" || problem.TestCases != nil {
		t.Error("matchFound payload must not leak solution or test cases")
	}
}

func TestStartDuelFailsWithoutProblem(t *testing.T) {
	store := newFakeStore()
	store.problemErr = errors.New("no problems available")
	e := newTestEngine(store, newFakeBroadcaster(), &fakeEvaluator{}, 30*time.Minute)
	defer e.Shutdown()

	if _, err := e.StartDuel(context.Background(), qp("x", 1000), qp("y", 1000)); err == nil {
		t.Fatal("expected StartDuel to fail")
	}
	if e.HasLiveRoom("x") || e.HasLiveRoom("y") {
		t.Error("failed creation must not register players")
	}
}

func TestSubmitRecordsScore(t *testing.T) {
	store := newFakeStore()
	events := newFakeBroadcaster()
	e := newTestEngine(store, events, &fakeEvaluator{score: 150, passed: 2}, 30*time.Minute)
	defer e.Shutdown()
	roomID := startRoom(t, e)

	score, passed, err := e.Submit(context.Background(), roomID, "x", "print(1)", "python")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if score != 150 || passed != 2 {
		t.Errorf("got score=%d passed=%d, want 150/2", score, passed)
	}

	for _, name := range []string{"userSubmitting", "scoreUpdate", "submissionUpdate"} {
		if events.count(name) != 1 {
			t.Errorf("%s broadcast %d times, want 1", name, events.count(name))
		}
	}

	snap, _ := e.RoomStatus(roomID)
	var x models.RoomUser
	for _, u := range snap.Users {
		if u.UserID == "x" {
			x = u
		}
	}
	if x.SubmissionStatus != models.SubmissionSubmitted || x.Score != 150 || x.SubmissionTime == nil {
		t.Errorf("member state not recorded: %+v", x)
	}
}

func TestSubmitPreconditions(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, newFakeBroadcaster(), &fakeEvaluator{score: 100, passed: 1}, 30*time.Minute)
	defer e.Shutdown()
	roomID := startRoom(t, e)
	ctx := context.Background()

	if _, _, err := e.Submit(ctx, roomID, "x", "code", "cobol"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("unsupported language: got %v", err)
	}
	if _, _, err := e.Submit(ctx, "missing", "x", "code", "python"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("missing room: got %v", err)
	}
	if _, _, err := e.Submit(ctx, roomID, "stranger", "code", "python"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("non-member: got %v", err)
	}

	if _, _, err := e.Submit(ctx, roomID, "x", "code", "python"); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, _, err := e.Submit(ctx, roomID, "x", "code", "python"); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("double submit: got %v", err)
	}
}

func TestBothSubmittedSettles(t *testing.T) {
	store := newFakeStore()
	store.users["x"] = &models.User{ID: "x", Rating: 1000, GamesPlayed: 0}
	store.users["y"] = &models.User{ID: "y", Rating: 1000, GamesPlayed: 0}
	events := newFakeBroadcaster()
	eval := &fakeEvaluator{score: 100, passed: 1}
	e := newTestEngine(store, events, eval, 30*time.Minute)
	defer e.Shutdown()
	roomID := startRoom(t, e)
	ctx := context.Background()

	if _, _, err := e.Submit(ctx, roomID, "x", "code", "python"); err != nil {
		t.Fatalf("x submit: %v", err)
	}
	eval.score = 50 // y scores lower
	if _, _, err := e.Submit(ctx, roomID, "y", "code", "python"); err != nil {
		t.Fatalf("y submit: %v", err)
	}

	if n := events.count("matchFinished"); n != 1 {
		t.Fatalf("matchFinished broadcast %d times, want 1", n)
	}
	fin, _ := events.last("matchFinished")
	payload := fin.data.(map[string]any)
	if payload["reason"] != ReasonAllSubmitted {
		t.Errorf("reason = %v, want %s", payload["reason"], ReasonAllSubmitted)
	}
	if payload["winner"] != "x" || payload["isDraw"] != false {
		t.Errorf("winner = %v isDraw = %v, want x/false", payload["winner"], payload["isDraw"])
	}

	changes := payload["ratingChanges"].(map[string]rating.Change)
	if changes["x"].RatingChange != 20 || changes["y"].RatingChange != -20 {
		t.Errorf("rating changes: %+v", changes)
	}
	if store.applied["x"] != 1020 || store.applied["y"] != 980 {
		t.Errorf("applied ratings: %+v", store.applied)
	}

	users := payload["users"].(models.RoomUserList)
	if users[0].UserID != "x" {
		t.Errorf("users not sorted by score: %+v", users)
	}
	if e.HasLiveRoom("x") || e.HasLiveRoom("y") {
		t.Error("settled players still mapped to a live room")
	}
	saved, _ := store.savedRoom(roomID)
	if saved.Status != models.RoomStatusCompleted || saved.IsActive {
		t.Errorf("persisted room not completed: %+v", saved)
	}
}

func TestForfeitAwardsRemainingPlayer(t *testing.T) {
	// Both rated 1000 with no history: forfeit costs 20 either way.
	store := newFakeStore()
	store.users["x"] = &models.User{ID: "x", Rating: 1000, GamesPlayed: 0}
	store.users["y"] = &models.User{ID: "y", Rating: 1000, GamesPlayed: 0}
	events := newFakeBroadcaster()
	e := newTestEngine(store, events, &fakeEvaluator{}, 30*time.Minute)
	defer e.Shutdown()
	roomID := startRoom(t, e)

	if err := e.Forfeit(context.Background(), roomID, "x"); err != nil {
		t.Fatalf("Forfeit failed: %v", err)
	}

	if events.count("opponentLeft") != 1 {
		t.Error("opponentLeft not broadcast")
	}
	fin, ok := events.last("matchFinished")
	if !ok {
		t.Fatal("forfeit did not settle the room")
	}
	payload := fin.data.(map[string]any)
	if payload["reason"] != ReasonForfeit || payload["winner"] != "y" || payload["isDraw"] != false {
		t.Errorf("forfeit settlement wrong: reason=%v winner=%v isDraw=%v",
			payload["reason"], payload["winner"], payload["isDraw"])
	}
	changes := payload["ratingChanges"].(map[string]rating.Change)
	if changes["y"].RatingChange != 20 || changes["x"].RatingChange != -20 {
		t.Errorf("forfeit rating changes: %+v", changes)
	}
}

func TestTimeoutSettlesAsDraw(t *testing.T) {
	store := newFakeStore()
	store.users["x"] = &models.User{ID: "x", Rating: 1000, GamesPlayed: 0}
	store.users["y"] = &models.User{ID: "y", Rating: 1000, GamesPlayed: 0}
	events := newFakeBroadcaster()
	e := newTestEngine(store, events, &fakeEvaluator{}, 30*time.Millisecond)
	defer e.Shutdown()
	startRoom(t, e)

	fin := events.waitFor(t, "matchFinished")
	payload := fin.data.(map[string]any)
	if payload["reason"] != ReasonTimeout || payload["isDraw"] != true {
		t.Errorf("timeout settlement wrong: reason=%v isDraw=%v", payload["reason"], payload["isDraw"])
	}
	if payload["winner"] != nil {
		t.Errorf("draw must have no winner, got %v", payload["winner"])
	}
	changes := payload["ratingChanges"].(map[string]rating.Change)
	if changes["x"].RatingChange != 0 || changes["y"].RatingChange != 0 {
		t.Errorf("equal-rating draw should not move ratings: %+v", changes)
	}
}

func TestTimeoutIsIdempotent(t *testing.T) {
	store := newFakeStore()
	events := newFakeBroadcaster()
	e := newTestEngine(store, events, &fakeEvaluator{}, 30*time.Minute)
	defer e.Shutdown()
	roomID := startRoom(t, e)

	e.HandleTimeout(roomID)
	e.HandleTimeout(roomID)
	e.HandleTimeout("missing")

	if n := events.count("matchFinished"); n != 1 {
		t.Errorf("matchFinished broadcast %d times, want 1", n)
	}
}

func TestTimerRacingSubmissionSettlesOnce(t *testing.T) {
	// The timer fires while an evaluation is in flight; the settlement
	// must win and the late result must not mutate the terminal room.
	store := newFakeStore()
	events := newFakeBroadcaster()
	eval := &fakeEvaluator{score: 100, passed: 1, gate: make(chan struct{})}
	e := newTestEngine(store, events, eval, 30*time.Minute)
	defer e.Shutdown()
	roomID := startRoom(t, e)

	done := make(chan error, 1)
	go func() {
		_, _, err := e.Submit(context.Background(), roomID, "x", "code", "python")
		done <- err
	}()

	events.waitFor(t, "userSubmitting")
	e.HandleTimeout(roomID)
	close(eval.gate)

	if err := <-done; err != nil {
		t.Fatalf("late submit should not error: %v", err)
	}
	if n := events.count("matchFinished"); n != 1 {
		t.Errorf("matchFinished broadcast %d times, want 1", n)
	}
	snap, _ := e.RoomStatus(roomID)
	for _, u := range snap.Users {
		if u.UserID == "x" && u.SubmissionStatus != models.SubmissionPending {
			t.Errorf("late evaluation mutated settled room: %+v", u)
		}
	}
}

func TestRejoinIsIdempotent(t *testing.T) {
	store := newFakeStore()
	events := newFakeBroadcaster()
	e := newTestEngine(store, events, &fakeEvaluator{}, 30*time.Minute)
	defer e.Shutdown()
	roomID := startRoom(t, e)

	first, problem, err := e.Rejoin(roomID, "x")
	if err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	if problem == nil || problem.Solution != "" {
		t.Error("rejoin should return a sanitized problem payload")
	}
	second, _, err := e.Rejoin(roomID, "x")
	if err != nil {
		t.Fatalf("second Rejoin failed: %v", err)
	}

	if first.RoomID != second.RoomID || first.RoomStatus != second.RoomStatus ||
		len(first.Users) != len(second.Users) {
		t.Errorf("snapshots differ: %+v vs %+v", first, second)
	}
	if events.count("opponentReconnected") == 0 {
		t.Error("opponentReconnected not broadcast")
	}

	if _, _, err := e.Rejoin(roomID, "stranger"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("stranger rejoin: got %v", err)
	}
}

func TestActiveMatches(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, newFakeBroadcaster(), &fakeEvaluator{}, 30*time.Minute)
	defer e.Shutdown()
	startRoom(t, e)

	if n := len(e.ActiveMatchesFor("x")); n != 1 {
		t.Errorf("x active matches = %d, want 1", n)
	}
	if n := len(e.ActiveMatchesFor("stranger")); n != 0 {
		t.Errorf("stranger active matches = %d, want 0", n)
	}
	if _, err := e.RoomStatus("missing"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("missing room status: got %v", err)
	}
}

func TestShutdownCancelsMatchTimers(t *testing.T) {
	store := newFakeStore()
	events := newFakeBroadcaster()
	e := newTestEngine(store, events, &fakeEvaluator{}, 30*time.Millisecond)
	startRoom(t, e)

	e.Shutdown()

	deadline := time.After(150 * time.Millisecond)
	for {
		select {
		case ev := <-events.ch:
			if ev.event == "matchFinished" {
				t.Error("match timer fired after shutdown")
			}
		case <-deadline:
			return
		}
	}
}

func TestShutdownCancelsRetentionTimer(t *testing.T) {
	store := newFakeStore()
	events := newFakeBroadcaster()
	e := newTestEngine(store, events, &fakeEvaluator{}, 30*time.Minute)
	roomID := startRoom(t, e)

	// Settlement swaps the match timer for the retention timer in the
	// same slot.
	e.HandleTimeout(roomID)

	e.timersMu.Lock()
	_, tracked := e.timers[roomID]
	e.timersMu.Unlock()
	if !tracked {
		t.Fatal("retention timer not tracked after settlement")
	}

	e.Shutdown()

	e.timersMu.Lock()
	remaining := len(e.timers)
	e.timersMu.Unlock()
	if remaining != 0 {
		t.Errorf("timers tracked after shutdown = %d, want 0", remaining)
	}

	e.scheduleCleanup(roomID)
	e.timersMu.Lock()
	resurrected := len(e.timers)
	e.timersMu.Unlock()
	if resurrected != 0 {
		t.Error("cleanup scheduled after shutdown")
	}
}
