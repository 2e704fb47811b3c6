package arena

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
	"github.com/Divy1030/Code-Arena-Backend/internal/rating"
)

// Submit evaluates a member's solution and records the result. The
// evaluation runs outside the room lock; userSubmitting is broadcast
// before it starts and scoreUpdate/submissionUpdate after it lands. When
// the last pending member resolves, the room settles.
func (e *Engine) Submit(ctx context.Context, roomID, userID, code, language string) (int, int, error) {
	language = strings.ToLower(language)
	if !supportedLanguages[language] {
		return 0, 0, ErrUnsupportedLanguage
	}

	room := e.room(roomID)
	if room == nil {
		return 0, 0, ErrRoomNotFound
	}

	room.mu.Lock()
	if room.state.Status != models.RoomStatusLive {
		room.mu.Unlock()
		return 0, 0, ErrMatchNotLive
	}
	member := room.user(userID)
	if member == nil {
		room.mu.Unlock()
		return 0, 0, ErrNotParticipant
	}
	if member.SubmissionStatus != models.SubmissionPending {
		room.mu.Unlock()
		return 0, 0, ErrAlreadySubmitted
	}
	if room.inFlight[userID] {
		room.mu.Unlock()
		return 0, 0, ErrEvaluationInProgress
	}
	room.inFlight[userID] = true
	problem := room.problem
	username := member.Username
	room.mu.Unlock()

	e.events.BroadcastToRoom(roomID, "userSubmitting", map[string]any{
		"userId":   userID,
		"username": username,
	})

	score, passed, evalErr := e.evaluator.Evaluate(ctx, userID, problem, code, language)

	room.mu.Lock()
	defer room.mu.Unlock()
	delete(room.inFlight, userID)

	if evalErr != nil {
		log.Printf("[ARENA] Evaluation failed for %s in room %s: %v", userID, roomID, evalErr)
		return 0, 0, fmt.Errorf("evaluation failed: %w", evalErr)
	}
	if room.state.Status != models.RoomStatusLive {
		// The room settled while the evaluation ran. The solution is
		// already persisted through the judge path; room state stays
		// terminal.
		return score, passed, nil
	}

	member = room.user(userID)
	now := time.Now()
	member.Score = score
	member.SubmissionStatus = models.SubmissionSubmitted
	member.SubmissionTime = &now
	member.PassedTestcases = passed
	room.state.UpdatedAt = now
	e.persist(room)

	e.events.BroadcastToRoom(roomID, "scoreUpdate", map[string]any{
		"userId":   userID,
		"username": username,
		"score":    score,
	})
	e.events.BroadcastToRoom(roomID, "submissionUpdate", map[string]any{
		"userId":          userID,
		"username":        username,
		"score":           score,
		"passedTestcases": passed,
		"submissionTime":  now.UnixMilli(),
	})

	if allDecided(room.state.Users) {
		e.settleLocked(room, ReasonAllSubmitted)
	}
	return score, passed, nil
}

// Forfeit marks a pending member as forfeited with score zero and, when
// at most one non-forfeited member remains, settles the room in the
// remaining player's favor.
func (e *Engine) Forfeit(ctx context.Context, roomID, userID string) error {
	room := e.room(roomID)
	if room == nil {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.state.Status != models.RoomStatusLive {
		return ErrMatchNotLive
	}
	member := room.user(userID)
	if member == nil {
		return ErrNotParticipant
	}
	if member.SubmissionStatus != models.SubmissionPending {
		return ErrAlreadySubmitted
	}

	member.SubmissionStatus = models.SubmissionForfeited
	member.Score = 0
	room.state.UpdatedAt = time.Now()

	e.events.BroadcastToRoom(roomID, "opponentLeft", map[string]any{
		"userId":   userID,
		"username": member.Username,
		"message":  member.Username + " left the match",
	})
	log.Printf("[ARENA] %s forfeited room %s", userID, roomID)

	remaining := 0
	for _, u := range room.state.Users {
		if u.SubmissionStatus != models.SubmissionForfeited {
			remaining++
		}
	}
	if remaining <= 1 {
		e.settleLocked(room, ReasonForfeit)
		return nil
	}
	e.persist(room)
	return nil
}

// HandleTimeout fires from the scheduled match timer. It is a no-op for
// rooms that already settled.
func (e *Engine) HandleTimeout(roomID string) {
	room := e.room(roomID)
	if room == nil {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.state.Status != models.RoomStatusLive {
		return
	}
	log.Printf("[ARENA] Room %s reached its time limit", roomID)
	e.settleLocked(room, ReasonTimeout)
}

// settleLocked runs the one-shot terminal transition. The caller holds
// room.mu; the completed check makes racing timer and submission paths
// converge on a single settlement.
func (e *Engine) settleLocked(room *Room, reason string) {
	if room.state.Status == models.RoomStatusCompleted {
		return
	}
	roomID := room.state.ID

	e.clearTimer(roomID)

	sortForSettlement(room.state.Users)
	users := room.state.Users

	isDraw := users[0].Score == users[1].Score
	winnerIdx := 0
	if reason == ReasonForfeit {
		// the remaining player wins regardless of scores
		isDraw = false
		for i := range users {
			if users[i].SubmissionStatus != models.SubmissionForfeited {
				winnerIdx = i
				break
			}
		}
	}

	outcomeA := rating.Draw
	if !isDraw {
		if winnerIdx == 0 {
			outcomeA = rating.Win
		} else {
			outcomeA = rating.Loss
		}
	}

	playerA := e.ratingPlayer(users[0])
	playerB := e.ratingPlayer(users[1])
	changeA, changeB := rating.Duel(playerA, playerB, outcomeA)
	changes := map[string]rating.Change{
		playerA.UserID: changeA,
		playerB.UserID: changeB,
	}

	// Rating writes are best-effort and parallel; a failure is logged
	// and never blocks the broadcast.
	var wg sync.WaitGroup
	for userID, change := range changes {
		wg.Add(1)
		go func(id string, newRating int) {
			defer wg.Done()
			if err := e.store.ApplyDuelRating(context.Background(), id, newRating); err != nil {
				log.Printf("[ARENA] Failed to update rating for %s: %v", id, err)
			}
		}(userID, change.NewRating)
	}
	wg.Wait()

	room.state.Status = models.RoomStatusCompleted
	room.state.IsActive = false
	room.state.UpdatedAt = time.Now()
	e.persist(room)

	e.mu.Lock()
	for _, u := range users {
		if e.byUser[u.UserID] == roomID {
			delete(e.byUser, u.UserID)
		}
	}
	e.mu.Unlock()

	var winner any
	if !isDraw {
		winner = users[winnerIdx].UserID
	}
	e.events.BroadcastToRoom(roomID, "matchFinished", map[string]any{
		"roomId":        roomID,
		"reason":        reason,
		"users":         users,
		"winner":        winner,
		"isDraw":        isDraw,
		"ratingChanges": changes,
	})
	log.Printf("[ARENA] Room %s settled (%s): winner=%v draw=%v", roomID, reason, winner, isDraw)

	e.scheduleCleanup(roomID)
}

// ratingPlayer builds the rating input for a room member, preferring the
// stored user's current rating and games count over the room snapshot.
func (e *Engine) ratingPlayer(u models.RoomUser) rating.Player {
	p := rating.Player{UserID: u.UserID, Rating: u.Rating}
	dbUser, err := e.store.GetUser(context.Background(), u.UserID)
	if err != nil {
		log.Printf("[ARENA] Falling back to snapshot rating for %s: %v", u.UserID, err)
		return p
	}
	p.Rating = dbUser.Rating
	p.GamesPlayed = dbUser.GamesPlayed
	return p
}

func allDecided(users models.RoomUserList) bool {
	for _, u := range users {
		if u.SubmissionStatus == models.SubmissionPending {
			return false
		}
	}
	return true
}

func (e *Engine) persist(room *Room) {
	if err := e.store.SaveRoom(context.Background(), &room.state); err != nil {
		log.Printf("[ARENA] Failed to persist room %s: %v", room.state.ID, err)
	}
}
