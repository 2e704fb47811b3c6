package arena

import (
	"sort"
	"sync"
	"time"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

// Settlement reasons carried on matchFinished.
const (
	ReasonAllSubmitted = "allSubmitted"
	ReasonForfeit      = "forfeit"
	ReasonTimeout      = "timeout"
)

// Languages accepted for duel submissions.
var supportedLanguages = map[string]bool{
	"cpp":        true,
	"python":     true,
	"javascript": true,
	"c":          true,
	"java":       true,
}

// Room is the live, in-memory state of one duel. The mutex serializes
// submit, forfeit and timeout for the room; the persisted models.Room is
// a write-through copy of state.
type Room struct {
	mu sync.Mutex

	state   models.Room
	problem *models.Problem
	endsAt  time.Time

	// inFlight marks users whose submission is being evaluated, so a
	// second submitSolution cannot race the first past the pending check.
	inFlight map[string]bool
}

// Snapshot is the wire form of a room returned by status queries.
type Snapshot struct {
	RoomID        string              `json:"roomId"`
	ProblemID     string              `json:"problemId"`
	RoomStatus    string              `json:"roomStatus"`
	Users         models.RoomUserList `json:"users"`
	IsActive      bool                `json:"isActive"`
	RemainingTime int                 `json:"remainingTime"`
}

func (r *Room) user(userID string) *models.RoomUser {
	for i := range r.state.Users {
		if r.state.Users[i].UserID == userID {
			return &r.state.Users[i]
		}
	}
	return nil
}

// snapshotLocked builds a Snapshot; caller holds r.mu.
func (r *Room) snapshotLocked(now time.Time) Snapshot {
	users := make(models.RoomUserList, len(r.state.Users))
	copy(users, r.state.Users)
	return Snapshot{
		RoomID:        r.state.ID,
		ProblemID:     r.state.ProblemID,
		RoomStatus:    r.state.Status,
		Users:         users,
		IsActive:      r.state.IsActive,
		RemainingTime: r.remainingLocked(now),
	}
}

// remainingLocked returns whole seconds until the match deadline, never
// negative, and zero once the room is completed.
func (r *Room) remainingLocked(now time.Time) int {
	if r.state.Status != models.RoomStatusLive {
		return 0
	}
	remaining := r.endsAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// sortForSettlement orders users by score descending, then earlier
// submission time, then submitted before never-submitted, keeping the
// original order for full ties.
func sortForSettlement(users models.RoomUserList) {
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		switch {
		case a.SubmissionTime != nil && b.SubmissionTime != nil:
			return a.SubmissionTime.Before(*b.SubmissionTime)
		case a.SubmissionTime != nil:
			return true
		default:
			return false
		}
	})
}

// sanitizeProblem strips judge-only fields before a problem payload is
// sent to clients.
func sanitizeProblem(p *models.Problem) *models.Problem {
	clean := *p
	clean.TestCases = nil
	clean.Solution = ""
	return &clean
}
