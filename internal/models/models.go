package models

import (
	"time"
)

// Room lifecycle states.
const (
	RoomStatusLive      = "Live"
	RoomStatusCompleted = "completed"
)

// Per-player submission states inside a room. Transitions are one-way:
// pending -> submitted or pending -> forfeited.
const (
	SubmissionPending   = "pending"
	SubmissionSubmitted = "submitted"
	SubmissionForfeited = "forfeited"
)

// Contest problem submission states.
const (
	ContestAttempted = "attempted"
	ContestCorrect   = "correct"
)

// User represents a registered player
type User struct {
	ID                 string    `db:"id" json:"userId"`
	Username           string    `db:"username" json:"username"`
	Email              string    `db:"email" json:"email,omitempty"`
	PasswordHash       string    `db:"password_hash" json:"-"`
	Rating             int       `db:"rating" json:"rating"`
	GamesPlayed        int       `db:"games_played" json:"gamesPlayed"`
	ContestGamesPlayed int       `db:"contest_games_played" json:"contestGamesPlayed"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}

// Example is a worked input/output pair shown in a problem statement
type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// TestCase is a judge-visible input/expected-output pair
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}

// Problem represents a coding problem
type Problem struct {
	ID          string       `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Difficulty  string       `db:"difficulty" json:"difficulty"`
	Examples    ExampleList  `db:"examples" json:"examples"`
	Constraints StringList   `db:"constraints_list" json:"constraints"`
	TestCases   TestCaseList `db:"test_cases" json:"testCases,omitempty"`
	MaxScore    int          `db:"max_score" json:"maxScore"`
	Solution    string       `db:"solution" json:"solution,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
}

// EffectiveMaxScore is the attainable score for the problem: the stored
// maxScore or 100 points per test case, whichever is larger.
func (p *Problem) EffectiveMaxScore() int {
	if n := len(p.TestCases) * 100; n > p.MaxScore {
		return n
	}
	return p.MaxScore
}

// TestResult is the outcome of one test case as reported by a judge worker
type TestResult struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	ActualOutput   string `json:"actualOutput"`
	Status         string `json:"status"`
}

// Solution is a persisted submission attempt. Rows are insert-only.
type Solution struct {
	ID             string         `db:"id" json:"id"`
	UserID         string         `db:"user_id" json:"userId"`
	ContestID      *string        `db:"contest_id" json:"contestId,omitempty"`
	ProblemID      string         `db:"problem_id" json:"problemId"`
	SolutionCode   string         `db:"solution_code" json:"solutionCode"`
	LanguageUsed   string         `db:"language_used" json:"languageUsed"`
	Score          int            `db:"score" json:"score"`
	MaxScore       int            `db:"max_score" json:"maxScore"`
	TestResults    TestResultList `db:"test_results" json:"testResults"`
	TimeOccupied   float64        `db:"time_occupied" json:"timeOccupied"`
	MemoryOccupied float64        `db:"memory_occupied" json:"memoryOccupied"`
	TimeGiven      int            `db:"time_given" json:"timeGiven"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// RoomUser is one player's slot inside a duel room
type RoomUser struct {
	UserID           string     `json:"userId"`
	Username         string     `json:"username"`
	Rating           int        `json:"rating"`
	Score            int        `json:"score"`
	SubmissionStatus string     `json:"submissionStatus"`
	SubmissionTime   *time.Time `json:"submissionTime,omitempty"`
	PassedTestcases  int        `json:"passedTestcases"`
}

// Room represents a head-to-head duel between exactly two players
type Room struct {
	ID        string       `db:"id" json:"roomId"`
	ProblemID string       `db:"problem_id" json:"problemId"`
	Users     RoomUserList `db:"users" json:"users"`
	Status    string       `db:"status" json:"status"`
	IsActive  bool         `db:"is_active" json:"isActive"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time    `db:"updated_at" json:"updatedAt"`
}

// Contest represents a timed contest over a fixed problem set
type Contest struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	StartTime   time.Time  `db:"start_time" json:"startTime"`
	EndTime     time.Time  `db:"end_time" json:"endTime"`
	ProblemIDs  StringList `db:"problem_ids" json:"problems"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// ContestProblem is one problem's standing inside a participation record
type ContestProblem struct {
	ProblemID        string `json:"problemId"`
	Score            int    `json:"score"`
	SubmissionStatus string `json:"submissionStatus"`
}

// ContestParticipant is a user's participation record in a contest
type ContestParticipant struct {
	ContestID string             `db:"contest_id" json:"contestId"`
	UserID    string             `db:"user_id" json:"userId"`
	Score     int                `db:"score" json:"score"`
	Problems  ContestProblemList `db:"problems" json:"contestProblems"`
	JoinedAt  time.Time          `db:"joined_at" json:"joinedAt"`
}
