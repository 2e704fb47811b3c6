package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

// Execution modes. Workers drain the submit queue before the run queue
// for each language.
const (
	ModeRun    = "run"
	ModeSubmit = "submit"
)

// Job lifecycle statuses written to the job hash. queued and running are
// set by this side and the workers respectively; completed and failed
// are terminal and set atomically by workers together with the verdict.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job hash lifetimes: a fresh job lives long enough for a worker to
// reach it; polls on finished jobs keep extending the window.
const (
	enqueueTTL = time.Hour
	submitTTL  = 600 * time.Second
	runTTL     = 120 * time.Second
)

var ErrJobNotFound = errors.New("invalid or expired job id")

// Languages the execution workers are deployed for.
var supportedLanguages = map[string]bool{
	"python":     true,
	"cpp":        true,
	"java":       true,
	"javascript": true,
}

// SupportedLanguage reports whether the execution workers are deployed
// for the (case-insensitive) language name.
func SupportedLanguage(language string) bool {
	return supportedLanguages[strings.ToLower(language)]
}

// SolutionStore persists finished submit-mode verdicts.
type SolutionStore interface {
	CreateSolution(ctx context.Context, sol *models.Solution) error
}

// Client enqueues code-execution jobs for the out-of-process language
// workers and polls their verdicts. Redis is the only shared state.
type Client struct {
	rdb   *redis.Client
	store SolutionStore
}

func NewClient(rdb *redis.Client, store SolutionStore) *Client {
	return &Client{rdb: rdb, store: store}
}

// EnqueueRequest carries one run or submit job.
type EnqueueRequest struct {
	Mode      string
	Language  string
	Code      string
	UserID    string
	ProblemID string
	TestCases models.TestCaseList
}

// descriptor is the wire form pushed onto the per-language queue.
type descriptor struct {
	JobID     string              `json:"jobId"`
	Mode      string              `json:"mode"`
	Language  string              `json:"language"`
	Code      string              `json:"code"`
	ProblemID string              `json:"problemId,omitempty"`
	TestCases models.TestCaseList `json:"testCases"`
}

// PollResult is the verdict surface returned to pollers.
type PollResult struct {
	Status  string                `json:"status"`
	Mode    string                `json:"mode"`
	Score   int                   `json:"score"`
	Passed  int                   `json:"passed"`
	Total   int                   `json:"total"`
	Results models.TestResultList `json:"results"`
}

func jobKey(jobID string) string {
	return "job:" + jobID
}

func queueKey(language, mode string) string {
	return fmt.Sprintf("code_jobs:%s:%s", language, mode)
}

// Enqueue validates the request, writes the job hash and pushes the
// descriptor onto code_jobs:<language>:<mode>. Returns the new jobId.
func (c *Client) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	if strings.TrimSpace(req.Code) == "" {
		return "", errors.New("code is required")
	}
	req.Language = strings.ToLower(req.Language)
	if !supportedLanguages[req.Language] {
		return "", fmt.Errorf("language %q is not supported", req.Language)
	}
	if req.TestCases == nil {
		return "", errors.New("testCases is required")
	}
	if req.Mode != ModeRun && req.Mode != ModeSubmit {
		return "", fmt.Errorf("unknown mode %q", req.Mode)
	}
	if req.Mode == ModeSubmit && req.ProblemID == "" {
		return "", errors.New("problemId is required for submissions")
	}

	jobID := uuid.NewString()
	key := jobKey(jobID)

	fields := map[string]any{
		"status":     StatusQueued,
		"mode":       req.Mode,
		"language":   req.Language,
		"code":       req.Code,
		"user_id":    req.UserID,
		"created_at": time.Now().Format(time.RFC3339),
	}
	if req.ProblemID != "" {
		fields["problem_id"] = req.ProblemID
	}
	if err := c.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return "", fmt.Errorf("write job hash: %w", err)
	}
	if err := c.rdb.Expire(ctx, key, enqueueTTL).Err(); err != nil {
		log.Printf("[JUDGE] Failed to bound TTL for job %s: %v", jobID, err)
	}

	payload, err := json.Marshal(descriptor{
		JobID:     jobID,
		Mode:      req.Mode,
		Language:  req.Language,
		Code:      req.Code,
		ProblemID: req.ProblemID,
		TestCases: req.TestCases,
	})
	if err != nil {
		return "", err
	}
	if err := c.rdb.RPush(ctx, queueKey(req.Language, req.Mode), payload).Err(); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	log.Printf("[JUDGE] Job %s queued (%s/%s)", jobID, req.Language, req.Mode)
	return jobID, nil
}

// Poll reads the job hash. Unfinished jobs answer with their status
// only. The first poll that observes a completed submit job wins the
// persisted flag and inserts the Solution; every poll of a finished job
// refreshes the hash TTL.
func (c *Client) Poll(ctx context.Context, jobID string) (*PollResult, error) {
	key := jobKey(jobID)
	fields, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read job hash: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}

	status := fields["status"]
	if status != StatusCompleted {
		return &PollResult{Status: status}, nil
	}

	res := &PollResult{
		Status: status,
		Mode:   fields["mode"],
		Score:  atoiOrZero(fields["score"]),
		Passed: atoiOrZero(fields["passed"]),
		Total:  atoiOrZero(fields["total"]),
	}
	if raw := fields["results"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &res.Results); err != nil {
			log.Printf("[JUDGE] Bad results payload on job %s: %v", jobID, err)
		}
	}

	if res.Mode == ModeSubmit && fields["persisted"] != "true" {
		c.persistOnce(ctx, jobID, key, fields, res)
	}

	ttl := runTTL
	if res.Mode == ModeSubmit {
		ttl = submitTTL
	}
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		log.Printf("[JUDGE] Failed to refresh TTL for job %s: %v", jobID, err)
	}

	return res, nil
}

// persistOnce inserts the Solution for a completed submit job. HSetNX on
// the persisted flag is the guard: exactly one concurrent poller wins
// it. A failed insert clears the flag so a later poll can retry.
func (c *Client) persistOnce(ctx context.Context, jobID, key string, fields map[string]string, res *PollResult) {
	won, err := c.rdb.HSetNX(ctx, key, "persisted", "true").Result()
	if err != nil {
		log.Printf("[JUDGE] Persist guard failed for job %s: %v", jobID, err)
		return
	}
	if !won {
		return
	}

	sol := &models.Solution{
		ID:             uuid.NewString(),
		UserID:         fields["user_id"],
		ProblemID:      fields["problem_id"],
		SolutionCode:   fields["code"],
		LanguageUsed:   fields["language"],
		Score:          res.Score,
		MaxScore:       res.Total * 100,
		TestResults:    res.Results,
		TimeOccupied:   atofOrZero(fields["time_occupied"]),
		MemoryOccupied: atofOrZero(fields["memory_occupied"]),
		CreatedAt:      time.Now(),
	}
	if err := c.store.CreateSolution(ctx, sol); err != nil {
		log.Printf("[JUDGE] Failed to persist solution for job %s: %v", jobID, err)
		if derr := c.rdb.HDel(ctx, key, "persisted").Err(); derr != nil {
			log.Printf("[JUDGE] Failed to release persist guard for job %s: %v", jobID, derr)
		}
		return
	}
	log.Printf("[JUDGE] Solution persisted for job %s (user=%s problem=%s score=%d)",
		jobID, sol.UserID, sol.ProblemID, sol.Score)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func atofOrZero(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
