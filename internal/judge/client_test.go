package judge

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

type fakeSolutionStore struct {
	mu        sync.Mutex
	solutions []*models.Solution
	failures  int
}

func (f *fakeSolutionStore) CreateSolution(ctx context.Context, sol *models.Solution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("insert failed")
	}
	f.solutions = append(f.solutions, sol)
	return nil
}

func (f *fakeSolutionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.solutions)
}

func newTestClient(t *testing.T) (*Client, *redis.Client, *miniredis.Miniredis, *fakeSolutionStore) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := &fakeSolutionStore{}
	return NewClient(rdb, store), rdb, srv, store
}

func sampleCases() models.TestCaseList {
	return models.TestCaseList{
		{Input: "1 2", ExpectedOutput: "3"},
		{Input: "2 3", ExpectedOutput: "5"},
	}
}

func seedFinishedJob(t *testing.T, srv *miniredis.Miniredis, mode string, score, passed, total int) string {
	t.Helper()
	jobID := uuid.NewString()
	key := jobKey(jobID)
	results, err := json.Marshal(models.TestResultList{
		{Input: "1 2", ExpectedOutput: "3", ActualOutput: "3", Status: "Passed"},
	})
	if err != nil {
		t.Fatalf("marshal results: %v", err)
	}
	srv.HSet(key,
		"status", StatusCompleted,
		"mode", mode,
		"language", "python",
		"code", "print(sum(map(int, input().split())))",
		"user_id", "user-1",
		"problem_id", "prob-1",
		"score", strconv.Itoa(score),
		"passed", strconv.Itoa(passed),
		"total", strconv.Itoa(total),
		"results", string(results),
	)
	srv.SetTTL(key, time.Hour)
	return jobID
}

func TestEnqueueWritesJobAndQueue(t *testing.T) {
	client, rdb, srv, _ := newTestClient(t)
	ctx := context.Background()

	jobID, err := client.Enqueue(ctx, EnqueueRequest{
		Mode:      ModeSubmit,
		Language:  "Python",
		Code:      "print(1)",
		UserID:    "user-1",
		ProblemID: "prob-1",
		TestCases: sampleCases(),
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	key := jobKey(jobID)
	if got := srv.HGet(key, "status"); got != StatusQueued {
		t.Errorf("job status = %q, want %q", got, StatusQueued)
	}
	if got := srv.HGet(key, "language"); got != "python" {
		t.Errorf("language should be lowercased, got %q", got)
	}
	if ttl := srv.TTL(key); ttl != enqueueTTL {
		t.Errorf("fresh job TTL = %v, want %v", ttl, enqueueTTL)
	}

	raw, err := rdb.LPop(ctx, queueKey("python", ModeSubmit)).Result()
	if err != nil {
		t.Fatalf("descriptor not queued: %v", err)
	}
	var desc descriptor
	if err := json.Unmarshal([]byte(raw), &desc); err != nil {
		t.Fatalf("bad descriptor: %v", err)
	}
	if desc.JobID != jobID || desc.ProblemID != "prob-1" || len(desc.TestCases) != 2 {
		t.Errorf("descriptor = %+v, want jobId %s with 2 test cases", desc, jobID)
	}
}

func TestEnqueueRejectsBadRequests(t *testing.T) {
	client, _, _, _ := newTestClient(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  EnqueueRequest
	}{
		{"empty code", EnqueueRequest{Mode: ModeRun, Language: "python", Code: "  ", TestCases: sampleCases()}},
		{"unsupported language", EnqueueRequest{Mode: ModeRun, Language: "cobol", Code: "x", TestCases: sampleCases()}},
		{"missing test cases", EnqueueRequest{Mode: ModeRun, Language: "python", Code: "x"}},
		{"unknown mode", EnqueueRequest{Mode: "grade", Language: "python", Code: "x", TestCases: sampleCases()}},
		{"submit without problem", EnqueueRequest{Mode: ModeSubmit, Language: "python", Code: "x", TestCases: sampleCases()}},
	}
	for _, tc := range cases {
		if _, err := client.Enqueue(ctx, tc.req); err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}
}

func TestSupportedLanguage(t *testing.T) {
	for _, lang := range []string{"python", "Python", "CPP", "java", "javascript"} {
		if !SupportedLanguage(lang) {
			t.Errorf("SupportedLanguage(%q) = false, want true", lang)
		}
	}
	// "c" runs on the cpp workers but only through the duel evaluator's
	// aliasing, so it is not advertised here.
	for _, lang := range []string{"", "c", "cobol", "go"} {
		if SupportedLanguage(lang) {
			t.Errorf("SupportedLanguage(%q) = true, want false", lang)
		}
	}
}

func TestPollUnknownJob(t *testing.T) {
	client, _, _, _ := newTestClient(t)

	_, err := client.Poll(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestPollReportsInterimStatus(t *testing.T) {
	client, _, srv, store := newTestClient(t)
	jobID := uuid.NewString()
	srv.HSet(jobKey(jobID), "status", "running", "mode", ModeSubmit)

	res, err := client.Poll(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if res.Status != StatusRunning {
		t.Errorf("status = %q, want %q", res.Status, StatusRunning)
	}
	if res.Results != nil || res.Score != 0 {
		t.Errorf("interim poll should carry no verdict, got %+v", res)
	}
	if store.count() != 0 {
		t.Error("interim poll must not persist a solution")
	}
}

func TestPollPersistsSubmitVerdictOnce(t *testing.T) {
	client, _, srv, store := newTestClient(t)
	ctx := context.Background()
	jobID := seedFinishedJob(t, srv, ModeSubmit, 80, 4, 5)

	for i := 0; i < 5; i++ {
		res, err := client.Poll(ctx, jobID)
		if err != nil {
			t.Fatalf("poll %d failed: %v", i, err)
		}
		if res.Status != StatusCompleted || res.Score != 80 || res.Passed != 4 || res.Total != 5 {
			t.Errorf("poll %d verdict = %+v, want completed 80/4/5", i, res)
		}
		if len(res.Results) != 1 {
			t.Errorf("poll %d results length = %d, want 1", i, len(res.Results))
		}
		if ttl := srv.TTL(jobKey(jobID)); ttl != submitTTL {
			t.Errorf("poll %d TTL = %v, want %v", i, ttl, submitTTL)
		}
	}

	if store.count() != 1 {
		t.Fatalf("solutions persisted = %d, want exactly 1", store.count())
	}
	sol := store.solutions[0]
	if sol.UserID != "user-1" || sol.ProblemID != "prob-1" {
		t.Errorf("solution attribution = %s/%s, want user-1/prob-1", sol.UserID, sol.ProblemID)
	}
	if sol.Score != 80 || sol.MaxScore != 500 {
		t.Errorf("solution score = %d/%d, want 80/500", sol.Score, sol.MaxScore)
	}
	if sol.LanguageUsed != "python" || len(sol.TestResults) != 1 {
		t.Errorf("solution detail = %q with %d results, want python with 1", sol.LanguageUsed, len(sol.TestResults))
	}
}

func TestPollConcurrentPersistOnce(t *testing.T) {
	client, _, srv, store := newTestClient(t)
	jobID := seedFinishedJob(t, srv, ModeSubmit, 100, 1, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Poll(context.Background(), jobID); err != nil {
				t.Errorf("concurrent poll failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if store.count() != 1 {
		t.Errorf("solutions persisted = %d, want exactly 1", store.count())
	}
}

func TestPollRunVerdictNotPersisted(t *testing.T) {
	client, _, srv, store := newTestClient(t)
	jobID := seedFinishedJob(t, srv, ModeRun, 100, 1, 1)

	res, err := client.Poll(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if res.Score != 100 {
		t.Errorf("score = %d, want 100", res.Score)
	}
	if store.count() != 0 {
		t.Error("run verdicts must not persist solutions")
	}
	if ttl := srv.TTL(jobKey(jobID)); ttl != runTTL {
		t.Errorf("TTL = %v, want %v", ttl, runTTL)
	}
}

func TestPollRetriesFailedInsert(t *testing.T) {
	client, _, srv, store := newTestClient(t)
	store.failures = 1
	ctx := context.Background()
	jobID := seedFinishedJob(t, srv, ModeSubmit, 60, 3, 5)

	if _, err := client.Poll(ctx, jobID); err != nil {
		t.Fatalf("first poll failed: %v", err)
	}
	if store.count() != 0 {
		t.Fatal("insert should have failed on the first poll")
	}
	if srv.HGet(jobKey(jobID), "persisted") == "true" {
		t.Fatal("persist guard should be released after a failed insert")
	}

	if _, err := client.Poll(ctx, jobID); err != nil {
		t.Fatalf("second poll failed: %v", err)
	}
	if store.count() != 1 {
		t.Errorf("solutions persisted = %d, want 1 after retry", store.count())
	}
}

func TestEvaluatorReturnsVerdict(t *testing.T) {
	client, rdb, _, store := newTestClient(t)
	ev := NewEvaluator(client, 2*time.Second)
	ev.interval = 10 * time.Millisecond

	problem := &models.Problem{ID: "prob-1", TestCases: sampleCases()}

	type verdict struct {
		score  int
		passed int
		err    error
	}
	done := make(chan verdict, 1)
	go func() {
		score, passed, err := ev.Evaluate(context.Background(), "user-1", problem, "print(1)", "python")
		done <- verdict{score, passed, err}
	}()

	desc := popDescriptor(t, rdb, queueKey("python", ModeSubmit))
	finishJob(t, rdb, desc.JobID, "200", "2", "2")

	select {
	case v := <-done:
		if v.err != nil {
			t.Fatalf("Evaluate failed: %v", v.err)
		}
		if v.score != 200 || v.passed != 2 {
			t.Errorf("verdict = %d/%d, want 200/2", v.score, v.passed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("evaluator never returned")
	}

	if store.count() != 1 {
		t.Errorf("duel verdicts should persist a solution, got %d", store.count())
	}
}

func TestEvaluatorReportsWorkerFailure(t *testing.T) {
	client, rdb, _, _ := newTestClient(t)
	ev := NewEvaluator(client, 2*time.Second)
	ev.interval = 10 * time.Millisecond

	problem := &models.Problem{ID: "prob-1", TestCases: sampleCases()}

	done := make(chan error, 1)
	go func() {
		_, _, err := ev.Evaluate(context.Background(), "user-1", problem, "print(1)", "python")
		done <- err
	}()

	desc := popDescriptor(t, rdb, queueKey("python", ModeSubmit))
	if err := rdb.HSet(context.Background(), jobKey(desc.JobID), "status", StatusFailed).Err(); err != nil {
		t.Fatalf("mark job failed: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected an error for a failed job")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("evaluator never returned")
	}
}

func TestEvaluatorRunsCOnCppWorkers(t *testing.T) {
	client, rdb, _, _ := newTestClient(t)
	ev := NewEvaluator(client, 2*time.Second)
	ev.interval = 10 * time.Millisecond

	problem := &models.Problem{ID: "prob-1", TestCases: sampleCases()}

	done := make(chan error, 1)
	go func() {
		_, _, err := ev.Evaluate(context.Background(), "user-1", problem, "int main(){}", "c")
		done <- err
	}()

	desc := popDescriptor(t, rdb, queueKey("cpp", ModeSubmit))
	if desc.Language != "cpp" {
		t.Errorf("descriptor language = %q, want cpp", desc.Language)
	}
	finishJob(t, rdb, desc.JobID, "0", "0", "2")

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("evaluator never returned")
	}
}

func popDescriptor(t *testing.T, rdb *redis.Client, queue string) descriptor {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(time.Second)
	for {
		raw, err := rdb.LPop(ctx, queue).Result()
		if err == nil {
			var desc descriptor
			if err := json.Unmarshal([]byte(raw), &desc); err != nil {
				t.Fatalf("bad descriptor: %v", err)
			}
			return desc
		}
		if !errors.Is(err, redis.Nil) {
			t.Fatalf("pop descriptor: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("no descriptor appeared on the queue")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func finishJob(t *testing.T, rdb *redis.Client, jobID, score, passed, total string) {
	t.Helper()
	results, err := json.Marshal(models.TestResultList{
		{Input: "1 2", ExpectedOutput: "3", ActualOutput: "3", Status: "Passed"},
		{Input: "2 3", ExpectedOutput: "5", ActualOutput: "5", Status: "Passed"},
	})
	if err != nil {
		t.Fatalf("marshal results: %v", err)
	}
	err = rdb.HSet(context.Background(), jobKey(jobID), map[string]any{
		"status":  StatusCompleted,
		"score":   score,
		"passed":  passed,
		"total":   total,
		"results": string(results),
	}).Err()
	if err != nil {
		t.Fatalf("finish job: %v", err)
	}
}
