package judge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

const defaultPollInterval = 500 * time.Millisecond

// Evaluator scores duel submissions by routing them through the judge
// pipeline and waiting for the verdict. It satisfies the arena's
// evaluator contract.
type Evaluator struct {
	client   *Client
	timeout  time.Duration
	interval time.Duration
}

func NewEvaluator(client *Client, timeout time.Duration) *Evaluator {
	return &Evaluator{client: client, timeout: timeout, interval: defaultPollInterval}
}

// Evaluate enqueues a submit job for the duel problem and polls until
// the workers finish it. Polling runs on its own deadline rather than
// the caller's context so the Solution row is recorded even when the
// submitting session drops mid-evaluation.
func (ev *Evaluator) Evaluate(ctx context.Context, userID string, problem *models.Problem, code, language string) (int, int, error) {
	jobID, err := ev.client.Enqueue(ctx, EnqueueRequest{
		Mode:      ModeSubmit,
		Language:  judgeLanguage(language),
		Code:      code,
		UserID:    userID,
		ProblemID: problem.ID,
		TestCases: problem.TestCases,
	})
	if err != nil {
		return 0, 0, err
	}

	pollCtx, cancel := context.WithTimeout(context.Background(), ev.timeout)
	defer cancel()

	ticker := time.NewTicker(ev.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pollCtx.Done():
			return 0, 0, fmt.Errorf("evaluation timed out for job %s", jobID)
		case <-ticker.C:
			res, err := ev.client.Poll(pollCtx, jobID)
			if err != nil {
				if errors.Is(err, ErrJobNotFound) {
					return 0, 0, err
				}
				log.Printf("[JUDGE] Poll failed for job %s, retrying: %v", jobID, err)
				continue
			}
			switch res.Status {
			case StatusCompleted:
				return res.Score, res.Passed, nil
			case StatusFailed:
				return 0, 0, fmt.Errorf("execution failed for job %s", jobID)
			}
		}
	}
}

// judgeLanguage maps duel languages onto the deployed worker pools. C
// submissions run on the C++ toolchain.
func judgeLanguage(language string) string {
	if language == "c" {
		return "cpp"
	}
	return language
}
