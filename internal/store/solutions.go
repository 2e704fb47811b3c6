package store

import (
	"context"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

const solutionColumns = `id, user_id, contest_id, problem_id, solution_code, language_used, score, max_score, test_results, time_occupied, memory_occupied, time_given, created_at`

// CreateSolution inserts a submission attempt. Solutions are insert-only.
func (s *Store) CreateSolution(ctx context.Context, sol *models.Solution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO solutions (id, user_id, contest_id, problem_id, solution_code, language_used, score, max_score, test_results, time_occupied, memory_occupied, time_given, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
	`, sol.ID, sol.UserID, sol.ContestID, sol.ProblemID, sol.SolutionCode, sol.LanguageUsed,
		sol.Score, sol.MaxScore, sol.TestResults, sol.TimeOccupied, sol.MemoryOccupied, sol.TimeGiven)
	return err
}

// LatestSolution returns the user's most recent attempt on a problem
// across all contexts.
func (s *Store) LatestSolution(ctx context.Context, userID, problemID string) (*models.Solution, error) {
	var sol models.Solution
	err := s.db.GetContext(ctx, &sol, `
		SELECT `+solutionColumns+` FROM solutions
		WHERE user_id = $1 AND problem_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, problemID)
	if err != nil {
		return nil, notFound(err, "solution")
	}
	return &sol, nil
}

// LatestContestSolution returns the user's most recent attempt on a
// problem within one contest.
func (s *Store) LatestContestSolution(ctx context.Context, userID, problemID, contestID string) (*models.Solution, error) {
	var sol models.Solution
	err := s.db.GetContext(ctx, &sol, `
		SELECT `+solutionColumns+` FROM solutions
		WHERE user_id = $1 AND problem_id = $2 AND contest_id = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, problemID, contestID)
	if err != nil {
		return nil, notFound(err, "solution")
	}
	return &sol, nil
}
