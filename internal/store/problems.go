package store

import (
	"context"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

const problemColumns = `id, title, description, difficulty, examples, constraints_list, test_cases, max_score, solution, created_at`

func (s *Store) CreateProblem(ctx context.Context, p *models.Problem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO problems (id, title, description, difficulty, examples, constraints_list, test_cases, max_score, solution, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`, p.ID, p.Title, p.Description, p.Difficulty, p.Examples, p.Constraints, p.TestCases, p.MaxScore, p.Solution)
	return err
}

func (s *Store) GetProblem(ctx context.Context, id string) (*models.Problem, error) {
	var p models.Problem
	err := s.db.GetContext(ctx, &p, `SELECT `+problemColumns+` FROM problems WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "problem "+id)
	}
	return &p, nil
}

// RandomProblem picks one problem uniformly for a new duel.
func (s *Store) RandomProblem(ctx context.Context) (*models.Problem, error) {
	var p models.Problem
	err := s.db.GetContext(ctx, &p, `SELECT `+problemColumns+` FROM problems ORDER BY random() LIMIT 1`)
	if err != nil {
		return nil, notFound(err, "problem pool")
	}
	return &p, nil
}

// ListProblems returns the catalog without test cases or canonical
// solutions.
func (s *Store) ListProblems(ctx context.Context) ([]models.Problem, error) {
	var list []models.Problem
	err := s.db.SelectContext(ctx, &list, `
		SELECT id, title, description, difficulty, examples, constraints_list, max_score, created_at
		FROM problems
		ORDER BY created_at
	`)
	return list, err
}
