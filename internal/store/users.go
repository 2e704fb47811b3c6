package store

import (
	"context"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

const userColumns = `id, username, email, password_hash, rating, games_played, contest_games_played, created_at`

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, rating, games_played, contest_games_played, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Rating, u.GamesPlayed, u.ContestGamesPlayed)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "user "+id)
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if err != nil {
		return nil, notFound(err, "user "+username)
	}
	return &u, nil
}

// ApplyDuelRating records a duel result: the player's new rating plus one
// more ranked game.
func (s *Store) ApplyDuelRating(ctx context.Context, userID string, newRating int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET rating = $2, games_played = games_played + 1 WHERE id = $1
	`, userID, newRating)
	if err != nil {
		return err
	}
	return ensureRow(res, "user "+userID)
}

// ApplyContestRating records a contest settlement for one participant.
func (s *Store) ApplyContestRating(ctx context.Context, userID string, newRating int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET rating = $2, contest_games_played = contest_games_played + 1 WHERE id = $1
	`, userID, newRating)
	if err != nil {
		return err
	}
	return ensureRow(res, "user "+userID)
}

// IncrementRating bumps the user's rating by delta without touching game
// counters. Used by the first-solve bonus on contest submissions.
func (s *Store) IncrementRating(ctx context.Context, userID string, delta int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET rating = rating + $2 WHERE id = $1
	`, userID, delta)
	if err != nil {
		return err
	}
	return ensureRow(res, "user "+userID)
}

// AddSolvedProblem marks the problem solved for the user. The returned
// bool is true only for the call that actually inserted the row, so
// concurrent callers can agree on a single first solve.
func (s *Store) AddSolvedProblem(ctx context.Context, userID, problemID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO solved_problems (user_id, problem_id, solved_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, problem_id) DO NOTHING
	`, userID, problemID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListSolvedProblemIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT problem_id FROM solved_problems WHERE user_id = $1 ORDER BY solved_at
	`, userID)
	return ids, err
}
