package store

import (
	"context"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

func (s *Store) CreateContest(ctx context.Context, c *models.Contest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contests (id, title, description, start_time, end_time, problem_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, c.ID, c.Title, c.Description, c.StartTime, c.EndTime, c.ProblemIDs)
	return err
}

func (s *Store) GetContest(ctx context.Context, id string) (*models.Contest, error) {
	var c models.Contest
	err := s.db.GetContext(ctx, &c, `
		SELECT id, title, description, start_time, end_time, problem_ids, created_at
		FROM contests WHERE id = $1
	`, id)
	if err != nil {
		return nil, notFound(err, "contest "+id)
	}
	return &c, nil
}

// GetParticipant loads one participation record. ErrNotFound means the
// user never joined the contest.
func (s *Store) GetParticipant(ctx context.Context, contestID, userID string) (*models.ContestParticipant, error) {
	var p models.ContestParticipant
	err := s.db.GetContext(ctx, &p, `
		SELECT contest_id, user_id, score, problems, joined_at
		FROM contest_participants
		WHERE contest_id = $1 AND user_id = $2
	`, contestID, userID)
	if err != nil {
		return nil, notFound(err, "participant")
	}
	return &p, nil
}

func (s *Store) UpsertParticipant(ctx context.Context, p *models.ContestParticipant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contest_participants (contest_id, user_id, score, problems, joined_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (contest_id, user_id) DO UPDATE SET
			score = EXCLUDED.score,
			problems = EXCLUDED.problems
	`, p.ContestID, p.UserID, p.Score, p.Problems)
	return err
}

// AppendContestSubmission links a solution into the contest's submission
// log.
func (s *Store) AppendContestSubmission(ctx context.Context, contestID, solutionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contest_submissions (contest_id, solution_id, created_at)
		VALUES ($1, $2, NOW())
	`, contestID, solutionID)
	return err
}

// ParticipantRow joins a participation record with the user fields the
// leaderboard and contest settlement need.
type ParticipantRow struct {
	models.ContestParticipant
	Username           string `db:"username"`
	Rating             int    `db:"rating"`
	ContestGamesPlayed int    `db:"contest_games_played"`
}

// ListParticipants returns all participants of a contest in join order.
func (s *Store) ListParticipants(ctx context.Context, contestID string) ([]ParticipantRow, error) {
	var rows []ParticipantRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT cp.contest_id, cp.user_id, cp.score, cp.problems, cp.joined_at,
		       u.username, u.rating, u.contest_games_played
		FROM contest_participants cp
		JOIN users u ON u.id = cp.user_id
		WHERE cp.contest_id = $1
		ORDER BY cp.joined_at ASC
	`, contestID)
	return rows, err
}
