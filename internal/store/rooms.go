package store

import (
	"context"

	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

// SaveRoom upserts the full room document. The engine owns live room
// state in memory and writes through on every transition.
func (s *Store) SaveRoom(ctx context.Context, room *models.Room) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, problem_id, users, status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			users = EXCLUDED.users,
			status = EXCLUDED.status,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`, room.ID, room.ProblemID, room.Users, room.Status, room.IsActive, room.CreatedAt, room.UpdatedAt)
	return err
}
