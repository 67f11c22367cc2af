package announcements

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expo-venue/backend/internal/models"
)

// Repository handles announcement persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an announcements repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new announcement.
func (r *Repository) Create(ctx context.Context, a *models.Announcement) error {
	const query = `INSERT INTO announcements (id, title, body, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, a.Title, a.Body, a.CreatedBy).
		Scan(&a.ID, &a.CreatedAt)
}

// List returns announcements newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]models.Announcement, error) {
	const query = `SELECT id, title, body, created_by, created_at
		FROM announcements ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Announcement
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Delete removes an announcement.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM announcements WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
