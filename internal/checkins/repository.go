package checkins

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expo-venue/backend/internal/models"
)

// Repository handles in-person check-in persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a check-ins repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a check-in record.
func (r *Repository) Create(ctx context.Context, ci *models.CheckIn) error {
	const query = `INSERT INTO checkins (user_id, full_name, role, major, gender, grad_date, attendee_count)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING id, checked_in_at`
	return r.pool.QueryRow(ctx, query,
		ci.UserID, ci.FullName, ci.Role, ci.Major, ci.Gender, ci.GradDate, ci.Count).
		Scan(&ci.ID, &ci.CheckedInAt)
}

// ListByDate returns the check-ins whose checked_in_at falls on the given day
// in loc, oldest first.
func (r *Repository) ListByDate(ctx context.Context, day time.Time, loc *time.Location) ([]models.CheckIn, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	const query = `SELECT id, user_id, full_name, role, COALESCE(major, ''), gender, grad_date, attendee_count, checked_in_at
		FROM checkins
		WHERE checked_in_at >= $1 AND checked_in_at < $2
		ORDER BY checked_in_at, id`
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.CheckIn
	for rows.Next() {
		var ci models.CheckIn
		if err := rows.Scan(&ci.ID, &ci.UserID, &ci.FullName, &ci.Role, &ci.Major,
			&ci.Gender, &ci.GradDate, &ci.Count, &ci.CheckedInAt); err != nil {
			return nil, err
		}
		list = append(list, ci)
	}
	return list, rows.Err()
}
