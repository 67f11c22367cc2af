package stats

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expo-venue/backend/internal/models"
)

// Repository loads participation source records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a stats repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func dayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour)
}

// ListLiveJoins returns live-join records for the day, joined to users for
// demographics, in join order. Order matters: the aggregator keeps the first
// record per user.
func (r *Repository) ListLiveJoins(ctx context.Context, day time.Time, loc *time.Location) ([]Record, error) {
	start, end := dayBounds(day, loc)
	rows, err := r.pool.Query(ctx,
		`SELECT lj.user_id, u.role, COALESCE(u.department,''), u.gender, u.grad_date, lj.joined_at
		 FROM live_joins lj JOIN users u ON u.id = lj.user_id
		 WHERE lj.joined_at >= $1 AND lj.joined_at < $2
		 ORDER BY lj.joined_at, lj.id`,
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Record
	for rows.Next() {
		var rec Record
		var role, gender string
		if err := rows.Scan(&rec.UserID, &role, &rec.Department, &gender, &rec.GradDate, &rec.JoinedAt); err != nil {
			return nil, err
		}
		rec.Role = models.ParseRole(role)
		rec.Gender = models.ParseGender(gender)
		rec.Count = 1
		list = append(list, rec)
	}
	return list, rows.Err()
}

// ListCheckIns returns in-person check-in records for the day. Desk records
// encode the department as major.
func (r *Repository) ListCheckIns(ctx context.Context, day time.Time, loc *time.Location) ([]Record, error) {
	start, end := dayBounds(day, loc)
	rows, err := r.pool.Query(ctx,
		`SELECT COALESCE(user_id::text,''), role, COALESCE(major,''), gender, grad_date, attendee_count, checked_in_at
		 FROM checkins
		 WHERE checked_in_at >= $1 AND checked_in_at < $2
		 ORDER BY checked_in_at, id`,
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Record
	for rows.Next() {
		var rec Record
		var role, gender string
		if err := rows.Scan(&rec.UserID, &role, &rec.Major, &gender, &rec.GradDate, &rec.Count, &rec.JoinedAt); err != nil {
			return nil, err
		}
		rec.Role = models.ParseRole(role)
		rec.Gender = models.ParseGender(gender)
		list = append(list, rec)
	}
	return list, rows.Err()
}
