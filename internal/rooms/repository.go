package rooms

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expo-venue/backend/internal/models"
)

// Repository handles room schedule and roster persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a rooms repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roomColumns = `id, project_id, title, starts_at, duration_minutes, meeting_id, attendee_pw, moderator_pw, ended, created_by, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }, r *models.Room) error {
	return row.Scan(&r.ID, &r.ProjectID, &r.Title, &r.StartsAt, &r.DurationMinutes,
		&r.MeetingID, &r.AttendeePW, &r.ModeratorPW, &r.Ended, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
}

// Create inserts a new room.
func (r *Repository) Create(ctx context.Context, room *models.Room) error {
	const q = `INSERT INTO rooms (project_id, title, starts_at, duration_minutes, meeting_id, attendee_pw, moderator_pw, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, room.ProjectID, room.Title, room.StartsAt, room.DurationMinutes,
		room.MeetingID, room.AttendeePW, room.ModeratorPW, room.CreatedBy).
		Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
}

// GetByID returns a room by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id), &room)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListByDate returns rooms whose start falls on the given day in the given
// location, ordered by start time. Ordering here fixes the ordering of the
// occupancy results.
func (r *Repository) ListByDate(ctx context.Context, day time.Time, loc *time.Location) ([]models.Room, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE starts_at >= $1 AND starts_at < $2 ORDER BY starts_at, id`,
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Room
	for rows.Next() {
		var room models.Room
		if err := scanRoom(rows, &room); err != nil {
			return nil, err
		}
		list = append(list, room)
	}
	return list, rows.Err()
}

// ListOverdue returns non-ended rooms whose scheduled end passed before the
// given instant. Used by the worker sweep.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time) ([]models.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms
		 WHERE ended = FALSE AND starts_at + duration_minutes * INTERVAL '1 minute' < $1
		 ORDER BY starts_at`,
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Room
	for rows.Next() {
		var room models.Room
		if err := scanRoom(rows, &room); err != nil {
			return nil, err
		}
		list = append(list, room)
	}
	return list, rows.Err()
}

// MarkEnded flags a room's meeting as ended.
func (r *Repository) MarkEnded(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE rooms SET ended = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// Update updates room fields (title, starts_at, duration_minutes).
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title string, startsAt *time.Time, durationMinutes *int) error {
	const q = `UPDATE rooms SET title = $1,
		starts_at = COALESCE($2, starts_at),
		duration_minutes = COALESCE($3, duration_minutes),
		updated_at = NOW() WHERE id = $4`
	_, err := r.pool.Exec(ctx, q, title, startsAt, durationMinutes, id)
	return err
}

// Delete removes a room by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	return err
}

// AddRosterEntry associates a user with a room.
func (r *Repository) AddRosterEntry(ctx context.Context, roomID, userID uuid.UUID) error {
	const q = `INSERT INTO roster_entries (room_id, user_id) VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, roomID, userID)
	return err
}

// ListRosterByRoom returns the authoritative roster for a room, joined to users
// for demographics.
func (r *Repository) ListRosterByRoom(ctx context.Context, roomID uuid.UUID) ([]models.RosterEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT re.user_id, re.room_id, u.full_name, u.role, COALESCE(u.department,''), u.gender, u.grad_date
		 FROM roster_entries re JOIN users u ON u.id = re.user_id
		 WHERE re.room_id = $1 ORDER BY u.full_name`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.RosterEntry
	for rows.Next() {
		var e models.RosterEntry
		var role, gender string
		if err := rows.Scan(&e.UserID, &e.RoomID, &e.FullName, &role, &e.Department, &gender, &e.GradDate); err != nil {
			return nil, err
		}
		e.Role = models.ParseRole(role)
		e.Gender = models.ParseGender(gender)
		list = append(list, e)
	}
	return list, rows.Err()
}

// IsProjectMember reports whether a user belongs to a project. Used to decide
// whether a present student researcher is presenting their own project.
func (r *Repository) IsProjectMember(ctx context.Context, userID uuid.UUID, projectID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, projectID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// LogLiveJoin records that a join URL was issued to a user for a room. These
// rows are the live source for daily participation statistics.
func (r *Repository) LogLiveJoin(ctx context.Context, roomID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO live_joins (room_id, user_id, joined_at) VALUES ($1, $2, NOW())`,
		roomID, userID)
	return err
}
