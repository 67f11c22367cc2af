package models

import (
	"time"

	"github.com/google/uuid"
)

// Room is a time-boxed session mapped 1:1 to a meeting on the external
// conferencing service. MeetingID is the external meeting identifier.
type Room struct {
	ID              uuid.UUID  `json:"id"`
	ProjectID       int64      `json:"project_id"`
	Title           string     `json:"title"`
	StartsAt        time.Time  `json:"starts_at"`
	DurationMinutes int        `json:"duration_minutes"`
	MeetingID       string     `json:"meeting_id"`
	AttendeePW      string     `json:"-"`
	ModeratorPW     string     `json:"-"`
	Ended           bool       `json:"ended"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EndsAt returns the scheduled end of the room.
func (r *Room) EndsAt() time.Time {
	return r.StartsAt.Add(time.Duration(r.DurationMinutes) * time.Minute)
}

// RosterEntry is a user's authoritative association with a room.
type RosterEntry struct {
	UserID     uuid.UUID  `json:"user_id"`
	RoomID     uuid.UUID  `json:"room_id"`
	FullName   string     `json:"full_name"`
	Role       Role       `json:"role"`
	Department string     `json:"department,omitempty"`
	Gender     Gender     `json:"gender"`
	GradDate   *time.Time `json:"grad_date,omitempty"`
}

// OccupancyResult is the per-room occupancy classification. It is derived on
// each status request and never persisted. Error carries the upstream failure
// message when reconciliation for this room failed; counts are zero in that
// case.
type OccupancyResult struct {
	RoomID                     uuid.UUID `json:"room_id"`
	Title                      string    `json:"title"`
	CompanyRepCount            int       `json:"company_rep_count"`
	GeneralUserCount           int       `json:"general_user_count"`
	HasActiveStudentResearcher bool      `json:"has_active_student_researcher"`
	Error                      string    `json:"error,omitempty"`
}
