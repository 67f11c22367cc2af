package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckIn is an in-person check-in at the venue desk. Walk-ins carry their
// demographics inline; UserID is set only when the attendee has an account.
// Count > 1 represents a batched check-in (e.g. a group signed in together).
type CheckIn struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	FullName    string     `json:"full_name"`
	Role        Role       `json:"role"`
	Major       string     `json:"major,omitempty"`
	Gender      Gender     `json:"gender"`
	GradDate    *time.Time `json:"grad_date,omitempty"`
	Count       int        `json:"count"`
	CheckedInAt time.Time  `json:"checked_in_at"`
}
