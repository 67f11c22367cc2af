package models

import (
	"time"

	"github.com/google/uuid"
)

// Announcement is a venue-wide message pushed to observers as a notification.
type Announcement struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
