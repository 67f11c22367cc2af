package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a research project presenting at the venue. Each scheduled room
// belongs to exactly one project.
type Project struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}

// Poster is an S3-backed poster file for a project.
type Poster struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   int64     `json:"project_id"`
	S3Key       string    `json:"s3_key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
