package posters

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expo-venue/backend/internal/models"
)

// Repository handles poster persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a posters repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a poster row after the object landed in S3.
func (r *Repository) Create(ctx context.Context, p *models.Poster) error {
	const query = `INSERT INTO posters (project_id, s3_key, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, p.ProjectID, p.S3Key, p.ContentType, p.SizeBytes, p.UploadedBy).
		Scan(&p.ID, &p.CreatedAt)
}

// GetByID returns a poster by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Poster, error) {
	const query = `SELECT id, project_id, s3_key, content_type, size_bytes, uploaded_by, created_at
		FROM posters WHERE id = $1`
	var p models.Poster
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.ProjectID, &p.S3Key, &p.ContentType, &p.SizeBytes, &p.UploadedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByProject returns a project's posters newest first.
func (r *Repository) ListByProject(ctx context.Context, projectID int64) ([]models.Poster, error) {
	const query = `SELECT id, project_id, s3_key, content_type, size_bytes, uploaded_by, created_at
		FROM posters WHERE project_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Poster
	for rows.Next() {
		var p models.Poster
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.S3Key, &p.ContentType, &p.SizeBytes, &p.UploadedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Delete removes a poster row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM posters WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
