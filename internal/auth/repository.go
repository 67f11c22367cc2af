package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expo-venue/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, role, COALESCE(department,''), gender, grad_date, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var role, gender string
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &role,
		&u.Department, &gender, &u.GradDate, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.ParseRole(role)
	u.Gender = models.ParseGender(gender)
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// List returns all users for admin use (roster assignment, check-in desk).
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, full_name, role, COALESCE(department,''), gender, grad_date, created_at
		 FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		var role, gender string
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &role, &u.Department, &gender, &u.GradDate, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = models.ParseRole(role)
		u.Gender = models.ParseGender(gender)
		list = append(list, u)
	}
	return list, rows.Err()
}

// CreateUserParams holds optional profile fields for registration.
type CreateUserParams struct {
	Department string
	Gender     models.Gender
	GradDate   *time.Time
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, profile *CreateUserParams) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, role, department, gender, grad_date)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7)
		RETURNING ` + userColumns
	dep := ""
	gender := models.GenderNotDisclosed
	var gradDate *time.Time
	if profile != nil {
		dep, gender, gradDate = profile.Department, profile.Gender, profile.GradDate
	}
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, fullName, string(role), dep, string(gender), gradDate))
}
