package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleStudentResearcher Role = "student_researcher"
	RoleAdvisor           Role = "advisor"
	RoleCompanyRep        Role = "company_rep"
	RoleGeneral           Role = "general"
)

// ParseRole maps a stored role string to its enum value, falling back to general.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleStudentResearcher, RoleAdvisor, RoleCompanyRep, RoleGeneral:
		return Role(s)
	default:
		return RoleGeneral
	}
}

// Gender is the self-reported gender of a participant.
type Gender string

const (
	GenderMale         Gender = "male"
	GenderFemale       Gender = "female"
	GenderNotDisclosed Gender = "not_disclosed"
)

// ParseGender maps a stored gender string to its enum value. Anything that is
// not an exact male/female match counts as not disclosed.
func ParseGender(s string) Gender {
	switch Gender(s) {
	case GenderMale, GenderFemale:
		return Gender(s)
	default:
		return GenderNotDisclosed
	}
}

// User represents a platform user.
type User struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Password   string     `json:"-"`
	FullName   string     `json:"full_name"`
	Role       Role       `json:"role"`
	Department string     `json:"department,omitempty"`
	Gender     Gender     `json:"gender"`
	GradDate   *time.Time `json:"grad_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Role       Role       `json:"role"`
	Department string     `json:"department,omitempty"`
	Gender     Gender     `json:"gender"`
	GradDate   *time.Time `json:"grad_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		Department: u.Department,
		Gender:     u.Gender,
		GradDate:   u.GradDate,
		CreatedAt:  u.CreatedAt,
	}
}
