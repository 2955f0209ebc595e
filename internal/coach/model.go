package coach

import (
	"time"

	"gymflow/internal/api"
	"gymflow/internal/user"
)

const dateLayout = "2006-01-02"

// Contact is the public view of either side of an assignment.
type Contact struct {
	ID     int     `db:"id" json:"id"`
	Name   string  `db:"name" json:"name"`
	Email  string  `db:"email" json:"email"`
	Phone  *string `db:"phone" json:"phone,omitempty"`
	Role   string  `db:"role" json:"role,omitempty"`
	Status string  `db:"status" json:"status,omitempty"`
}

func contactOf(u *user.User) Contact {
	return Contact{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role, Status: u.Status}
}

type Assignment struct {
	ID           int       `db:"id" json:"id"`
	CoachID      int       `db:"coach_id" json:"coach_id"`
	UserID       int       `db:"user_id" json:"user_id"`
	AssignedDate time.Time `db:"assigned_date" json:"assigned_date"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	Notes        string    `db:"notes" json:"notes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Coach  Contact `db:"coach" json:"coach"`
	Member Contact `db:"member" json:"user"`
}

type CreateRequest struct {
	CoachID      int    `json:"coach_id" binding:"required,min=1"`
	UserID       int    `json:"user_id" binding:"required,min=1"`
	AssignedDate string `json:"assigned_date" binding:"omitempty,datetime=2006-01-02"`
	Notes        string `json:"notes" binding:"max=1000"`
}

// UpdateRequest carries only the fields being changed.
type UpdateRequest struct {
	CoachID      *int    `json:"coach_id" binding:"omitempty,min=1"`
	UserID       *int    `json:"user_id" binding:"omitempty,min=1"`
	AssignedDate *string `json:"assigned_date" binding:"omitempty,datetime=2006-01-02"`
	IsActive     *bool   `json:"is_active"`
	Notes        *string `json:"notes" binding:"omitempty,max=1000"`
}

type ListFilter struct {
	IsActive *bool `form:"is_active"`
	CoachID  int   `form:"coach_id" binding:"omitempty,min=1"`
	UserID   int   `form:"user_id" binding:"omitempty,min=1"`
	Page     int   `form:"page" binding:"omitempty,min=1"`
	Limit    int   `form:"limit" binding:"omitempty,min=1,max=100"`
}

type Page struct {
	Assignments []Assignment   `json:"assignments"`
	Pagination  api.Pagination `json:"pagination"`
}
