package plan

import (
	"time"

	"github.com/lib/pq"
)

type Plan struct {
	ID             int            `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Description    string         `db:"description" json:"description"`
	DurationMonths int            `db:"duration_months" json:"duration_months"`
	Price          Money          `db:"price_cents" json:"price"`
	Features       pq.StringArray `db:"features" json:"features"`
	IsActive       bool           `db:"is_active" json:"is_active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

type CreatePlanRequest struct {
	Name           string   `json:"name" binding:"required,min=2,max=100"`
	Description    string   `json:"description" binding:"max=500"`
	DurationMonths int      `json:"duration_months" binding:"required,min=1,max=120"`
	Price          Money    `json:"price" binding:"gte=0"`
	Features       []string `json:"features" binding:"omitempty,dive,max=200"`
	IsActive       *bool    `json:"is_active"`
}

// UpdatePlanRequest carries only the fields being changed.
type UpdatePlanRequest struct {
	Name           *string  `json:"name" binding:"omitempty,min=2,max=100"`
	Description    *string  `json:"description" binding:"omitempty,max=500"`
	DurationMonths *int     `json:"duration_months" binding:"omitempty,min=1,max=120"`
	Price          *Money   `json:"price" binding:"omitempty,gte=0"`
	Features       []string `json:"features" binding:"omitempty,dive,max=200"`
	IsActive       *bool    `json:"is_active"`
}
