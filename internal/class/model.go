package class

import (
	"time"

	"gymflow/internal/api"
	"gymflow/internal/plan"
	"gymflow/internal/user"

	"github.com/lib/pq"
)

const (
	StatusAvailable = "available"
	StatusFull      = "full"
	StatusCancelled = "cancelled"
)

type Class struct {
	ID              int            `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Description     string         `db:"description" json:"description"`
	CoachID         *int           `db:"coach_id" json:"coach_id"`
	CoachName       *string        `db:"coach_name" json:"coach_name,omitempty"`
	Capacity        int            `db:"capacity" json:"capacity"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	ScheduleTime    *string        `db:"schedule_time" json:"schedule_time"`
	ScheduleDays    pq.StringArray `db:"schedule_days" json:"schedule_days"`
	Price           plan.Money     `db:"price_cents" json:"price"`
	Status          string         `db:"status" json:"status"`
	IsActive        bool           `db:"is_active" json:"is_active"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	RegisteredUsers []Registrant `db:"-" json:"registered_users"`
	RegisteredCount int          `db:"-" json:"registered_count"`
	AvailableSpots  int          `db:"-" json:"available_spots"`
}

// Registrant is one member booked into a class. Its JSON id is the user id.
type Registrant struct {
	ClassID      int        `db:"class_id" json:"-"`
	UserID       int        `db:"user_id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	RegisteredAt time.Time  `db:"registered_at" json:"registered_at"`
	BookingDate  *time.Time `db:"booking_date" json:"booking_date"`
	Notes        string     `db:"notes" json:"notes"`
}

// setRegistrants replaces the registrant list and recomputes the derived
// counters from it.
func (c *Class) setRegistrants(list []Registrant) {
	if list == nil {
		list = []Registrant{}
	}
	c.RegisteredUsers = list
	c.RegisteredCount = len(list)
	c.derive()
}

func (c *Class) derive() {
	c.AvailableSpots = c.Capacity - c.RegisteredCount
	if c.AvailableSpots < 0 {
		c.AvailableSpots = 0
	}
}

func (c *Class) IsRegistered(userID int) bool {
	for _, r := range c.RegisteredUsers {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// CanJoin reports whether u could book a spot right now.
func (c *Class) CanJoin(u *user.User) bool {
	return !c.IsRegistered(u.ID) &&
		c.IsActive &&
		c.Status == StatusAvailable &&
		u.Status == user.StatusActive &&
		c.AvailableSpots > 0
}

// statusFor is the booking status implied by count registrants.
func (c *Class) statusFor(count int) string {
	if c.Status == StatusCancelled {
		return StatusCancelled
	}
	if count >= c.Capacity {
		return StatusFull
	}
	return StatusAvailable
}

// Actor is the authenticated caller of a class operation.
type Actor struct {
	ID   int
	Role string
}

type CreateRequest struct {
	Name            string     `json:"name" binding:"required,min=2,max=255"`
	Description     string     `json:"description" binding:"max=1000"`
	CoachID         *int       `json:"coach_id" binding:"omitempty,min=1"`
	Capacity        int        `json:"capacity" binding:"omitempty,min=1,max=100"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,min=15,max=240"`
	ScheduleTime    string     `json:"schedule_time"`
	ScheduleDays    []string   `json:"schedule_days"`
	Price           plan.Money `json:"price" binding:"gte=0"`
}

type UpdateRequest struct {
	Name            *string     `json:"name" binding:"omitempty,min=2,max=255"`
	Description     *string     `json:"description" binding:"omitempty,max=1000"`
	CoachID         *int        `json:"coach_id" binding:"omitempty,min=1"`
	Capacity        *int        `json:"capacity" binding:"omitempty,min=1,max=100"`
	DurationMinutes *int        `json:"duration_minutes" binding:"omitempty,min=15,max=240"`
	ScheduleTime    *string     `json:"schedule_time"`
	ScheduleDays    []string    `json:"schedule_days"`
	Price           *plan.Money `json:"price" binding:"omitempty,gte=0"`
	IsActive        *bool       `json:"is_active"`
}

type CapacityRequest struct {
	Capacity int `json:"capacity" binding:"required,min=1,max=100"`
}

type JoinRequest struct {
	BookingDate string `json:"booking_date" binding:"omitempty,datetime=2006-01-02"`
	Notes       string `json:"notes" binding:"max=500"`
}

type LeaveRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

type ListFilter struct {
	IsActive *bool  `form:"is_active"`
	CoachID  int    `form:"coach_id" binding:"omitempty,min=1"`
	Search   string `form:"search" binding:"max=100"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type Page struct {
	Classes    []Class        `json:"classes"`
	Pagination api.Pagination `json:"pagination"`
}
