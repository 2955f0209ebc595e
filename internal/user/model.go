package user

import (
	"time"

	"gymflow/internal/api"
)

// Membership statuses. Only SetMembershipStatus writes them.
const (
	StatusPendingSubscription = "pending_subscription"
	StatusActive              = "active"
	StatusSuspended           = "suspended"
	StatusExpired             = "expired"
	StatusFrozen              = "frozen"
)

type User struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Role         string    `db:"role" json:"role"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CanTrain reports whether the membership allows class bookings and check-ins.
func (u *User) CanTrain() bool {
	return u.Status == StatusActive || u.Status == StatusFrozen
}

// Contact is the slice of a user that notification fan-out needs.
type Contact struct {
	ID    int    `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

type RegisterRequest struct {
	Name     string  `json:"name" binding:"required,min=2,max=100"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user"`
}

type ListFilter struct {
	Search string `form:"search" binding:"max=100"`
	Role   string `form:"role" binding:"omitempty,oneof=member staff admin coach"`
	Status string `form:"status" binding:"omitempty,oneof=pending_subscription active suspended expired frozen"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type Page struct {
	Users      []User         `json:"users"`
	Pagination api.Pagination `json:"pagination"`
}

// StatusRequest is an admin override of a membership status.
type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending_subscription active suspended expired frozen"`
	Reason string `json:"reason" binding:"max=255"`
}
