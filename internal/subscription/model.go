package subscription

import (
	"time"

	"gymflow/internal/api"
	"gymflow/internal/plan"
)

const (
	ConfirmationPending   = "pending"
	ConfirmationConfirmed = "confirmed"
	ConfirmationRejected  = "rejected"

	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"

	MethodCash = "cash"
	MethodCard = "card"
)

// Audit actions.
const (
	ActionCreated   = "created"
	ActionConfirmed = "confirmed"
	ActionRejected  = "rejected"
	ActionModified  = "modified"
	ActionFrozen    = "frozen"
	ActionUnfrozen  = "unfrozen"
)

// Status labels that appear only in the audit trail.
const (
	labelFrozen                = "frozen"
	labelCancellationRequested = "cancellation_requested"
)

type Subscription struct {
	ID                 int        `db:"id" json:"id"`
	UserID             int        `db:"user_id" json:"user_id"`
	PlanID             int        `db:"plan_id" json:"plan_id"`
	PaymentMethod      string     `db:"payment_method" json:"payment_method"`
	PaymentStatus      string     `db:"payment_status" json:"payment_status"`
	ConfirmationStatus string     `db:"confirmation_status" json:"confirmation_status"`
	ConfirmedBy        *int       `db:"confirmed_by" json:"confirmed_by"`
	StartDate          *time.Time `db:"start_date" json:"start_date"`
	EndDate            *time.Time `db:"end_date" json:"end_date"`
	FrozenUntil        *time.Time `db:"frozen_until" json:"frozen_until"`
	FrozenReason       *string    `db:"frozen_reason" json:"frozen_reason"`
	Amount             plan.Money `db:"amount_cents" json:"amount"`
	Notes              string     `db:"notes" json:"notes"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

func (s Subscription) IsFrozen() bool {
	return s.FrozenUntil != nil || s.FrozenReason != nil
}

// View is a subscription joined with its plan and owner for listings.
type View struct {
	Subscription
	PlanName       string `db:"plan_name" json:"plan_name"`
	DurationMonths int    `db:"duration_months" json:"duration_months"`
	UserName       string `db:"user_name" json:"user_name"`
	UserEmail      string `db:"user_email" json:"user_email"`
}

type AuditEntry struct {
	ID             int       `db:"id" json:"id"`
	SubscriptionID int       `db:"subscription_id" json:"subscription_id"`
	Action         string    `db:"action" json:"action"`
	PerformedBy    int       `db:"performed_by" json:"performed_by"`
	OldStatus      *string   `db:"old_status" json:"old_status"`
	NewStatus      *string   `db:"new_status" json:"new_status"`
	Notes          *string   `db:"notes" json:"notes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type Detail struct {
	View
	Audit []AuditEntry `json:"audit"`
}

type CreateRequest struct {
	PlanID        int    `json:"plan_id" binding:"required,min=1"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=cash card"`
	Notes         string `json:"notes" binding:"max=1000"`
}

type ConfirmRequest struct {
	PaymentStatus string `json:"payment_status" binding:"omitempty,oneof=pending paid failed"`
	StartDate     string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	Notes         string `json:"notes" binding:"max=1000"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

type FreezeRequest struct {
	FrozenUntil  string `json:"frozen_until" binding:"omitempty,datetime=2006-01-02"`
	FrozenReason string `json:"frozen_reason" binding:"max=500"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

type ListFilter struct {
	ConfirmationStatus string `form:"confirmation_status" binding:"omitempty,oneof=pending confirmed rejected"`
	PaymentStatus      string `form:"payment_status" binding:"omitempty,oneof=pending paid failed"`
	UserID             int    `form:"user_id" binding:"omitempty,min=1"`
	Page               int    `form:"page" binding:"omitempty,min=1"`
	Limit              int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type Page struct {
	Subscriptions []View         `json:"subscriptions"`
	Pagination    api.Pagination `json:"pagination"`
}
