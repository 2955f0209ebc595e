package notification

import "time"

const (
	CategorySubscription      = "subscription"
	CategoryPayment           = "payment"
	CategoryClass             = "class"
	CategoryGeneral           = "general"
	CategoryEmailVerification = "email_verification"
)

type Notification struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
