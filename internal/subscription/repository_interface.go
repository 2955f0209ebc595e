package subscription

import (
	"context"
	"time"

	"gymflow/internal/plan"
	"gymflow/internal/user"
)

type Repository interface {
	// WithTx runs fn in one transaction; an error from fn rolls back every
	// write made through tx.
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error

	GetByID(ctx context.Context, id int) (*View, error)
	ListByUser(ctx context.Context, userID int, includeRejected bool) ([]View, error)
	List(ctx context.Context, f ListFilter) ([]View, int, error)
	ListAudit(ctx context.Context, subscriptionID int) ([]AuditEntry, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]View, error)
}

// TxRepository is the store as seen from inside a lifecycle transaction.
type TxRepository interface {
	LockUser(ctx context.Context, userID int) (*user.User, error)
	GetPlan(ctx context.Context, planID int) (*plan.Plan, error)
	HasOpen(ctx context.Context, userID int) (bool, error)
	LockByID(ctx context.Context, id int) (*Subscription, error)
	Create(ctx context.Context, s *Subscription) error
	Update(ctx context.Context, s *Subscription) error
	AppendAudit(ctx context.Context, e *AuditEntry) error
	SetMembershipStatus(ctx context.Context, userID int, status, causedBy string) error
}
