package attendance

import (
	"context"

	"gymflow/internal/user"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error
	ListForUser(ctx context.Context, userID, limit, offset int) ([]Record, error)
}

// TxRepository sees the visits of a user whose row is locked by LockUser.
type TxRepository interface {
	LockUser(ctx context.Context, userID int) (*user.User, error)
	OpenVisit(ctx context.Context, userID int) (*Record, error)
	Insert(ctx context.Context, r *Record) error
	Close(ctx context.Context, r *Record) error
}
