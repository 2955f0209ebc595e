package class

import (
	"context"

	"gymflow/internal/user"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error

	GetByID(ctx context.Context, id int) (*Class, error)
	List(ctx context.Context, f ListFilter) ([]Class, int, error)
	ListJoined(ctx context.Context, userID int) ([]Class, error)
	Delete(ctx context.Context, id int) error
}

// TxRepository works inside one transaction. Every write to a class's
// registrations happens after Lock on that class.
type TxRepository interface {
	Lock(ctx context.Context, id int) (*Class, error)
	GetUser(ctx context.Context, id int) (*user.User, error)
	Insert(ctx context.Context, c *Class) error
	Update(ctx context.Context, c *Class) error
	AddRegistrant(ctx context.Context, r *Registrant) error
	RemoveRegistrant(ctx context.Context, classID, userID int) (bool, error)
}
