package coach

import (
	"context"

	"gymflow/internal/user"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error

	GetByID(ctx context.Context, id int) (*Assignment, error)
	List(ctx context.Context, f ListFilter) ([]Assignment, int, error)
	// ActiveFor returns the member's most recent active assignment, or
	// NotFound when no coach is assigned.
	ActiveFor(ctx context.Context, userID int) (*Assignment, error)
	Delete(ctx context.Context, id int) error
}

type TxRepository interface {
	Lock(ctx context.Context, id int) (*Assignment, error)
	GetUser(ctx context.Context, id int) (*user.User, error)
	Insert(ctx context.Context, a *Assignment) error
	Update(ctx context.Context, a *Assignment) error
}
