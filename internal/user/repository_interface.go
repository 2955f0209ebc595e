package user

import "context"

type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListActiveStaff(ctx context.Context) ([]Contact, error)
	List(ctx context.Context, f ListFilter) ([]User, int, error)
	// OverrideStatus sets the membership status in its own transaction and
	// returns the user as it was before the change.
	OverrideStatus(ctx context.Context, id int, status, causedBy string) (*User, error)
}
