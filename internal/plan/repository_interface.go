package plan

import "context"

type Repository interface {
	Create(ctx context.Context, p *Plan) error
	List(ctx context.Context, activeOnly bool) ([]Plan, error)
	GetByID(ctx context.Context, id int) (*Plan, error)
	Update(ctx context.Context, p *Plan) error
	// DeleteUnreferenced removes the plan unless pending or confirmed
	// subscriptions point at it, in which case it returns their count.
	DeleteUnreferenced(ctx context.Context, id int) (int, error)
}
