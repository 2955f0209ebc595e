package dashboard

import (
	"context"
	"time"
)

// Repository holds the read-only rollups. Time bounds are half-open: from
// is included, to is not.
type Repository interface {
	Today(ctx context.Context, from, to time.Time) (*Today, error)
	Totals(ctx context.Context, on time.Time) (*Totals, error)
	MembersByStatus(ctx context.Context) ([]StatusCount, error)
	RevenueByPlan(ctx context.Context, from, to time.Time) ([]PlanRevenue, error)
	ClassFill(ctx context.Context) ([]ClassFill, error)
}
