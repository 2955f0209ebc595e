package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Today(ctx context.Context, from, to time.Time) (*Today, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM attendance WHERE check_in_time >= $1 AND check_in_time < $2) AS check_ins,
			(SELECT COUNT(*) FROM attendance WHERE check_out_time IS NULL) AS currently_checked_in,
			(SELECT COUNT(*) FROM subscriptions WHERE confirmation_status = 'pending') AS pending_subscriptions
	`

	var t Today
	if err := r.db.GetContext(ctx, &t, query, from, to); err != nil {
		return nil, fmt.Errorf("today rollup: %w", err)
	}
	return &t, nil
}

func (r *repository) Totals(ctx context.Context, on time.Time) (*Totals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role IN ('staff', 'coach') AND status = 'active') AS active_staff,
			(SELECT COUNT(*) FROM subscriptions
			 WHERE confirmation_status = 'confirmed' AND start_date <= $1 AND end_date >= $1) AS active_subscriptions,
			(SELECT COUNT(*) FROM coach_assignments WHERE is_active) AS coach_assignments
	`

	var t Totals
	if err := r.db.GetContext(ctx, &t, query, on); err != nil {
		return nil, fmt.Errorf("totals rollup: %w", err)
	}
	return &t, nil
}

func (r *repository) MembersByStatus(ctx context.Context) ([]StatusCount, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM users
		WHERE role = 'member'
		GROUP BY status
		ORDER BY status
	`

	counts := []StatusCount{}
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("members by status: %w", err)
	}
	return counts, nil
}

func (r *repository) RevenueByPlan(ctx context.Context, from, to time.Time) ([]PlanRevenue, error) {
	query := `
		SELECT p.id AS plan_id, p.name AS plan_name, COUNT(*) AS subscriptions,
		       SUM(s.amount_cents)::BIGINT AS revenue_cents
		FROM subscriptions s
		JOIN subscription_plans p ON p.id = s.plan_id
		WHERE s.confirmation_status = 'confirmed' AND s.created_at >= $1 AND s.created_at < $2
		GROUP BY p.id, p.name
		ORDER BY revenue_cents DESC, p.id
	`

	rows := []PlanRevenue{}
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("revenue by plan: %w", err)
	}
	return rows, nil
}

func (r *repository) ClassFill(ctx context.Context) ([]ClassFill, error) {
	query := `
		SELECT c.id, c.name, c.capacity, COUNT(r.id) AS registered
		FROM classes c
		LEFT JOIN class_registrations r ON r.class_id = c.id
		WHERE c.is_active AND c.status <> 'cancelled'
		GROUP BY c.id, c.name, c.capacity
		ORDER BY c.name, c.id
	`

	classes := []ClassFill{}
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("class fill: %w", err)
	}
	return classes, nil
}
