package plan

import (
	"context"
	"fmt"

	"gymflow/internal/apperr"
	"gymflow/internal/db"

	"github.com/jmoiron/sqlx"
)

const planColumns = `id, name, description, duration_months, price_cents, features, is_active, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Plan) error {
	query := `
		INSERT INTO subscription_plans (name, description, duration_months, price_cents, features, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		p.Name, p.Description, p.DurationMonths, p.Price, p.Features, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return apperr.Conflict("Subscription plan with this name already exists")
		}
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY price_cents, id`

	plans := []Plan{}
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Plan, error) {
	return Lookup(ctx, r.db, id)
}

func (r *repository) Update(ctx context.Context, p *Plan) error {
	query := `
		UPDATE subscription_plans
		SET name = $1, description = $2, duration_months = $3, price_cents = $4,
		    features = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		p.Name, p.Description, p.DurationMonths, p.Price, p.Features, p.IsActive, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		switch {
		case db.IsNoRows(err):
			return apperr.NotFound("Subscription plan not found")
		case db.IsUniqueViolation(err, ""):
			return apperr.Conflict("Subscription plan with this name already exists")
		}
		return fmt.Errorf("update plan %d: %w", p.ID, err)
	}
	return nil
}

func (r *repository) DeleteUnreferenced(ctx context.Context, id int) (int, error) {
	var open int
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		// Row lock keeps new subscriptions (which read the plan FOR SHARE) out
		// until the delete commits.
		if _, err := get(ctx, tx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1 FOR UPDATE`, id); err != nil {
			return err
		}

		err := tx.GetContext(ctx, &open, `
			SELECT COUNT(*) FROM subscriptions
			WHERE plan_id = $1 AND confirmation_status IN ('pending', 'confirmed')
		`, id)
		if err != nil {
			return fmt.Errorf("count plan subscriptions: %w", err)
		}
		if open > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM subscription_plans WHERE id = $1`, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return apperr.Validation("Cannot delete plan with subscription history. Deactivate the plan instead.")
			}
			return fmt.Errorf("delete plan %d: %w", id, err)
		}
		return nil
	})
	return open, err
}

// Lookup reads a plan through q, which may be a transaction.
func Lookup(ctx context.Context, q sqlx.QueryerContext, id int) (*Plan, error) {
	return get(ctx, q, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id)
}

// LockForShare reads a plan inside tx and blocks its deletion until tx ends.
func LockForShare(ctx context.Context, tx sqlx.QueryerContext, id int) (*Plan, error) {
	return get(ctx, tx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1 FOR SHARE`, id)
}

func get(ctx context.Context, q sqlx.QueryerContext, query string, id int) (*Plan, error) {
	var p Plan
	if err := sqlx.GetContext(ctx, q, &p, query, id); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("Subscription plan not found")
		}
		return nil, fmt.Errorf("get plan %d: %w", id, err)
	}
	return &p, nil
}
