package subscription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/db"
	"gymflow/internal/plan"
	"gymflow/internal/user"

	"github.com/jmoiron/sqlx"
)

const openSubscriptionIndex = "subscriptions_one_open_per_user"

const subscriptionColumns = `id, user_id, plan_id, payment_method, payment_status, confirmation_status,
	confirmed_by, start_date, end_date, frozen_until, frozen_reason, amount_cents, notes, created_at, updated_at`

const viewSelect = `
	SELECT s.id, s.user_id, s.plan_id, s.payment_method, s.payment_status, s.confirmation_status,
	       s.confirmed_by, s.start_date, s.end_date, s.frozen_until, s.frozen_reason, s.amount_cents,
	       s.notes, s.created_at, s.updated_at,
	       p.name AS plan_name, p.duration_months, u.name AS user_name, u.email AS user_email
	FROM subscriptions s
	JOIN subscription_plans p ON p.id = s.plan_id
	JOIN users u ON u.id = s.user_id`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

func (r *repository) GetByID(ctx context.Context, id int) (*View, error) {
	var v View
	if err := r.db.GetContext(ctx, &v, viewSelect+` WHERE s.id = $1`, id); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("Subscription not found")
		}
		return nil, fmt.Errorf("get subscription %d: %w", id, err)
	}
	return &v, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int, includeRejected bool) ([]View, error) {
	query := viewSelect + ` WHERE s.user_id = $1`
	if !includeRejected {
		query += ` AND s.confirmation_status <> 'rejected'`
	}
	query += ` ORDER BY s.created_at DESC, s.id DESC`

	list := []View{}
	if err := r.db.SelectContext(ctx, &list, query, userID); err != nil {
		return nil, fmt.Errorf("list user subscriptions: %w", err)
	}
	return list, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]View, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ConfirmationStatus != "" {
		add("s.confirmation_status = $%d", f.ConfirmationStatus)
	}
	if f.PaymentStatus != "" {
		add("s.payment_status = $%d", f.PaymentStatus)
	}
	if f.UserID > 0 {
		add("s.user_id = $%d", f.UserID)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM subscriptions s`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}

	query := viewSelect + clause +
		fmt.Sprintf(` ORDER BY s.created_at DESC, s.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	list := []View{}
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	return list, total, nil
}

func (r *repository) ListAudit(ctx context.Context, subscriptionID int) ([]AuditEntry, error) {
	entries := []AuditEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, subscription_id, action, performed_by, old_status, new_status, notes, created_at
		FROM subscription_audit
		WHERE subscription_id = $1
		ORDER BY created_at, id
	`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return entries, nil
}

func (r *repository) ListExpiring(ctx context.Context, from, to time.Time) ([]View, error) {
	list := []View{}
	err := r.db.SelectContext(ctx, &list, viewSelect+`
		WHERE s.confirmation_status = 'confirmed'
		  AND s.frozen_until IS NULL AND s.frozen_reason IS NULL
		  AND s.end_date BETWEEN $1 AND $2
		ORDER BY s.end_date, s.id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expiring subscriptions: %w", err)
	}
	return list, nil
}

type txRepository struct {
	tx *sqlx.Tx
}

func (t *txRepository) LockUser(ctx context.Context, userID int) (*user.User, error) {
	return user.LockForUpdate(ctx, t.tx, userID)
}

func (t *txRepository) GetPlan(ctx context.Context, planID int) (*plan.Plan, error) {
	return plan.LockForShare(ctx, t.tx, planID)
}

func (t *txRepository) HasOpen(ctx context.Context, userID int) (bool, error) {
	return db.Exists(ctx, t.tx, `
		SELECT EXISTS(
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND confirmation_status IN ('pending', 'confirmed')
		)
	`, userID)
}

func (t *txRepository) LockByID(ctx context.Context, id int) (*Subscription, error) {
	var s Subscription
	err := t.tx.GetContext(ctx, &s, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("Subscription not found")
		}
		return nil, fmt.Errorf("lock subscription %d: %w", id, err)
	}
	return &s, nil
}

func (t *txRepository) Create(ctx context.Context, s *Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, plan_id, payment_method, payment_status, confirmation_status, amount_cents, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := t.tx.QueryRowxContext(ctx, query,
		s.UserID, s.PlanID, s.PaymentMethod, s.PaymentStatus, s.ConfirmationStatus, s.Amount, s.Notes,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, openSubscriptionIndex) {
			return apperr.Conflict("You already have an active or pending subscription")
		}
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (t *txRepository) Update(ctx context.Context, s *Subscription) error {
	query := `
		UPDATE subscriptions
		SET payment_status = $1, confirmation_status = $2, confirmed_by = $3,
		    start_date = $4, end_date = $5, frozen_until = $6, frozen_reason = $7,
		    notes = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`

	err := t.tx.QueryRowxContext(ctx, query,
		s.PaymentStatus, s.ConfirmationStatus, s.ConfirmedBy,
		s.StartDate, s.EndDate, s.FrozenUntil, s.FrozenReason,
		s.Notes, s.ID,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update subscription %d: %w", s.ID, err)
	}
	return nil
}

// AppendAudit stamps entries with clock_timestamp() so that entries for one
// subscription, written under its row lock, are strictly ordered.
func (t *txRepository) AppendAudit(ctx context.Context, e *AuditEntry) error {
	query := `
		INSERT INTO subscription_audit (subscription_id, action, performed_by, old_status, new_status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp())
		RETURNING id, created_at
	`

	err := t.tx.QueryRowxContext(ctx, query,
		e.SubscriptionID, e.Action, e.PerformedBy, e.OldStatus, e.NewStatus, e.Notes,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (t *txRepository) SetMembershipStatus(ctx context.Context, userID int, status, causedBy string) error {
	return user.SetMembershipStatus(ctx, t.tx, userID, status, causedBy)
}
