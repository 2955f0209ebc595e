package coach

import (
	"context"
	"fmt"
	"strings"

	"gymflow/internal/apperr"
	"gymflow/internal/db"
	"gymflow/internal/user"

	"github.com/jmoiron/sqlx"
)

const activePairConstraint = "coach_assignments_one_active_pair"

const assignmentSelect = `
	SELECT a.id, a.coach_id, a.user_id, a.assigned_date, a.is_active, a.notes, a.created_at, a.updated_at,
	       co.id AS "coach.id", co.name AS "coach.name", co.email AS "coach.email", co.phone AS "coach.phone",
	       co.role AS "coach.role", co.status AS "coach.status",
	       m.id AS "member.id", m.name AS "member.name", m.email AS "member.email", m.phone AS "member.phone",
	       m.role AS "member.role", m.status AS "member.status"
	FROM coach_assignments a
	JOIN users co ON co.id = a.coach_id
	JOIN users m ON m.id = a.user_id`

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

func (r *repository) GetByID(ctx context.Context, id int) (*Assignment, error) {
	return getAssignment(ctx, r.db, assignmentSelect+` WHERE a.id = $1`, id)
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Assignment, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("a.is_active = $%d", len(args)))
	}
	if f.CoachID > 0 {
		args = append(args, f.CoachID)
		where = append(where, fmt.Sprintf("a.coach_id = $%d", len(args)))
	}
	if f.UserID > 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("a.user_id = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM coach_assignments a`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count coach assignments: %w", err)
	}

	query := assignmentSelect + clause +
		fmt.Sprintf(` ORDER BY a.assigned_date DESC, a.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	list := []Assignment{}
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list coach assignments: %w", err)
	}
	return list, total, nil
}

func (r *repository) ActiveFor(ctx context.Context, userID int) (*Assignment, error) {
	return getAssignment(ctx, r.db, assignmentSelect+`
		WHERE a.user_id = $1 AND a.is_active
		ORDER BY a.assigned_date DESC, a.id DESC
		LIMIT 1
	`, userID)
}

func (r *repository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coach_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coach assignment %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete coach assignment %d: %w", id, err)
	}
	if n == 0 {
		return apperr.NotFound("Coach assignment not found")
	}
	return nil
}

type txRepository struct {
	tx *sqlx.Tx
}

func (t *txRepository) Lock(ctx context.Context, id int) (*Assignment, error) {
	return getAssignment(ctx, t.tx, assignmentSelect+` WHERE a.id = $1 FOR UPDATE OF a`, id)
}

func (t *txRepository) GetUser(ctx context.Context, id int) (*user.User, error) {
	return user.Lookup(ctx, t.tx, id)
}

func (t *txRepository) Insert(ctx context.Context, a *Assignment) error {
	query := `
		INSERT INTO coach_assignments (coach_id, user_id, assigned_date, is_active, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := t.tx.QueryRowxContext(ctx, query,
		a.CoachID, a.UserID, a.AssignedDate, a.IsActive, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, activePairConstraint) {
			return duplicatePair()
		}
		return fmt.Errorf("create coach assignment: %w", err)
	}
	return nil
}

func (t *txRepository) Update(ctx context.Context, a *Assignment) error {
	query := `
		UPDATE coach_assignments
		SET coach_id = $1, user_id = $2, assigned_date = $3, is_active = $4, notes = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`

	err := t.tx.QueryRowxContext(ctx, query,
		a.CoachID, a.UserID, a.AssignedDate, a.IsActive, a.Notes, a.ID,
	).Scan(&a.UpdatedAt)
	if err != nil {
		switch {
		case db.IsNoRows(err):
			return apperr.NotFound("Coach assignment not found")
		case db.IsUniqueViolation(err, activePairConstraint):
			return duplicatePair()
		}
		return fmt.Errorf("update coach assignment %d: %w", a.ID, err)
	}
	return nil
}

func duplicatePair() error {
	return apperr.Conflict("Active assignment already exists between this coach and user")
}

func getAssignment(ctx context.Context, q sqlx.QueryerContext, query string, arg int) (*Assignment, error) {
	var a Assignment
	if err := sqlx.GetContext(ctx, q, &a, query, arg); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("Coach assignment not found")
		}
		return nil, fmt.Errorf("get coach assignment: %w", err)
	}
	return &a, nil
}
