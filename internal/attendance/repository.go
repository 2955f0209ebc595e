package attendance

import (
	"context"
	"fmt"

	"gymflow/internal/apperr"
	"gymflow/internal/db"
	"gymflow/internal/user"

	"github.com/jmoiron/sqlx"
)

const openVisitIndex = "attendance_one_open_per_user"

const recordSelect = `
	SELECT a.id, a.user_id, u.name AS user_name, a.check_in_time, a.check_out_time,
	       a.recorded_by, a.notes, a.created_at
	FROM attendance a
	JOIN users u ON u.id = a.user_id`

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

func (r *repository) ListForUser(ctx context.Context, userID, limit, offset int) ([]Record, error) {
	records := []Record{}
	err := r.db.SelectContext(ctx, &records, recordSelect+`
		WHERE a.user_id = $1
		ORDER BY a.check_in_time DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	for i := range records {
		records[i].setDuration()
	}
	return records, nil
}

type txRepository struct {
	tx *sqlx.Tx
}

// LockUser serializes check-ins and check-outs of one member.
func (t *txRepository) LockUser(ctx context.Context, userID int) (*user.User, error) {
	return user.LockForUpdate(ctx, t.tx, userID)
}

func (t *txRepository) OpenVisit(ctx context.Context, userID int) (*Record, error) {
	var rec Record
	err := t.tx.GetContext(ctx, &rec, recordSelect+` WHERE a.user_id = $1 AND a.check_out_time IS NULL`, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open visit: %w", err)
	}
	return &rec, nil
}

func (t *txRepository) Insert(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO attendance (user_id, recorded_by, notes)
		VALUES ($1, $2, $3)
		RETURNING id, check_in_time, created_at
	`

	err := t.tx.QueryRowxContext(ctx, query, rec.UserID, rec.RecordedBy, rec.Notes).
		Scan(&rec.ID, &rec.CheckInTime, &rec.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, openVisitIndex) {
			return apperr.Conflict("User is already checked in")
		}
		return fmt.Errorf("check in: %w", err)
	}
	return nil
}

func (t *txRepository) Close(ctx context.Context, rec *Record) error {
	err := t.tx.QueryRowxContext(ctx, `
		UPDATE attendance
		SET check_out_time = NOW(), notes = $1
		WHERE id = $2 AND check_out_time IS NULL
		RETURNING check_out_time
	`, rec.Notes, rec.ID).Scan(&rec.CheckOutTime)
	if err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound("No active check-in found for this user")
		}
		return fmt.Errorf("check out: %w", err)
	}
	return nil
}
