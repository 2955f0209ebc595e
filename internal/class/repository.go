package class

import (
	"context"
	"fmt"
	"strings"

	"gymflow/internal/apperr"
	"gymflow/internal/db"
	"gymflow/internal/user"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const registrationUniqueConstraint = "class_registrations_class_id_user_id_key"

const classSelect = `
	SELECT c.id, c.name, c.description, c.coach_id, co.name AS coach_name, c.capacity,
	       c.duration_minutes, c.schedule_time, c.schedule_days, c.price_cents, c.status, c.is_active,
	       c.created_at, c.updated_at
	FROM classes c
	LEFT JOIN users co ON co.id = c.coach_id`

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

func (r *repository) GetByID(ctx context.Context, id int) (*Class, error) {
	return getClass(ctx, r.db, classSelect+` WHERE c.id = $1`, id)
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Class, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("c.is_active = $%d", len(args)))
	}
	if f.CoachID > 0 {
		args = append(args, f.CoachID)
		where = append(where, fmt.Sprintf("c.coach_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("(c.name ILIKE $%[1]d OR c.description ILIKE $%[1]d)", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM classes c`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	query := classSelect + clause +
		fmt.Sprintf(` ORDER BY c.name, c.id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	classes, err := selectClasses(ctx, r.db, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return classes, total, nil
}

func (r *repository) ListJoined(ctx context.Context, userID int) ([]Class, error) {
	return selectClasses(ctx, r.db, classSelect+`
		WHERE EXISTS (SELECT 1 FROM class_registrations r WHERE r.class_id = c.id AND r.user_id = $1)
		ORDER BY c.name, c.id
	`, userID)
}

func (r *repository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete class %d: %w", id, err)
	}
	if n == 0 {
		return apperr.NotFound("Class not found")
	}
	return nil
}

type txRepository struct {
	tx *sqlx.Tx
}

// Lock holds the class row until the transaction ends. Registrations are
// read after the lock, so the count cannot change underneath the caller.
func (t *txRepository) Lock(ctx context.Context, id int) (*Class, error) {
	return getClass(ctx, t.tx, classSelect+` WHERE c.id = $1 FOR UPDATE OF c`, id)
}

func (t *txRepository) GetUser(ctx context.Context, id int) (*user.User, error) {
	return user.Lookup(ctx, t.tx, id)
}

func (t *txRepository) Insert(ctx context.Context, c *Class) error {
	query := `
		INSERT INTO classes (name, description, coach_id, capacity, duration_minutes,
		                     schedule_time, schedule_days, price_cents, status, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := t.tx.QueryRowxContext(ctx, query,
		c.Name, c.Description, c.CoachID, c.Capacity, c.DurationMinutes,
		c.ScheduleTime, c.ScheduleDays, c.Price, c.Status, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Validation("Coach not found or invalid role")
		}
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

func (t *txRepository) Update(ctx context.Context, c *Class) error {
	query := `
		UPDATE classes
		SET name = $1, description = $2, coach_id = $3, capacity = $4, duration_minutes = $5,
		    schedule_time = $6, schedule_days = $7, price_cents = $8, status = $9, is_active = $10,
		    updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at
	`

	err := t.tx.QueryRowxContext(ctx, query,
		c.Name, c.Description, c.CoachID, c.Capacity, c.DurationMinutes,
		c.ScheduleTime, c.ScheduleDays, c.Price, c.Status, c.IsActive, c.ID,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update class %d: %w", c.ID, err)
	}
	return nil
}

func (t *txRepository) AddRegistrant(ctx context.Context, reg *Registrant) error {
	query := `
		INSERT INTO class_registrations (class_id, user_id, name, email, booking_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING registered_at
	`

	err := t.tx.QueryRowxContext(ctx, query,
		reg.ClassID, reg.UserID, reg.Name, reg.Email, reg.BookingDate, reg.Notes,
	).Scan(&reg.RegisteredAt)
	if err != nil {
		if db.IsUniqueViolation(err, registrationUniqueConstraint) {
			return apperr.Conflict("You are already registered for this class")
		}
		return fmt.Errorf("add registrant: %w", err)
	}
	return nil
}

func (t *txRepository) RemoveRegistrant(ctx context.Context, classID, userID int) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM class_registrations WHERE class_id = $1 AND user_id = $2`,
		classID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("remove registrant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove registrant: %w", err)
	}
	return n > 0, nil
}

func getClass(ctx context.Context, q sqlx.QueryerContext, query string, id int) (*Class, error) {
	var c Class
	if err := sqlx.GetContext(ctx, q, &c, query, id); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("Class not found")
		}
		return nil, fmt.Errorf("get class %d: %w", id, err)
	}

	classes := []Class{c}
	if err := attachRegistrants(ctx, q, classes); err != nil {
		return nil, err
	}
	return &classes[0], nil
}

func selectClasses(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]Class, error) {
	classes := []Class{}
	if err := sqlx.SelectContext(ctx, q, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	if err := attachRegistrants(ctx, q, classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// attachRegistrants loads the registrants of every class in one query.
func attachRegistrants(ctx context.Context, q sqlx.QueryerContext, classes []Class) error {
	if len(classes) == 0 {
		return nil
	}

	ids := make([]int64, len(classes))
	for i, c := range classes {
		ids[i] = int64(c.ID)
	}

	var regs []Registrant
	err := sqlx.SelectContext(ctx, q, &regs, `
		SELECT class_id, user_id, name, email, registered_at, booking_date, notes
		FROM class_registrations
		WHERE class_id = ANY($1)
		ORDER BY registered_at, id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list registrants: %w", err)
	}

	byClass := make(map[int][]Registrant, len(classes))
	for _, reg := range regs {
		byClass[reg.ClassID] = append(byClass[reg.ClassID], reg)
	}
	for i := range classes {
		classes[i].setRegistrants(byClass[classes[i].ID])
	}
	return nil
}
