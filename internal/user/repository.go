package user

import (
	"context"
	"fmt"
	"strings"

	"gymflow/internal/apperr"
	"gymflow/internal/db"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, name, email, password_hash, phone, role, status, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (name, email, password_hash, phone, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, u.Name, u.Email, u.PasswordHash, u.Phone, u.Role, u.Status).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return apperr.Conflict("Email already registered")
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*User, error) {
	return Lookup(ctx, r.db, id)
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *repository) ListActiveStaff(ctx context.Context) ([]Contact, error) {
	query := `
		SELECT id, name, email
		FROM users
		WHERE role IN ('staff', 'admin') AND status = 'active'
		ORDER BY id
	`

	var staff []Contact
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}
	return staff, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]User, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%[1]d OR email ILIKE $%[1]d OR phone ILIKE $%[1]d)", len(args)))
	}
	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users` + clause +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *repository) OverrideStatus(ctx context.Context, id int, status, causedBy string) (*User, error) {
	var before *User
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		u, err := LockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		before = u
		return SetMembershipStatus(ctx, tx, id, status, causedBy)
	})
	if err != nil {
		return nil, err
	}
	return before, nil
}

// Lookup loads a user through q, which may be a transaction.
func Lookup(ctx context.Context, q sqlx.QueryerContext, id int) (*User, error) {
	return lookup(ctx, q, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// LockForUpdate loads a user and holds its row lock until tx ends.
func LockForUpdate(ctx context.Context, tx sqlx.QueryerContext, id int) (*User, error) {
	return lookup(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func lookup(ctx context.Context, q sqlx.QueryerContext, query string, id int) (*User, error) {
	var u User
	if err := sqlx.GetContext(ctx, q, &u, query, id); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

var membershipStatuses = map[string]bool{
	StatusPendingSubscription: true,
	StatusActive:              true,
	StatusSuspended:           true,
	StatusExpired:             true,
	StatusFrozen:              true,
}

// SetMembershipStatus is the only writer of users.status. Callers pass the
// transaction that carries the change causing it and log the new status once
// that transaction has committed.
func SetMembershipStatus(ctx context.Context, q sqlx.ExecerContext, userID int, status, causedBy string) error {
	if !membershipStatuses[status] {
		return apperr.Validation("Unknown membership status: %s", status)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, userID,
	)
	if err != nil {
		return fmt.Errorf("set membership status (%s): %w", causedBy, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set membership status (%s): %w", causedBy, err)
	}
	if n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
