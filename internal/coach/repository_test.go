package coach

import (
	"context"
	"regexp"
	"testing"
	"time"

	"gymflow/internal/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	assignmentColumns = []string{"id", "coach_id", "user_id", "assigned_date", "is_active", "notes", "created_at", "updated_at",
		"coach.id", "coach.name", "coach.email", "coach.phone", "coach.role", "coach.status",
		"member.id", "member.name", "member.email", "member.phone", "member.role", "member.status"}
	userRowColumns = []string{"id", "name", "email", "password_hash", "phone", "role", "status", "created_at", "updated_at"}
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })

	return NewRepository(sqlxDB), mock
}

func assignmentRow(rows *sqlmock.Rows, id, coach, member int, active bool) *sqlmock.Rows {
	now := time.Now()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, coach, member, day, active, "", now, now,
		coach, "Cory", "cory@example.com", nil, "coach", "active",
		member, "Alex", "alex@example.com", "555-0100", "member", "active")
}

func TestRepository_ListFilters(t *testing.T) {
	repo, mock := setupMock(t)
	active := true

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM coach_assignments a WHERE a.is_active = $1 AND a.coach_id = $2")).
		WithArgs(true, coachID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY a.assigned_date DESC, a.id DESC LIMIT $3 OFFSET $4")).
		WithArgs(true, coachID, 10, 0).
		WillReturnRows(assignmentRow(sqlmock.NewRows(assignmentColumns), 5, coachID, memberA, true))

	list, total, err := repo.List(context.Background(), ListFilter{IsActive: &active, CoachID: coachID, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Cory", list[0].Coach.Name)
	assert.Equal(t, "Alex", list[0].Member.Name)
	require.NotNil(t, list[0].Member.Phone)
	assert.Equal(t, "555-0100", *list[0].Member.Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ActiveForNone(t *testing.T) {
	repo, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.user_id = $1 AND a.is_active")).
		WithArgs(memberA).
		WillReturnRows(sqlmock.NewRows(assignmentColumns))

	_, err := repo.ActiveFor(context.Background(), memberA)
	assert.True(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateDuplicatePairRollsBack(t *testing.T) {
	repo, mock := setupMock(t)
	svc := NewService(repo, &fakeSink{})
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(coachID).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(coachID, "Cory", "cory@example.com", "x", nil, "coach", "active", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(memberA).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(memberA, "Alex", "alex@example.com", "x", nil, "member", "active", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO coach_assignments")).
		WithArgs(coachID, memberA, sqlmock.AnyArg(), true, "").
		WillReturnError(&pq.Error{Code: "23505", Constraint: activePairConstraint})
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), CreateRequest{CoachID: coachID, UserID: memberA})
	assert.True(t, apperr.IsConflict(err))
	assert.Contains(t, apperr.Message(err), "Active assignment already exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateLocksRow(t *testing.T) {
	repo, mock := setupMock(t)
	svc := NewService(repo, &fakeSink{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.id = $1 FOR UPDATE OF a")).
		WithArgs(5).
		WillReturnRows(assignmentRow(sqlmock.NewRows(assignmentColumns), 5, coachID, memberA, true))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE coach_assignments")).
		WithArgs(coachID, memberA, sqlmock.AnyArg(), false, "", 5).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	inactive := false
	a, err := svc.Update(context.Background(), 5, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, a.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteMissing(t *testing.T) {
	repo, mock := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM coach_assignments WHERE id = $1")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.True(t, apperr.IsNotFound(repo.Delete(context.Background(), 9)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
