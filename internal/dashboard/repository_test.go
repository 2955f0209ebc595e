package dashboard

import (
	"context"
	"regexp"
	"testing"
	"time"

	"gymflow/internal/plan"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })

	return NewRepository(sqlxDB), mock
}

func TestRepository_Today(t *testing.T) {
	repo, mock := setupMock(t)
	from := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance WHERE check_in_time >= $1 AND check_in_time < $2")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"check_ins", "currently_checked_in", "pending_subscriptions"}).AddRow(12, 3, 2))

	today, err := repo.Today(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, Today{CheckIns: 12, CurrentlyCheckedIn: 3, PendingSubscriptions: 2}, *today)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MembersByStatus(t *testing.T) {
	repo, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE role = 'member'")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("active", 40).AddRow("pending_subscription", 5))

	counts, err := repo.MembersByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []StatusCount{{Status: "active", Count: 40}, {Status: "pending_subscription", Count: 5}}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RevenueByPlan(t *testing.T) {
	repo, mock := setupMock(t)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("s.confirmation_status = 'confirmed' AND s.created_at >= $1 AND s.created_at < $2")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"plan_id", "plan_name", "subscriptions", "revenue_cents"}).
			AddRow(1, "Monthly", 2, int64(5998)))

	rows, err := repo.RevenueByPlan(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, plan.Money(5998), rows[0].Revenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ClassFill(t *testing.T) {
	repo, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN class_registrations r ON r.class_id = c.id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "registered"}).AddRow(1, "Spin", 10, 0))

	classes, err := repo.ClassFill(context.Background())
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, 0, classes[0].Registered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_TotalsError(t *testing.T) {
	repo, mock := setupMock(t)
	on := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM coach_assignments WHERE is_active")).
		WithArgs(on).
		WillReturnError(assert.AnError)

	_, err := repo.Totals(context.Background(), on)
	assert.ErrorIs(t, err, assert.AnError)
}
