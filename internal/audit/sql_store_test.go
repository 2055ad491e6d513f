package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStoreAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db)
	ts := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO activity_logs").
		WithArgs(sqlmock.AnyArg(), "lead-1", "user-1", "CREATED", []byte(`{"message":"Lead created"}`)).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp"}).AddRow(ts))

	got, err := store.Append(context.Background(), NewEntry("lead-1", "user-1", CreatedDetails{Message: "Lead created"}))
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, ts, got.Timestamp)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreListForLead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db)
	newer := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	rows := sqlmock.NewRows([]string{"id", "lead_id", "user_id", "name", "action", "details", "timestamp"}).
		AddRow("a2", "lead-1", "user-1", "Admin User", "UPDATED", []byte(`{"changes":{"status":"CLOSED"}}`), newer).
		AddRow("a1", "lead-1", nil, "", "CREATED", []byte(`{"message":"Lead created"}`), older)
	mock.ExpectQuery("FROM activity_logs a").
		WithArgs("lead-1", 5).
		WillReturnRows(rows)

	entries, err := store.ListForLead(context.Background(), "lead-1", 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Admin User", entries[0].UserName)
	assert.Equal(t, UpdatedDetails{Changes: map[string]any{"status": "CLOSED"}}, entries[0].Details)
	assert.Empty(t, entries[1].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreListRejectsCorruptDetails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "lead_id", "user_id", "name", "action", "details", "timestamp"}).
		AddRow("a1", "lead-1", "u", "", "CREATED", []byte(`{"changes":{}}`), time.Now())
	mock.ExpectQuery("FROM activity_logs a").WithArgs("lead-1").WillReturnRows(rows)

	_, err = NewSQLStore(db).ListForLead(context.Background(), "lead-1", 0)
	assert.ErrorIs(t, err, ErrInvalidDetails)
}

func TestSQLStoreRecentForLeads(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "lead_id", "user_id", "user_name", "action", "details", "timestamp"}).
		AddRow("a1", "lead-1", "u", "Sales", "CREATED", []byte(`{"message":"Lead created"}`), ts).
		AddRow("b1", "lead-2", "u", "Sales", "CREATED", []byte(`{"message":"Lead created"}`), ts)
	mock.ExpectQuery("ROW_NUMBER").
		WithArgs(sqlmock.AnyArg(), 3).
		WillReturnRows(rows)

	got, err := NewSQLStore(db).RecentForLeads(context.Background(), []string{"lead-1", "lead-2"}, 3)
	require.NoError(t, err)
	assert.Len(t, got["lead-1"], 1)
	assert.Len(t, got["lead-2"], 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreRecentForLeadsEmpty(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	got, err := NewSQLStore(db).RecentForLeads(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLStoreCountForLead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := NewSQLStore(db).CountForLead(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
