package analytics

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSourceDashboard(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	since := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT count").
		WillReturnRows(pgxmock.NewRows([]string{"total", "sent", "won", "pending"}).AddRow(int64(5), int64(3), int64(1), int64(2)))
	mock.ExpectQuery("SELECT status, count").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("CLOSED", int64(1)).
			AddRow("NEW", int64(4)))
	mock.ExpectQuery("SELECT country, count").WithArgs(TopCountries).
		WillReturnRows(pgxmock.NewRows([]string{"country", "n"}).
			AddRow("India", int64(3)).
			AddRow("Germany", int64(2)))
	mock.ExpectQuery("date_trunc").WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"month", "count"}).
			AddRow(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), int64(5)))

	d, err := newPostgresSourceWithExec(mock).Dashboard(context.Background(), since)
	require.NoError(t, err)

	assert.Equal(t, Stats{TotalLeads: 5, QuotationsSent: 3, DealsWon: 1, PendingFollowups: 2}, d.Stats)
	assert.Equal(t, []Bucket{{Name: "NEW", Value: 4}, {Name: "CLOSED", Value: 1}}, d.LeadsByStatus)
	assert.Equal(t, []Bucket{{Name: "India", Value: 3}, {Name: "Germany", Value: 2}}, d.LeadsByCountry)
	require.Len(t, d.MonthlyTrends, 1)
	assert.EqualValues(t, 5, d.MonthlyTrends[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSourceStatsError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT count").WillReturnError(assert.AnError)

	_, err = newPostgresSourceWithExec(mock).Dashboard(context.Background(), time.Now())
	assert.ErrorIs(t, err, assert.AnError)
}
