package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfman30/leadcrm/internal/leads"
)

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSource computes dashboards with SQL aggregates.
type PostgresSource struct {
	pool pgxQuerier
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	if pool == nil {
		panic("analytics: pgx pool required")
	}
	return &PostgresSource{pool: pool}
}

func newPostgresSourceWithExec(exec pgxQuerier) *PostgresSource {
	if exec == nil {
		panic("analytics: exec required")
	}
	return &PostgresSource{pool: exec}
}

func (s *PostgresSource) Dashboard(ctx context.Context, since time.Time) (*Dashboard, error) {
	d := &Dashboard{}

	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE quotation_status <> 'PENDING'),
			count(*) FILTER (WHERE deal_won),
			count(*) FILTER (WHERE call_followup IS NOT NULL AND status <> 'CLOSED')
		FROM leads
	`).Scan(&d.Stats.TotalLeads, &d.Stats.QuotationsSent, &d.Stats.DealsWon, &d.Stats.PendingFollowups)
	if err != nil {
		return nil, fmt.Errorf("analytics: stats: %w", err)
	}

	byStatus, err := s.buckets(ctx, `SELECT status, count(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("analytics: status breakdown: %w", err)
	}
	counts := make(map[string]int64, len(byStatus))
	for _, b := range byStatus {
		counts[b.Name] = b.Value
	}
	d.LeadsByStatus = []Bucket{}
	for _, st := range statusOrder {
		if n := counts[string(st)]; n > 0 {
			d.LeadsByStatus = append(d.LeadsByStatus, Bucket{Name: string(st), Value: n})
		}
	}

	d.LeadsByCountry, err = s.buckets(ctx, `
		SELECT country, count(*) AS n
		FROM leads
		GROUP BY country
		ORDER BY n DESC, country ASC
		LIMIT $1
	`, TopCountries)
	if err != nil {
		return nil, fmt.Errorf("analytics: country breakdown: %w", err)
	}

	d.MonthlyTrends, err = s.monthly(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("analytics: monthly trends: %w", err)
	}
	return d, nil
}

func (s *PostgresSource) buckets(ctx context.Context, query string, args ...any) ([]Bucket, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Bucket{}
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Name, &b.Value); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresSource) monthly(ctx context.Context, since time.Time) ([]MonthlyCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date_trunc('month', created_at AT TIME ZONE 'UTC') AS month, count(*)
		FROM leads
		WHERE created_at >= $1
		GROUP BY month
		ORDER BY month
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MonthlyCount{}
	for rows.Next() {
		var m MonthlyCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, err
		}
		m.Month = monthStart(m.Month)
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ LeadLister = (*leads.PostgresRepository)(nil)
