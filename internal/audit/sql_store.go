package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SQLStore persists entries in the activity_logs table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over db (opened with the lib/pq driver).
func NewSQLStore(db *sql.DB) *SQLStore {
	if db == nil {
		panic("audit: sql db required")
	}
	return &SQLStore{db: db}
}

const entryColumns = `a.id, a.lead_id, a.user_id, COALESCE(u.name, ''), a.action, a.details, a.timestamp`

// Append inserts e; the database assigns the timestamp.
func (s *SQLStore) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.Details == nil || e.Details.Action() != e.Action {
		return Entry{}, ErrInvalidDetails
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: marshal details: %w", err)
	}
	e.ID = uuid.NewString()

	query := `
		INSERT INTO activity_logs (id, lead_id, user_id, action, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING timestamp
	`
	if err := s.db.QueryRowContext(ctx, query,
		e.ID,
		e.LeadID,
		nullString(e.UserID),
		string(e.Action),
		details,
	).Scan(&e.Timestamp); err != nil {
		return Entry{}, fmt.Errorf("audit: insert entry: %w", err)
	}
	return e, nil
}

func (s *SQLStore) ListForLead(ctx context.Context, leadID string, limit int) ([]Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM activity_logs a
		LEFT JOIN users u ON u.id = a.user_id
		WHERE a.lead_id = $1
		ORDER BY a.timestamp DESC
	`
	args := []any{leadID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) RecentForLeads(ctx context.Context, leadIDs []string, perLead int) (map[string][]Entry, error) {
	out := make(map[string][]Entry, len(leadIDs))
	if len(leadIDs) == 0 {
		return out, nil
	}
	if perLead <= 0 {
		perLead = 3
	}
	query := `
		SELECT id, lead_id, user_id, user_name, action, details, timestamp
		FROM (
			SELECT a.id, a.lead_id, a.user_id, COALESCE(u.name, '') AS user_name,
				a.action, a.details, a.timestamp,
				ROW_NUMBER() OVER (PARTITION BY a.lead_id ORDER BY a.timestamp DESC) AS rn
			FROM activity_logs a
			LEFT JOIN users u ON u.id = a.user_id
			WHERE a.lead_id = ANY($1)
		) ranked
		WHERE rn <= $2
		ORDER BY lead_id, timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(leadIDs), perLead)
	if err != nil {
		return nil, fmt.Errorf("audit: recent entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out[e.LeadID] = append(out[e.LeadID], e)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountForLead(ctx context.Context, leadID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_logs WHERE lead_id = $1`, leadID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("audit: count entries: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e       Entry
		userID  sql.NullString
		action  string
		details []byte
		ts      time.Time
	)
	if err := row.Scan(&e.ID, &e.LeadID, &userID, &e.UserName, &action, &details, &ts); err != nil {
		return Entry{}, fmt.Errorf("audit: scan entry: %w", err)
	}
	parsed, err := ParseDetails(Action(action), details)
	if err != nil {
		return Entry{}, err
	}
	e.UserID = userID.String
	e.Action = Action(action)
	e.Details = parsed
	e.Timestamp = ts
	return e, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
