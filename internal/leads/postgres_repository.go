package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database. Activity
// entries are removed by the ON DELETE CASCADE foreign key.
type PostgresRepository struct {
	pool pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(exec pgxQuerier) *PostgresRepository {
	if exec == nil {
		panic("leads: exec required")
	}
	return &PostgresRepository{pool: exec}
}

const leadColumns = `id, rfq, message_id, thread_id, marketing_user, email, contact_no, company_name,
	body, subject, website, thread_links, date, country, form_sent, form_filled, response_sheet,
	followup, quotation_status, remark, deal_won, probable_customer, status, review, call_followup,
	created_at, updated_at`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, l *Lead) error {
	id := uuid.New()
	query := `
		INSERT INTO leads (id, rfq, message_id, thread_id, marketing_user, email, contact_no,
			company_name, body, subject, website, thread_links, date, country, form_sent, form_filled,
			response_sheet, followup, quotation_status, remark, deal_won, probable_customer, status,
			review, call_followup)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25)
		RETURNING created_at, updated_at
	`
	links := []byte(l.ThreadLinks)
	if err := r.pool.QueryRow(ctx, query,
		id,
		l.RFQ,
		l.MessageID,
		l.ThreadID,
		l.MarketingUser,
		l.Email,
		l.ContactNo,
		l.CompanyName,
		l.Body,
		l.Subject,
		l.Website,
		links,
		l.Date,
		l.Country,
		l.FormSent,
		l.FormFilled,
		l.ResponseSheet,
		l.Followup,
		string(l.QuotationStatus),
		l.Remark,
		l.DealWon,
		l.ProbableCustomer,
		string(l.Status),
		l.Review,
		l.CallFollowup,
	).Scan(&l.CreatedAt, &l.UpdatedAt); err != nil {
		return fmt.Errorf("leads: insert failed: %w", err)
	}
	l.ID = id.String()
	return nil
}

// GetByID fetches a lead; malformed ids resolve to ErrLeadNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrLeadNotFound
	}
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return scanLead(r.pool.QueryRow(ctx, query, id))
}

// Update writes only the supplied columns. updated_at is kept strictly
// increasing even when two writes share a transaction timestamp.
func (r *PostgresRepository) Update(ctx context.Context, id string, p Patch) (*Lead, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrLeadNotFound
	}
	args := []any{id}
	sets := []string{}
	for _, f := range p.fields() {
		value := f.value
		if f.column == "thread_links" {
			value = []byte(p.ThreadLinks)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", f.column, len(args)))
	}
	sets = append(sets, "updated_at = GREATEST(now(), updated_at + interval '1 microsecond')")

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $1 RETURNING %s`, strings.Join(sets, ", "), leadColumns)
	return scanLead(r.pool.QueryRow(ctx, query, args...))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrLeadNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("leads: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]*Lead, int, error) {
	f = f.normalized()
	where, args := buildWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("leads: count failed: %w", err)
	}
	if f.Offset() >= total {
		return []*Lead{}, total, nil
	}

	args = append(args, f.Limit, f.Offset())
	query := fmt.Sprintf(`SELECT %s FROM leads%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		leadColumns, where, len(args)-1, len(args))
	leads, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func (r *PostgresRepository) All(ctx context.Context) ([]*Lead, error) {
	return r.query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC, id DESC`)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return out, nil
}

// buildWhere composes the filter into a WHERE clause with positional args.
func buildWhere(f ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(format string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(company_name ILIKE $%d OR email ILIKE $%d)", n, n))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Country != "" {
		add("country ILIKE $%d", likePattern(f.Country))
	}
	if f.DateFrom != nil {
		add("date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("date <= $%d", *f.DateTo)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		l         Lead
		links     []byte
		quotation string
		status    string
	)
	if err := row.Scan(
		&l.ID,
		&l.RFQ,
		&l.MessageID,
		&l.ThreadID,
		&l.MarketingUser,
		&l.Email,
		&l.ContactNo,
		&l.CompanyName,
		&l.Body,
		&l.Subject,
		&l.Website,
		&links,
		&l.Date,
		&l.Country,
		&l.FormSent,
		&l.FormFilled,
		&l.ResponseSheet,
		&l.Followup,
		&quotation,
		&l.Remark,
		&l.DealWon,
		&l.ProbableCustomer,
		&status,
		&l.Review,
		&l.CallFollowup,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: scan failed: %w", err)
	}
	if len(links) > 0 {
		l.ThreadLinks = links
	}
	l.QuotationStatus = QuotationStatus(quotation)
	l.Status = Status(status)
	return &l, nil
}
