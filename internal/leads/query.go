package leads

import (
	"context"
	"fmt"

	"github.com/wolfman30/leadcrm/internal/audit"
	"github.com/wolfman30/leadcrm/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RecentActivityPerLead is how many entries each listed lead carries.
const RecentActivityPerLead = 3

// Pagination describes the page returned by List.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ListResult is the body of GET /leads.
type ListResult struct {
	Leads      []*Lead    `json:"leads"`
	Pagination Pagination `json:"pagination"`
}

// QueryService reads leads together with their activity trail.
type QueryService struct {
	repo   Repository
	audit  audit.Store
	logger *logging.Logger
	tracer trace.Tracer
}

func NewQueryService(repo Repository, auditStore audit.Store, logger *logging.Logger) *QueryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &QueryService{
		repo:   repo,
		audit:  auditStore,
		logger: logger,
		tracer: otel.Tracer("leadcrm.internal.leads.query"),
	}
}

// List returns one page of leads, newest first, each with its most recent
// activity. A page past the end yields no leads and accurate totals.
func (q *QueryService) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	f = f.normalized()
	ctx, span := q.tracer.Start(ctx, "leads.query.list")
	defer span.End()
	span.SetAttributes(attribute.Int("page", f.Page), attribute.Int("limit", f.Limit))

	leads, total, err := q.repo.List(ctx, f)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ids := make([]string, 0, len(leads))
	for _, l := range leads {
		ids = append(ids, l.ID)
	}
	recent, err := q.audit.RecentForLeads(ctx, ids, RecentActivityPerLead)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("leads: load recent activity: %w", err)
	}
	for _, l := range leads {
		l.ActivityLogs = nonNil(recent[l.ID])
	}

	return &ListResult{
		Leads: leads,
		Pagination: Pagination{
			Page:  f.Page,
			Limit: f.Limit,
			Total: total,
			Pages: (total + f.Limit - 1) / f.Limit,
		},
	}, nil
}

// Get returns the lead with its full activity history, newest first.
func (q *QueryService) Get(ctx context.Context, id string) (*Lead, error) {
	ctx, span := q.tracer.Start(ctx, "leads.query.get")
	defer span.End()
	span.SetAttributes(attribute.String("lead_id", id))

	lead, err := q.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := attachHistory(ctx, q.audit, lead); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return lead, nil
}

func attachHistory(ctx context.Context, store audit.Store, lead *Lead) error {
	entries, err := store.ListForLead(ctx, lead.ID, 0)
	if err != nil {
		return fmt.Errorf("leads: load activity: %w", err)
	}
	lead.ActivityLogs = nonNil(entries)
	return nil
}

func nonNil(entries []audit.Entry) []audit.Entry {
	if entries == nil {
		return []audit.Entry{}
	}
	return entries
}
