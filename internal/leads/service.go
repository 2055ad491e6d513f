package leads

import (
	"context"

	"github.com/wolfman30/leadcrm/internal/audit"
	"github.com/wolfman30/leadcrm/internal/auth"
	"github.com/wolfman30/leadcrm/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const createdMessage = "Lead created"

// Service applies lead mutations. Each successful mutation is followed by an
// audit append and a broadcast; failures of those follow-up steps are logged
// and do not roll back the stored change.
type Service struct {
	repo      Repository
	audit     audit.Store
	publisher Publisher
	metrics   MutationObserver
	logger    *logging.Logger
	tracer    trace.Tracer
}

// NewService wires the mutation service. publisher and metrics may be nil.
func NewService(repo Repository, auditStore audit.Store, publisher Publisher, metrics MutationObserver, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Service{
		repo:      repo,
		audit:     auditStore,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		tracer:    otel.Tracer("leadcrm.internal.leads"),
	}
}

// Create validates req, stores the lead with workflow defaults and records a
// CREATED entry.
func (s *Service) Create(ctx context.Context, actor auth.Identity, req CreateLeadRequest) (lead *Lead, err error) {
	ctx, span := s.tracer.Start(ctx, "leads.create")
	defer span.End()
	defer func() { s.observe("create", err) }()

	lead, err = req.Lead()
	if err != nil {
		return nil, err
	}
	if err = s.repo.Create(ctx, lead); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("lead_id", lead.ID))

	s.appendEntry(ctx, audit.NewEntry(lead.ID, actor.UserID, audit.CreatedDetails{Message: createdMessage}))
	s.withHistory(ctx, lead)
	s.publish(ctx, EventLeadCreated, lead.ID, lead)

	s.logger.Info("lead created", "lead_id", lead.ID, "user_id", actor.UserID)
	return lead, nil
}

// Update merges the supplied fields into the lead. There is no concurrency
// precondition: the last write of each field wins.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id string, req UpdateLeadRequest) (lead *Lead, err error) {
	ctx, span := s.tracer.Start(ctx, "leads.update")
	defer span.End()
	defer func() { s.observe("update", err) }()
	span.SetAttributes(attribute.String("lead_id", id))

	patch, err := req.Patch()
	if err != nil {
		return nil, err
	}
	lead, err = s.repo.Update(ctx, id, patch)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.appendEntry(ctx, audit.NewEntry(lead.ID, actor.UserID, audit.UpdatedDetails{Changes: patch.Changes()}))
	s.withHistory(ctx, lead)
	s.publish(ctx, EventLeadUpdated, lead.ID, lead)

	s.logger.Info("lead updated", "lead_id", lead.ID, "user_id", actor.UserID)
	return lead, nil
}

// Delete removes the lead together with its activity entries.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "leads.delete")
	defer span.End()
	defer func() { s.observe("delete", err) }()
	span.SetAttributes(attribute.String("lead_id", id))

	if err = s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	s.publish(ctx, EventLeadDeleted, id, DeletedPayload{ID: id})

	s.logger.Info("lead deleted", "lead_id", id, "user_id", actor.UserID)
	return nil
}

func (s *Service) appendEntry(ctx context.Context, e audit.Entry) {
	if _, err := s.audit.Append(ctx, e); err != nil {
		s.logger.Error("failed to append activity entry", "lead_id", e.LeadID, "action", e.Action, "error", err)
	}
}

func (s *Service) withHistory(ctx context.Context, lead *Lead) {
	if err := attachHistory(ctx, s.audit, lead); err != nil {
		s.logger.Warn("failed to load activity for response", "lead_id", lead.ID, "error", err)
		lead.ActivityLogs = []audit.Entry{}
	}
}

func (s *Service) publish(ctx context.Context, event, leadID string, payload any) {
	if err := s.publisher.Publish(ctx, event, payload); err != nil {
		s.logger.Warn("failed to publish lead event", "event", event, "lead_id", leadID, "error", err)
	}
}

func (s *Service) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveMutation(op, err)
	}
}
