package analytics

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/leadcrm/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("leadcrm.internal.analytics")

// Service answers the analytics endpoints.
type Service struct {
	source   Source
	leads    LeadLister
	archiver *S3Archiver
	logger   *logging.Logger
	now      func() time.Time
}

// NewService wires the aggregate source, the lead lister used for exports and
// an optional archiver.
func NewService(source Source, leads LeadLister, archiver *S3Archiver, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{source: source, leads: leads, archiver: archiver, logger: logger, now: time.Now}
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "analytics.dashboard")
	defer span.End()

	since := s.now().UTC().AddDate(0, -TrendMonths, 0)
	d, err := s.source.Dashboard(ctx, since)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return d, nil
}

// Export renders every lead, newest first, as CSV. Archival failures are
// logged and do not fail the export.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "analytics.export")
	defer span.End()

	all, err := s.leads.All(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("analytics: load leads: %w", err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, all); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("analytics: write csv: %w", err)
	}
	span.SetAttributes(attribute.Int("leads.count", len(all)))

	if s.archiver.Enabled() {
		if _, err := s.archiver.Archive(ctx, buf.Bytes()); err != nil {
			s.logger.Warn("lead export archival failed", "error", err)
		}
	}
	return buf.Bytes(), nil
}
