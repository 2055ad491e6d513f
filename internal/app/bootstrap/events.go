package bootstrap

import (
	"context"
	"fmt"
	"strings"

	appconfig "github.com/wolfman30/leadcrm/internal/config"
	"github.com/wolfman30/leadcrm/internal/events"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

// BuildEventExport wires the optional RabbitMQ export. With an outbox the
// service writes events to Postgres and a deliverer forwards them; without
// one the sink is published to directly. It returns a nil publisher when
// AMQP_URL is unset.
func BuildEventExport(ctx context.Context, cfg *appconfig.Config, outbox *events.OutboxStore, logger *logging.Logger) (events.Publisher, func(), error) {
	if cfg == nil || strings.TrimSpace(cfg.AMQPURL) == "" {
		return nil, func() {}, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	sink, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		return nil, func() {}, fmt.Errorf("bootstrap: amqp: %w", err)
	}
	closeSink := func() {
		if err := sink.Close(); err != nil {
			logger.Warn("amqp close failed", "error", err)
		}
	}
	if outbox == nil {
		logger.Info("lead event export enabled", "exchange", cfg.AMQPExchange, "mode", "direct")
		return sink, closeSink, nil
	}

	go events.NewDeliverer(outbox, sink, logger).Start(ctx)
	logger.Info("lead event export enabled", "exchange", cfg.AMQPExchange, "mode", "outbox")
	return outbox, closeSink, nil
}
