package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/wolfman30/leadcrm/internal/analytics"
	"github.com/wolfman30/leadcrm/internal/audit"
	appconfig "github.com/wolfman30/leadcrm/internal/config"
	"github.com/wolfman30/leadcrm/internal/events"
	"github.com/wolfman30/leadcrm/internal/leads"
	"github.com/wolfman30/leadcrm/internal/users"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

// Stores bundles the persistence layer. Outbox is nil in memory mode.
type Stores struct {
	Users     users.Repository
	Leads     leads.Repository
	Audit     audit.Store
	Analytics analytics.Source
	Outbox    *events.OutboxStore

	pool  *pgxpool.Pool
	sqlDB *sql.DB
}

// Persistent reports whether the stores are backed by Postgres.
func (s *Stores) Persistent() bool { return s.pool != nil }

func (s *Stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
}

// BuildStores connects to Postgres when DATABASE_URL is set and falls back to
// in-memory stores otherwise.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		return buildMemoryStores(), nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: open database/sql: %w", err)
	}

	leadRepo := leads.NewPostgresRepository(pool)
	logger.Info("connected to postgres")
	return &Stores{
		Users:     users.NewPostgresRepository(pool),
		Leads:     leadRepo,
		Audit:     audit.NewSQLStore(sqlDB),
		Analytics: analytics.NewPostgresSource(pool),
		Outbox:    events.NewOutboxStore(pool),
		pool:      pool,
		sqlDB:     sqlDB,
	}, nil
}

func buildMemoryStores() *Stores {
	userRepo := users.NewInMemoryRepository()
	auditStore := audit.NewMemoryStore(userRepo)
	leadRepo := leads.NewInMemoryRepository()
	leadRepo.OnDelete(auditStore.DeleteLead)
	return &Stores{
		Users:     userRepo,
		Leads:     leadRepo,
		Audit:     auditStore,
		Analytics: analytics.NewMemorySource(leadRepo),
	}
}
