package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/leadcrm/internal/app/bootstrap"
	"github.com/wolfman30/leadcrm/internal/auth"
	"github.com/wolfman30/leadcrm/internal/company"
	appconfig "github.com/wolfman30/leadcrm/internal/config"
	"github.com/wolfman30/leadcrm/internal/leads"
	"github.com/wolfman30/leadcrm/internal/users"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

const defaultPassword = "password123"

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	if err := seed(ctx, stores, bootstrap.BuildCompanyStore(redisClient), logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Database seeded successfully!")
	fmt.Println("Admin user: admin@ananka.com / " + defaultPassword)
	fmt.Println("Sales user: sales@ananka.com / " + defaultPassword)
}

// seed is idempotent: existing users are kept and sample leads are only
// created into an empty table.
func seed(ctx context.Context, stores *bootstrap.Stores, companyStore company.Store, logger *logging.Logger) error {
	admin, err := ensureUser(ctx, stores.Users, "Admin User", "admin@ananka.com", auth.RoleAdmin)
	if err != nil {
		return err
	}
	if _, err := ensureUser(ctx, stores.Users, "Sales User", "sales@ananka.com", auth.RoleSales); err != nil {
		return err
	}

	current, err := companyStore.Get(ctx)
	if err != nil {
		return fmt.Errorf("seed: company: %w", err)
	}
	if current.UpdatedAt.IsZero() {
		branding := company.Default()
		branding.UpdatedAt = time.Now().UTC()
		if err := companyStore.Set(ctx, branding); err != nil {
			return fmt.Errorf("seed: company: %w", err)
		}
	}

	existing, err := stores.Leads.All(ctx)
	if err != nil {
		return fmt.Errorf("seed: list leads: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("leads already present; skipping sample leads", "count", len(existing))
		return nil
	}

	service := leads.NewService(stores.Leads, stores.Audit, leads.NopPublisher{}, nil, logger)
	for _, req := range sampleLeads() {
		if _, err := service.Create(ctx, admin.Identity(), req); err != nil {
			return fmt.Errorf("seed: lead %s: %w", req.CompanyName, err)
		}
	}
	return nil
}

func ensureUser(ctx context.Context, repo users.Repository, name, email string, role auth.Role) (*users.User, error) {
	u, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, users.ErrUserNotFound) {
		return nil, fmt.Errorf("seed: lookup %s: %w", email, err)
	}
	hash, err := auth.HashPassword(defaultPassword)
	if err != nil {
		return nil, err
	}
	u = &users.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("seed: create %s: %w", email, err)
	}
	return u, nil
}

func sampleLeads() []leads.CreateLeadRequest {
	str := func(s string) *string { return &s }
	yes := func() *bool { b := true; return &b }
	return []leads.CreateLeadRequest{
		{
			MessageID:     "msg_001",
			ThreadID:      "thread_001",
			MarketingUser: "John Doe",
			Email:         "contact@techcorp.com",
			ContactNo:     "+1-555-0123",
			CompanyName:   "TechCorp Solutions",
			Body:          "We are interested in your fastener products for our manufacturing needs. Please send us your catalog and pricing information.",
			Subject:       "Fastener Products Inquiry",
			Website:       str("https://techcorp.com"),
			Date:          "2024-01-15",
			Country:       "United States",
			Status:        "NEW",
		},
		{
			MessageID:       "msg_002",
			ThreadID:        "thread_002",
			MarketingUser:   "Jane Smith",
			Email:           "procurement@manufacturing.co.uk",
			ContactNo:       "+44-20-7946-0958",
			CompanyName:     "UK Manufacturing Ltd",
			Body:            "Looking for high-quality stainless steel fasteners for automotive applications. Need bulk quantities.",
			Subject:         "Automotive Fasteners - Bulk Order",
			Website:         str("https://ukmanufacturing.co.uk"),
			Date:            "2024-01-20",
			Country:         "United Kingdom",
			Status:          "IN_PROGRESS",
			QuotationStatus: "SENT",
			Followup:        str("Quote sent, awaiting response"),
			CallFollowup:    str("2024-02-01T10:00:00Z"),
		},
		{
			MessageID:        "msg_003",
			ThreadID:         "thread_003",
			MarketingUser:    "Mike Johnson",
			Email:            "buyer@construction.de",
			ContactNo:        "+49-30-12345678",
			CompanyName:      "German Construction GmbH",
			Body:             "We need fasteners for construction projects. Please provide technical specifications and certifications.",
			Subject:          "Construction Fasteners Inquiry",
			Date:             "2024-01-25",
			Country:          "Germany",
			Status:           "CLOSED",
			QuotationStatus:  "ACCEPTED",
			DealWon:          yes(),
			ProbableCustomer: yes(),
			Remark:           str("Successful deal closed. Customer satisfied with quality and pricing."),
		},
	}
}
