package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/leadcrm/internal/analytics"
	"github.com/wolfman30/leadcrm/internal/auth"
	"github.com/wolfman30/leadcrm/internal/company"
	httpmiddleware "github.com/wolfman30/leadcrm/internal/http/middleware"
	"github.com/wolfman30/leadcrm/internal/leads"
	"github.com/wolfman30/leadcrm/internal/users"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Verifier           httpmiddleware.TokenVerifier
	UsersHandler       *users.Handler
	LeadsHandler       *leads.Handler
	AnalyticsHandler   *analytics.Handler
	CompanyHandler     *company.Handler
	HealthHandler      http.Handler
	RealtimeHandler    http.Handler
	MetricsHandler     http.Handler
	RequestObserver    httpmiddleware.RequestObserver
	CORSAllowedOrigins []string

	// Rate limiting for /auth (zero disables)
	LoginRatePerSec float64
	LoginRateBurst  int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.RequestObserver))

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Method(http.MethodGet, "/health", cfg.HealthHandler)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		// The websocket gateway verifies its own handshake token.
		if cfg.RealtimeHandler != nil {
			public.Method(http.MethodGet, "/ws", cfg.RealtimeHandler)
		}
	})

	authn := httpmiddleware.Authenticate(cfg.Verifier)

	if cfg.UsersHandler != nil {
		r.Route("/auth", func(r chi.Router) {
			if cfg.LoginRatePerSec > 0 && cfg.LoginRateBurst > 0 {
				r.Use(httpmiddleware.RateLimit(cfg.LoginRatePerSec, cfg.LoginRateBurst))
			}
			r.Post("/login", cfg.UsersHandler.Login)
			r.Post("/register", cfg.UsersHandler.Register)
			r.With(authn).Get("/me", cfg.UsersHandler.Me)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authn)
			r.Use(httpmiddleware.RequireRole(auth.RoleAdmin))
			r.Get("/", cfg.UsersHandler.List)
			r.Post("/", cfg.UsersHandler.Create)
			r.Patch("/{id}", cfg.UsersHandler.Update)
			r.Delete("/{id}", cfg.UsersHandler.Delete)
		})
	}

	if cfg.LeadsHandler != nil {
		r.Route("/leads", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", cfg.LeadsHandler.ListLeads)
			r.Post("/", cfg.LeadsHandler.CreateLead)
			r.Get("/{id}", cfg.LeadsHandler.GetLead)
			r.Patch("/{id}", cfg.LeadsHandler.UpdateLead)
			r.Delete("/{id}", cfg.LeadsHandler.DeleteLead)
		})
	}

	if cfg.AnalyticsHandler != nil {
		r.Route("/analytics", func(r chi.Router) {
			r.Use(authn)
			r.Get("/dashboard-stats", cfg.AnalyticsHandler.DashboardStats)
			r.Get("/export", cfg.AnalyticsHandler.Export)
		})
	}

	if cfg.CompanyHandler != nil {
		r.Route("/company", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", cfg.CompanyHandler.Get)
			r.With(httpmiddleware.RequireRole(auth.RoleAdmin)).Put("/", cfg.CompanyHandler.Update)
		})
	}

	return r
}
