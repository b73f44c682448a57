package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"expenseflow/internal/log"
	"expenseflow/internal/metrics"
	"expenseflow/internal/middleware/ratelimit"
	"expenseflow/internal/middleware/security"
	"expenseflow/internal/middleware/trace"
	"expenseflow/internal/services"
)

const readinessTimeout = 2 * time.Second

// Check is one readiness probe, such as a store ping.
type Check struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options wires the server to its services.
type Options struct {
	Addr               string
	Expenses           *services.ExpenseService
	Accounts           *services.AccountService
	Metrics            *metrics.Metrics
	Logger             *log.Logger
	RateLimitPerMinute int
	Readiness          []Check
}

type Server struct {
	http.Server
	expenses  *services.ExpenseService
	accounts  *services.AccountService
	metrics   *metrics.Metrics
	logger    *log.Logger
	readiness []Check

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Call Shutdown to stop it and its background goroutines.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		expenses:  opts.Expenses,
		accounts:  opts.Accounts,
		metrics:   opts.Metrics,
		logger:    logger,
		readiness: opts.Readiness,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	detector := security.NewDetector()
	tracer := trace.NewMiddleware(s.logger, s.metrics, detector.ExtractClientIP)

	r := chi.NewRouter()
	r.Use(tracer.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.Headers(security.DefaultHSTS))
	r.Use(detector.Middleware(s.logger))
	limitLog := s.logger.WithComponent(log.ComponentRateLimit)
	r.Use(s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		limitLog.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	}, http.MethodPost))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such route").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Post("/password-reset", s.handlePasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(s.accounts))

			r.Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)
			r.Post("/me/role", s.handleSwitchRole)

			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleCreateUser)

			r.Get("/expenses", s.handleListExpenses)
			r.Post("/expenses", s.handleSubmitExpense)
			r.Post("/expenses/{id}/status", s.handleSetStatus)

			r.Get("/dashboard", s.handleDashboard)
		})
	})

	return r
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.limiter.Stop)
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady runs every readiness check and reports each failure by name.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	failed := map[string]string{}
	for _, c := range s.readiness {
		if err := c.Check(ctx); err != nil {
			failed[c.Name] = err.Error()
			s.logger.WarnContext(ctx, "Readiness check failed", "check", c.Name, log.FieldError, err)
		}
	}
	if len(failed) > 0 {
		NewJSONResponse().
			Status(http.StatusServiceUnavailable).
			Body(map[string]any{"status": "unavailable", "failed": failed}).
			Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
