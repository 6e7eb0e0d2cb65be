package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Pinger is the readiness probe's view of the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies wires the services behind the API.
type Dependencies struct {
	Transactions *services.TransactionService
	Auth         *services.AuthService
	Dashboard    *services.DashboardService
	Tokens       *auth.TokenManager
	Store        Pinger
	Logger       *applog.Logger

	RateLimitPerMinute int
	CORSAllowedOrigins []string
	TrustedProxies     []string
}

// Server wraps http.Server with the API's router and middleware state.
type Server struct {
	http.Server

	transactions *services.TransactionService
	auth         *services.AuthService
	dashboard    *services.DashboardService
	tokens       *auth.TokenManager
	store        Pinger
	logger       *applog.Logger

	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer configures the router, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		transactions: deps.Transactions,
		auth:         deps.Auth,
		dashboard:    deps.Dashboard,
		tokens:       deps.Tokens,
		store:        deps.Store,
		logger:       logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
		detector:  security.NewDetector(),
		startedAt: time.Now(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err.Error())
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(deps.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(security.CORS(security.DefaultCORSConfig(origins)))
	r.Use(s.flagSuspicious)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.ReadOnly, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	requireAuth := s.tokens.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, r, err, userNotFound)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(applog.ComponentMiddleware(applog.ComponentAuth))
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.Post("/forgot-password", s.handleForgotPassword)
			r.Post("/reset-password", s.handleResetPassword)

			r.With(requireAuth).Group(func(r chi.Router) {
				r.Get("/verify", s.handleVerify)
				r.Put("/update-profile", s.handleUpdateProfile)
				r.Put("/change-password", s.handleChangePassword)
			})
		})

		r.With(requireAuth).Group(func(r chi.Router) {
			r.With(applog.ComponentMiddleware(applog.ComponentTransaction)).Group(func(r chi.Router) {
				r.Route("/income", transactionHandlers{server: s, kind: core.KindIncome}.routes)
				r.Route("/expense", transactionHandlers{server: s, kind: core.KindExpense}.routes)
			})

			r.With(applog.ComponentMiddleware(applog.ComponentDashboard)).Group(func(r chi.Router) {
				r.Get("/dashboard/summary", s.handleDashboardSummary)
				r.Get("/dashboard/trend", s.handleDashboardTrend)
			})
		})
	})

	return r
}

// flagSuspicious only logs; scanners still get the normal response.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request detected",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter sweep and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
