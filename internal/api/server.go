// Package api serves the underwriting service over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/underwriting-cli/internal/config"
	"github.com/sells-group/underwriting-cli/internal/metrics"
	"github.com/sells-group/underwriting-cli/internal/underwriting"
)

// ActorHeader carries the acting user. Authentication happens upstream.
const ActorHeader = "X-User-ID"

const anonymousActor = "anonymous"

// Server is the HTTP front end of the underwriting service.
type Server struct {
	router   *chi.Mux
	svc      *underwriting.Service
	metrics  *metrics.Collector
	validate *validator.Validate
	limiter  *rate.Limiter
	log      *zap.Logger
}

// New builds the router. m may be nil.
func New(svc *underwriting.Service, m *metrics.Collector, srvCfg config.ServerConfig, metricsCfg config.MetricsConfig) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		svc:      svc,
		metrics:  m,
		validate: newValidator(),
		log:      zap.L().With(zap.String("component", "api")),
	}
	if srvCfg.RateLimitRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(srvCfg.RateLimitRPS), max(srvCfg.RateLimitBurst, 1))
	}

	s.setupMiddleware(srvCfg)
	s.setupRoutes(metricsCfg)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware(cfg config.ServerConfig) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", ActorHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	s.router.Use(s.rateLimit)
}

func (s *Server) setupRoutes(metricsCfg config.MetricsConfig) {
	if s.metrics.Enabled() {
		path := metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		s.router.Method(http.MethodGet, path, s.metrics.Handler())
	}

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/boe/evaluate", s.handleEvaluate)

		r.Route("/workspaces", func(r chi.Router) {
			r.Post("/", s.handleCreateWorkspace)
			r.Get("/", s.handleListWorkspaces)
			r.Get("/{workspaceID}", s.handleGetWorkspace)
			r.Get("/{workspaceID}/deals", s.handleListWorkspaceDeals)
		})

		r.Route("/deals", func(r chi.Router) {
			r.Post("/", s.handleCreateDeal)
			r.Get("/", s.handleListDeals)
			r.Route("/{dealID}", func(r chi.Router) {
				r.Get("/", s.handleGetDeal)

				// Runs are immutable: no PUT or PATCH.
				r.Post("/boe/runs", s.handleCreateRun)
				r.Get("/boe/runs", s.handleListRuns)
				r.Get("/boe/runs/{runID}", s.handleGetRun)

				r.Get("/gate", s.handleGateSummary)
				r.Post("/gate/override", s.handleOverride)
				r.Get("/activity", s.handleActivity)
				r.Get("/ic-packet", s.handleICPacket)
				r.Get("/underwriting", s.handleFullUnderwriting)
			})
		})

		r.Get("/portfolio/summary", s.handlePortfolio)
	})
}

// ListenAndServe serves on port until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
