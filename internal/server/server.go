package server

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trialq/trialq/internal/handler"
	"github.com/trialq/trialq/internal/observability"
	"github.com/trialq/trialq/internal/server/middleware"
	"github.com/trialq/trialq/internal/service"
	"github.com/trialq/trialq/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableUI        bool
	MaxBodySize     int64 // bytes
	RateLimit       int   // requests per minute per IP on /api; 0 disables
	// ReportsDir is served under /reports/ when reports go to the local sink.
	ReportsDir string
	Version    string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            3000,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		EnableUI:        true,
		MaxBodySize:     10 * 1024 * 1024, // 10MB
		RateLimit:       60,
	}
}

// Server is the HTTP front end of trialq. It owns the Chi router and the
// trial service behind it.
type Server struct {
	cfg        Config
	router     chi.Router
	svc        *service.TrialService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, svc *service.TrialService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(observability.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(chimw.Compress(5))

	sysHandler := handler.NewSystemHandler(s.svc)

	// --- Probes, metrics and the API description ---
	r.Get("/healthz", sysHandler.Healthz)
	r.Get("/readyz", sysHandler.Readyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.json", handler.NewOpenAPIHandler(s.svc, s.cfg.Version).ServeSpec)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.cfg.RateLimit))
		if s.cfg.MaxBodySize > 0 {
			r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
		}

		queryHandler := handler.NewQueryHandler(s.svc)
		reportHandler := handler.NewReportHandler(s.svc, "/reports/")

		r.Post("/query", queryHandler.Query)
		r.Get("/schema", queryHandler.Schema)
		r.Get("/stats", queryHandler.Stats)

		r.Post("/report", reportHandler.Create)
		r.Get("/report", reportHandler.List)

		r.Get("/sources", sysHandler.ListSources)

		if store := s.svc.Store(); store != nil {
			historyHandler := handler.NewHistoryHandler(store)
			r.Get("/history", historyHandler.List)
			r.Delete("/history", historyHandler.Clear)
			r.Get("/history/{id}", historyHandler.Get)
		}
	})

	// --- Generated reports ---
	if s.cfg.ReportsDir != "" {
		r.Handle("/reports/*", http.StripPrefix("/reports/", http.FileServer(http.Dir(s.cfg.ReportsDir))))
	}

	// --- Embedded query UI ---
	if s.cfg.EnableUI {
		distFS, err := fs.Sub(ui.Dist, "dist")
		if err != nil {
			s.logger.Error("failed to create sub filesystem for UI", "error", err)
		} else {
			fileServer := http.FileServer(http.FS(distFS))
			r.Handle("/assets/*", fileServer)
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				f, err := distFS.Open("index.html")
				if err != nil {
					http.Error(w, "UI not available", http.StatusNotFound)
					return
				}
				defer f.Close()
				stat, _ := f.Stat()
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				http.ServeContent(w, r, "index.html", stat.ModTime(), f.(io.ReadSeeker))
			})
		}
	}

	s.router = r
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled or
// a SIGINT or SIGTERM is received. It then drains in-flight requests and
// closes every trial source.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Answers can take several model round trips.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "sources", s.svc.Sources())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.svc.Close()
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
