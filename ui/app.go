package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gotidy/app"
	"gotidy/internal/errors"
	"gotidy/internal/logging"
	"gotidy/ports"
)

// App serves the result of one pipeline run over HTTP
type App struct {
	router  *chi.Mux
	config  Config
	service *app.PipelineService
	run     *app.RunResult
	results ports.ResultRepository
	logger  *logging.Logger
}

// Config holds UI application configuration
type Config struct {
	Addr string
	// RateLimit is requests per second; zero disables limiting
	RateLimit float64
	Burst     int
}

// NewApp creates the HTTP surface for a finished run. results may be nil
// when persistence is disabled.
func NewApp(config Config, service *app.PipelineService, run *app.RunResult, results ports.ResultRepository, logger *logging.Logger) *App {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	a := &App{
		router:  chi.NewRouter(),
		config:  config,
		service: service,
		run:     run,
		results: results,
		logger:  logger.Named("UI"),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
	if a.config.RateLimit > 0 {
		a.router.Use(NewRateLimiter(a.config.RateLimit, a.config.Burst, a.logger).Handler)
	}
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleReport)
	a.router.Get("/report", a.handleReport)
	a.router.Get("/report.md", a.handleReportMarkdown)
	a.router.Get("/chart", a.handleChart)

	a.router.Route("/api", func(r chi.Router) {
		r.Get("/run", a.handleRun)
		r.Get("/aggregates", a.handleAggregates)
		r.Get("/summary", a.handleSummary)
		r.Get("/runs/{id}/results", a.handleStoredResults)
	})
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.config.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving run %s on %s", a.run.RunID(), a.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
