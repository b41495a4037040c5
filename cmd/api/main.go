package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"reposearch/internal/config"
	"reposearch/internal/database"
	"reposearch/internal/database/migration"
	handlers "reposearch/internal/http/handler"
	"reposearch/internal/http/middleware"
	"reposearch/internal/logging"
	"reposearch/internal/metrics"
	appotel "reposearch/internal/otel"
	"reposearch/internal/remote"
	"reposearch/internal/repository/sqlstore"
	"reposearch/internal/service"
	"reposearch/internal/task"
)

func main() {
	// Environment variables (.env auto-loaded if present), optionally over a YAML file.
	cfg, err := loadConfig()
	if err != nil {
		logging.Default().Error("config_load_failed", "component", "server", "error", err.Error())
		os.Exit(1)
	}
	log := logging.New(os.Stdout, logging.Location(cfg.Timezone))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("server_failed", "component", "server", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server_stopped", "component", "server", "event", "shutdown", "status", "success")
}

// run serves until ctx ends or the search scope fails. Everything it opens is
// released before it returns.
func run(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) error {
	shutdownTracing, err := appotel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("tracing_shutdown_failed", "component", "tracing", "error", err.Error())
		}
	}()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db.DB, cfg.Database.Driver, log, dbLabel(cfg.Database)); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	gh, err := remote.NewGitHub(cfg.GitHub)
	if err != nil {
		return fmt.Errorf("github client: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	fetchMetrics, err := metrics.NewFetch(reg)
	if err != nil {
		return fmt.Errorf("fetch metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}

	// Every search, lookup observer and fetch runs on this scope.
	scope := task.NewScope(ctx)
	defer func() {
		if err := scope.Close(); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("scope_failed", "component", "server", "error", err.Error())
		}
	}()

	store := sqlstore.New(db)
	svc := service.NewSearchRepository(store, gh, task.NewDispatcher(int64(cfg.Search.IOConcurrency)),
		service.WithLogger(log),
		service.WithMetrics(fetchMetrics),
		service.WithPrefetchDistance(cfg.Search.PrefetchDistance),
	)
	if err := svc.SetCriterion(cfg.Search.Criterion); err != nil {
		return fmt.Errorf("search criterion: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:       db,
		Search:   svc,
		Cache:    store,
		Sessions: handlers.NewSessions(scope),
		Gatherer: reg,
	})

	// A failed store write cancels the scope; stop serving in that case too.
	go func() {
		<-scope.Context().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server_shutdown_failed", "component", "server", "error", err.Error())
		}
	}()

	addr := ":" + cfg.Port
	log.Info("server_starting", "component", "server", "event", "listen", "status", "starting", "addr", addr)
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return nil
}

func loadConfig() (*config.AppConfig, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load(), nil
}

func dbLabel(c config.DatabaseConfig) string {
	if c.Driver == config.DriverPostgres {
		return c.Host
	}
	return c.Path
}
