package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stolik/internal/api"
	"stolik/internal/audit"
	"stolik/internal/config"
	"stolik/internal/database"
	"stolik/internal/domain"
	"stolik/internal/events"
	"stolik/internal/logging"
	"stolik/internal/metrics"
	"stolik/internal/models"
	"stolik/internal/registry"
	"stolik/internal/service"
	"stolik/internal/waitlist"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	tables, err := loadTables(cfg, &logger)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	queue := initWaitlist(cfg, &logger)

	reg := registry.New(tables, &logger)
	bus := events.NewEventBus()

	recorder := audit.NewRecorder(models.DefaultAuditBufferSize, &logger)
	recorder.Attach(bus)

	alloc := service.NewAllocationService(reg, queue, db, bus, cfg.Allocation.GracePeriod(), &logger)
	defer alloc.Stop()

	customers := service.NewCustomerService(db, &logger)

	exportDir := cfg.Exports.Path
	if exportDir == "" {
		exportDir = "exports"
	}

	httpServer := api.NewHTTPServer(cfg.API, alloc, customers, reg, queue, recorder, exportDir, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder.Start(ctx)
	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, recorder, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// loadTables reads the seating plan, preferring a dedicated tables file
// over the inline config section.
func loadTables(cfg *config.Config, logger *zerolog.Logger) ([]models.Table, error) {
	tablesPath := os.Getenv("TABLES_PATH")
	if tablesPath == "" {
		tablesPath = cfg.Allocation.TablesPath
	}

	if tablesPath == "" {
		if len(cfg.Tables) == 0 {
			return nil, fmt.Errorf("no tables configured: set allocation.tables_path or the tables section")
		}
		return cfg.Tables, nil
	}

	data, err := os.ReadFile(tablesPath)
	if err != nil {
		logger.Error().Err(err).Str("tables_path", tablesPath).Msg("read tables")
		return nil, err
	}

	var plan struct {
		Tables []models.Table `yaml:"tables"`
	}
	if err := yaml.Unmarshal(data, &plan); err != nil {
		logger.Error().Err(err).Str("tables_path", tablesPath).Msg("parse tables")
		return nil, err
	}

	if err := config.ValidateTables(plan.Tables); err != nil {
		return nil, err
	}

	return plan.Tables, nil
}

// initWaitlist prefers redis with an in-memory fallback; without redis
// configured the queue is purely in-memory.
func initWaitlist(cfg *config.Config, logger *zerolog.Logger) domain.Waitlist {
	memory := waitlist.NewMemoryWaitlist()

	if cfg.Redis.Address == "" {
		return memory
	}

	client := waitlist.NewRedisClient(cfg.Redis)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory waitlist")
		_ = client.Close()
		return memory
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return waitlist.NewFailoverWaitlist(waitlist.NewRedisWaitlist(client), memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, recorder *audit.Recorder, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)
	recorder.Wait()

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
