package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/visit-report-ai/cmd/mainconfig"
	"github.com/wolfman30/visit-report-ai/internal/api/router"
	"github.com/wolfman30/visit-report-ai/internal/clientsearch"
	appconfig "github.com/wolfman30/visit-report-ai/internal/config"
	"github.com/wolfman30/visit-report-ai/internal/extraction"
	"github.com/wolfman30/visit-report-ai/internal/http/handlers"
	"github.com/wolfman30/visit-report-ai/internal/kintone"
	"github.com/wolfman30/visit-report-ai/internal/masterdata"
	"github.com/wolfman30/visit-report-ai/internal/observability/metrics"
	"github.com/wolfman30/visit-report-ai/internal/submission"
	"github.com/wolfman30/visit-report-ai/internal/submissionlog"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger.Info("starting visit-report-ai API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"provider", cfg.ExtractionProvider,
	)

	ctx := context.Background()

	master, err := masterdata.Load(cfg.MasterDataPath)
	if err != nil {
		logger.Error("failed to load master data", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.NewPipelineMetrics(reg)

	llmClient, closeLLM, err := mainconfig.NewLLMClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to create extraction client", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	recordingStore, err := mainconfig.NewRecordingStore(ctx, cfg, nil)
	if err != nil {
		logger.Error("failed to create recording store", "error", err)
		os.Exit(1)
	}

	extractor := extraction.NewService(llmClient, master, logger,
		extraction.WithMetrics(pipelineMetrics),
		extraction.WithLocation(extraction.Location(cfg.Timezone)),
		extraction.WithTimeout(cfg.ExtractionTimeout),
	)

	extractionHandler := handlers.NewExtractionHandler(handlers.ExtractionConfig{
		Extractor:      extractor,
		Recordings:     recordingStore,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})

	routerCfg := &router.Config{
		Logger:                  logger,
		Extractions:             extractionHandler,
		Options:                 handlers.NewOptionsHandler(master, extractor.Today),
		MetricsHandler:          promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		CORSAllowedOrigins:      cfg.CORSAllowedOrigins,
		RequestTimeout:          cfg.ExtractionTimeout + cfg.CRMTimeout,
		ExtractionRatePerMinute: cfg.ExtractionRatePerMin,
		ExtractionRateBurst:     cfg.ExtractionRateBurst,
	}

	// Submission log (optional)
	var journal submission.Journal
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		journal = submissionlog.NewStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set; submission log disabled")
	}

	crm, err := mainconfig.NewKintoneClient(cfg, master, logger)
	switch {
	case errors.Is(err, kintone.ErrNotConfigured):
		logger.Warn("kintone not configured; record submission and client search disabled")
		routerCfg.Records = handlers.NewRecordsHandler(nil, logger)
		routerCfg.Clients = handlers.NewClientsHandler(nil, logger)
	case err != nil:
		logger.Error("failed to create kintone client", "error", err)
		os.Exit(1)
	default:
		opts := []submission.Option{
			submission.WithAttachments(recordingStore),
			submission.WithMetrics(pipelineMetrics),
		}
		if journal != nil {
			opts = append(opts, submission.WithJournal(journal))
		}
		submitter := submission.NewService(crm, master.Roster(), logger, opts...)
		routerCfg.Records = handlers.NewRecordsHandler(submitter, logger)

		redisClient := mainconfig.NewRedisClient(cfg)
		if redisClient != nil {
			defer redisClient.Close()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.Warn("redis unreachable; client search cache degraded", "error", err)
			}
		}
		routerCfg.Clients = handlers.NewClientsHandler(
			clientsearch.NewService(crm, redisClient, cfg.ClientSearchTTL, logger), logger)
	}

	r := router.New(routerCfg)

	// Extraction calls can take as long as the provider timeout.
	writeTimeout := cfg.ExtractionTimeout + 15*time.Second
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
