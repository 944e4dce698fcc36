package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-extractor/internal/api/handlers"
	"github.com/dvloznov/statement-extractor/internal/api/middleware"
	"github.com/dvloznov/statement-extractor/internal/app"
	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/jobs/inmemory"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	port := flag.String("port", cfg.Port, "HTTP server port")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer a.Close()

	if a.BigQuery != nil {
		if err := a.BigQuery.EnsureTable(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare transactions table")
		}
	} else {
		log.Warn().Msg("No GCP project configured - transactions will not be stored")
	}
	if cfg.GCSBucket == "" {
		log.Warn().Msg("No GCS bucket configured - statement uploads will be disabled")
	}

	// Job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.Options{
		BufferSize: cfg.QueueBufferSize,
		Workers:    cfg.QueueWorkers,
		MaxRetries: cfg.QueueMaxRetries,
	}, jobStore, log)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	deps := a.PipelineDeps()
	if err := jobQueue.Start(workerCtx, pipeline.JobHandler(deps)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	var uploader handlers.Uploader
	if a.GCS != nil {
		uploader = a.GCS
	}

	mux := handlers.NewRouter(handlers.Handlers{
		Statements:   handlers.NewStatementsHandler(deps, jobQueue, uploader, cfg.GCSBucket, log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
		Messages:     handlers.NewMessagesHandler(a.Ingestor, a.Failed, log),
		Descriptions: handlers.NewDescriptionsHandler(a.Learned, log),
		Merchants:    handlers.NewMerchantsHandler(a.Merchants, log),
	})

	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.CORS,
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if cleaned, err := a.Failed.Cleanup(shutdownCtx, 30*24*time.Hour); err != nil {
		log.Warn().Err(err).Msg("Failed attempt cleanup did not persist")
	} else if cleaned > 0 {
		log.Info().Int("removed", cleaned).Msg("Old processed attempts removed")
	}

	log.Info().Msg("Server exited")
}
