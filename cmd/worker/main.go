package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/statement-extractor/internal/app"
	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/gcsuploader"
	"github.com/dvloznov/statement-extractor/internal/jobs"
	"github.com/dvloznov/statement-extractor/internal/jobs/inmemory"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
)

const pollInterval = 500 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	bankName := flag.String("bank", "", "Bank name used when a statement does not name one")
	useAI := flag.Bool("ai", false, "Try the AI parser first")
	workers := flag.Int("workers", cfg.QueueWorkers, "Number of concurrent jobs")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	uris := flag.Args()
	if len(uris) == 0 {
		if uris, err = readURIs(os.Stdin); err != nil {
			log.Fatal().Err(err).Msg("Failed to read GCS URIs from stdin")
		}
	}
	if len(uris) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: worker [options] gs://bucket/statement.pdf ... (or one URI per line on stdin)")
		os.Exit(1)
	}
	for _, uri := range uris {
		if _, _, err := gcsuploader.ParseURI(uri); err != nil {
			log.Fatal().Err(err).Msg("Invalid GCS URI")
		}
	}

	// Cancel on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer a.Close()

	if _, err := a.EnsureGCS(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	if a.BigQuery != nil {
		if err := a.BigQuery.EnsureTable(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare transactions table")
		}
	} else {
		log.Warn().Msg("No GCP project configured - transactions will only be parsed")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.Options{
		BufferSize: cfg.QueueBufferSize,
		Workers:    *workers,
		MaxRetries: cfg.QueueMaxRetries,
	}, jobStore, log)

	if err := jobQueue.Start(ctx, pipeline.JobHandler(a.PipelineDeps())); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Int("statements", len(uris)).Msg("Worker service started")

	ids := make([]string, 0, len(uris))
	for _, uri := range uris {
		job := &jobs.ParseStatementJob{GCSURI: uri, BankName: *bankName, UseAI: *useAI}
		if err := jobQueue.PublishParseStatement(ctx, job); err != nil {
			log.Error().Err(err).Str("gcs_uri", uri).Msg("Failed to enqueue job")
			break
		}
		ids = append(ids, job.JobID)
	}

	finished, waitErr := waitForJobs(ctx, jobStore, ids, pollInterval)
	if waitErr != nil {
		log.Warn().Err(waitErr).Msg("Stopped before all jobs finished")
	}

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	failed := 0
	for _, job := range finished {
		if job.Status != jobs.JobStatusCompleted {
			failed++
		}
		fmt.Println(summarize(job))
	}

	log.Info().Int("jobs", len(finished)).Int("failed", failed).Msg("Worker service exited")
	if failed > 0 || waitErr != nil || len(ids) < len(uris) {
		os.Exit(1)
	}
}

// readURIs returns the non-blank, non-comment lines of r.
func readURIs(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// waitForJobs polls store until every job is completed or failed, or ctx
// ends. It returns the last known state of each job, in ids order.
func waitForJobs(ctx context.Context, store jobs.JobStore, ids []string, every time.Duration) ([]*jobs.ParseStatementJob, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		states := make([]*jobs.ParseStatementJob, 0, len(ids))
		done := true
		for _, id := range ids {
			job, err := store.GetJob(ctx, id)
			if err != nil {
				return states, err
			}
			states = append(states, job)
			if job.Status != jobs.JobStatusCompleted && job.Status != jobs.JobStatusFailed {
				done = false
			}
		}
		if done {
			return states, nil
		}

		select {
		case <-ctx.Done():
			return states, ctx.Err()
		case <-ticker.C:
		}
	}
}

func summarize(job *jobs.ParseStatementJob) string {
	if job.Status == jobs.JobStatusCompleted {
		return fmt.Sprintf("%s\t%s\t%d transactions (%s)", job.Status, job.GCSURI, job.TransactionCount, job.Strategy)
	}
	return fmt.Sprintf("%s\t%s\t%s", job.Status, job.GCSURI, job.Error)
}
