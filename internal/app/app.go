// Package app wires the components shared by the api, worker and cli
// binaries from a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/aiparser"
	"github.com/dvloznov/statement-extractor/internal/blob"
	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/extraction"
	"github.com/dvloznov/statement-extractor/internal/gcsuploader"
	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/dvloznov/statement-extractor/internal/learning"
	"github.com/dvloznov/statement-extractor/internal/merchants"
	"github.com/dvloznov/statement-extractor/internal/messages"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
)

// MerchantBlobKey holds an optional dictionary document in the blob store.
// It is read when no MERCHANT_SOURCE_URL is configured.
const MerchantBlobKey = "merchant_dictionary"

const merchantFetchTimeout = 10 * time.Second

// sqliteFile is the database name used by the sqlite backend.
const sqliteFile = "statement-extractor.db"

// App holds the shared components. GCS, BigQuery and AI are nil when not
// configured.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	Blobs     blob.Store
	Learned   *learning.Store
	Merchants *merchants.Service
	Extractor *extraction.Extractor
	Failed    *messages.FailedStore
	Ingestor  *messages.Ingestor

	AI       aiparser.Parser
	GCS      *gcsuploader.Client
	BigQuery *infraBQ.TransactionRepository

	closers []func() error
}

// New builds an App. It loads the learned and failed stores and the merchant
// dictionary; a dictionary that cannot be fetched leaves the built-in one in
// place.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	if cfg.GCSBucket != "" || cfg.LearnedStoreBackend == config.BackendGCS {
		gcs, err := gcsuploader.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		a.GCS = gcs
		a.closers = append(a.closers, gcs.Close)
	}

	blobs, err := a.openBlobs()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Blobs = blobs

	a.Learned = learning.NewStore(blobs, cfg.LearnedStoreKey, log)
	if err := a.Learned.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Starting with an empty learned store")
	}

	a.Failed = messages.NewFailedStore(blobs, cfg.FailedStoreKey, log)
	if err := a.Failed.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Merchants = merchants.NewService(a.merchantSource(ctx), cfg.MerchantReloadInterval, log)
	if err := a.Merchants.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Using built-in merchant dictionary")
	}

	if cfg.AIEnabled {
		gemini, err := aiparser.NewGeminiParser(ctx, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("AI parser disabled")
		} else {
			a.AI = gemini
		}
	}

	if cfg.GCPProjectID != "" {
		repo, err := infraBQ.NewTransactionRepository(ctx, cfg.GCPProjectID, cfg.BigQueryDataset)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.BigQuery = repo
		a.closers = append(a.closers, repo.Close)
	}

	a.Extractor = extraction.New(a.Merchants, log).WithLearned(a.Learned)
	a.Ingestor = messages.NewIngestor(a.Learned, a.Merchants, a.Failed, log)
	if a.AI != nil {
		a.Extractor.WithAI(a.AI, cfg.AITimeout)
		a.Ingestor.WithAI(a.AI, cfg.AITimeout)
	}
	if a.BigQuery != nil {
		a.Ingestor.WithSink(a.BigQuery)
	}

	log.Info().
		Str("backend", cfg.LearnedStoreBackend).
		Int("learned_stores", a.Learned.Len()).
		Bool("ai", a.AI != nil).
		Bool("bigquery", a.BigQuery != nil).
		Bool("gcs", a.GCS != nil).
		Msg("Components initialized")
	return a, nil
}

func (a *App) openBlobs() (blob.Store, error) {
	cfg := a.Config
	switch cfg.LearnedStoreBackend {
	case config.BackendMemory:
		return blob.NewMemoryStore(), nil
	case config.BackendSQLite:
		s, err := blob.OpenSQLite(filepath.Join(cfg.LearnedStorePath, sqliteFile))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.BackendGCS:
		return blob.NewGCSStore(a.GCS, cfg.LearnedStoreBucket, ""), nil
	default:
		return blob.NewFileStore(cfg.LearnedStorePath)
	}
}

func (a *App) merchantSource(ctx context.Context) merchants.Source {
	if a.Config.MerchantSourceURL != "" {
		return merchants.NewHTTPSource(a.Config.MerchantSourceURL, merchantFetchTimeout)
	}
	if _, err := a.Blobs.Get(ctx, MerchantBlobKey); err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			a.Log.Warn().Err(err).Msg("Merchant dictionary blob unreadable")
		}
		return nil
	}
	return merchants.NewBlobSource(a.Blobs, MerchantBlobKey)
}

// PipelineDeps returns the statement ingestion collaborators. Storage and
// Sink are left nil when GCS or BigQuery are not configured.
func (a *App) PipelineDeps() pipeline.Deps {
	deps := pipeline.Deps{
		Parser:  a.Extractor,
		Learner: a.Learned,
	}
	if a.GCS != nil {
		deps.Storage = a.GCS
	}
	if a.BigQuery != nil {
		deps.Sink = a.BigQuery
	}
	return deps
}

// EnsureGCS creates the storage client on first use for commands that talk
// to GCS without a configured bucket.
func (a *App) EnsureGCS(ctx context.Context) (*gcsuploader.Client, error) {
	if a.GCS != nil {
		return a.GCS, nil
	}
	gcs, err := gcsuploader.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	a.GCS = gcs
	a.closers = append(a.closers, gcs.Close)
	return gcs, nil
}

// RequireBigQuery fails when no GCP project is configured.
func (a *App) RequireBigQuery() error {
	if a.BigQuery == nil {
		return fmt.Errorf("GCP_PROJECT_ID is required")
	}
	return nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
