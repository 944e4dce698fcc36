package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-extractor/internal/extraction"
	"github.com/dvloznov/statement-extractor/internal/jobs"
	"github.com/dvloznov/statement-extractor/internal/logger"
)

// Deps are the collaborators of the statement ingestion pipeline. Only
// Parser is required.
type Deps struct {
	Storage StorageService
	Parser  StatementParser
	Learner StoreLearner
	Sink    TransactionSink
}

// Request names one statement to ingest.
type Request struct {
	GCSURI   string
	Text     string
	Raw      []byte
	BankName string
	UseAI    bool
}

// NewStatementIngestionPipeline wires the standard steps.
func NewStatementIngestionPipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&FetchStatementStep{Storage: deps.Storage},
		&ExtractTextStep{},
		&ParseStatementStep{Parser: deps.Parser},
		&LearnStoresStep{Learner: deps.Learner},
		&StoreTransactionsStep{Sink: deps.Sink},
	)
}

// IngestStatement runs the pipeline for req and returns the extraction result.
func IngestStatement(ctx context.Context, deps Deps, req Request) (*extraction.ParseResult, error) {
	state := &PipelineState{
		GCSURI:   req.GCSURI,
		BankName: req.BankName,
		UseAI:    req.UseAI,
		Raw:      req.Raw,
		Text:     req.Text,
	}
	if err := NewStatementIngestionPipeline(deps).Execute(ctx, state); err != nil {
		return state.Result, err
	}
	return state.Result, nil
}

// JobHandler processes ParseStatementJobs from a queue and records the
// outcome on the job.
func JobHandler(deps Deps) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		j, ok := job.(*jobs.ParseStatementJob)
		if !ok {
			return fmt.Errorf("unsupported job type %s", job.GetType())
		}

		log := logger.FromContext(ctx).With().Str("job_id", j.JobID).Str("gcs_uri", j.GCSURI).Logger()
		ctx = logger.WithContext(ctx, log)

		res, err := IngestStatement(ctx, deps, Request{
			GCSURI:   j.GCSURI,
			Text:     j.Text,
			BankName: j.BankName,
			UseAI:    j.UseAI,
		})
		if err != nil {
			return err
		}

		j.Strategy = res.Strategy
		j.TransactionCount = len(res.Transactions)
		j.Skipped = res.Skipped
		log.Info().
			Str("strategy", res.Strategy).
			Int("transactions", j.TransactionCount).
			Msg("Statement ingested")
		return nil
	}
}
