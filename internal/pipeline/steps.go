// Package pipeline runs statement ingestion as an ordered list of steps:
// fetch the file, turn it into text, extract transactions, learn the
// merchants and store the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/extraction"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/merchants"
	"github.com/dvloznov/statement-extractor/internal/pdftext"
)

// ErrNoInput is returned when a request has neither text nor a GCS URI.
var ErrNoInput = errors.New("statement request has neither text nor a GCS URI")

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	GCSURI   string
	BankName string
	UseAI    bool

	Raw    []byte
	Text   string
	Result *extraction.ParseResult
}

// FetchStatementStep downloads the file unless the text was given inline.
type FetchStatementStep struct {
	Storage StorageService
}

func (s *FetchStatementStep) Name() string { return "fetch" }

func (s *FetchStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Text != "" || state.Raw != nil {
		return nil
	}
	if state.GCSURI == "" {
		return ErrNoInput
	}
	if s.Storage == nil {
		return fmt.Errorf("no storage configured for %s", state.GCSURI)
	}

	data, err := s.Storage.FetchURI(ctx, state.GCSURI)
	if err != nil {
		return err
	}
	state.Raw = data
	return nil
}

// ExtractTextStep turns the fetched bytes into text, reading PDFs with
// pdftext.
type ExtractTextStep struct{}

func (s *ExtractTextStep) Name() string { return "extract_text" }

func (s *ExtractTextStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Text != "" {
		return nil
	}
	if pdftext.IsPDF(state.Raw) {
		text, err := pdftext.ExtractBytes(state.Raw)
		if err != nil {
			return err
		}
		state.Text = text
		return nil
	}
	state.Text = string(state.Raw)
	if strings.TrimSpace(state.Text) == "" {
		return ErrNoInput
	}
	return nil
}

// ParseStatementStep runs the extractor.
type ParseStatementStep struct {
	Parser StatementParser
}

func (s *ParseStatementStep) Name() string { return "parse" }

func (s *ParseStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Result = s.Parser.Parse(ctx, state.Text, extraction.Options{
		BankName: state.BankName,
		UseAI:    state.UseAI,
	})
	return nil
}

// LearnStoresStep feeds every resolved merchant to the learned store. A
// persistence failure is logged and does not fail the import.
type LearnStoresStep struct {
	Learner StoreLearner
}

func (s *LearnStoresStep) Name() string { return "learn" }

func (s *LearnStoresStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Learner == nil || state.Result == nil {
		return nil
	}
	log := logger.FromContext(ctx)

	for _, tx := range state.Result.Transactions {
		if tx.Store == "" || tx.Store == merchants.UnknownStore {
			continue
		}
		if err := s.Learner.Observe(ctx, tx.Store, tx.Description, tx.Category, tx.Amount); err != nil {
			log.Warn().Err(err).Str("store", tx.Store).Msg("Failed to learn store from statement")
		}
	}
	return nil
}

// StoreTransactionsStep writes the transactions to the sink.
type StoreTransactionsStep struct {
	Sink TransactionSink
}

func (s *StoreTransactionsStep) Name() string { return "store" }

func (s *StoreTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Sink == nil || state.Result == nil || len(state.Result.Transactions) == 0 {
		return nil
	}
	return s.Sink.InsertTransactions(ctx, state.Result.Transactions)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps in order and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}
