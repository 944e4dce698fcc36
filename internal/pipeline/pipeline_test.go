package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-extractor/internal/blob"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/extraction"
	"github.com/dvloznov/statement-extractor/internal/jobs"
	"github.com/dvloznov/statement-extractor/internal/learning"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
)

const csvStatement = "Date, Amount, Balance, Description\n" +
	"2024/01/15,-45.00,1000.00,Starbucks Sandton, ref 123\n" +
	"2024/01/16,-300.00,700.00,Shell Garage Rosebank"

type MockStorageService struct {
	FetchURIFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *MockStorageService) FetchURI(ctx context.Context, gcsURI string) ([]byte, error) {
	return m.FetchURIFunc(ctx, gcsURI)
}

type MockSink struct {
	InsertTransactionsFunc func(ctx context.Context, txs []domain.Transaction) error
	got                    []domain.Transaction
}

func (m *MockSink) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	m.got = append(m.got, txs...)
	if m.InsertTransactionsFunc != nil {
		return m.InsertTransactionsFunc(ctx, txs)
	}
	return nil
}

type MockLearner struct {
	ObserveFunc func(ctx context.Context, store, description, category string, amount float64) error
	stores      []string
}

func (m *MockLearner) Observe(ctx context.Context, store, description, category string, amount float64) error {
	m.stores = append(m.stores, store)
	if m.ObserveFunc != nil {
		return m.ObserveFunc(ctx, store, description, category, amount)
	}
	return nil
}

func newDeps() (pipeline.Deps, *MockSink, *MockLearner) {
	sink := &MockSink{}
	learner := &MockLearner{}
	return pipeline.Deps{
		Parser:  extraction.New(nil, zerolog.Nop()),
		Learner: learner,
		Sink:    sink,
	}, sink, learner
}

func TestIngestInlineText(t *testing.T) {
	deps, sink, learner := newDeps()

	res, err := pipeline.IngestStatement(context.Background(), deps, pipeline.Request{Text: csvStatement, BankName: "FNB"})
	require.NoError(t, err)

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, extraction.StrategyCSV, res.Strategy)
	assert.Equal(t, res.Transactions, sink.got)
	assert.Equal(t, []string{res.Transactions[0].Store, res.Transactions[1].Store}, learner.stores)
	for _, tx := range res.Transactions {
		assert.Equal(t, "FNB", tx.BankName)
	}
}

func TestIngestFromGCS(t *testing.T) {
	deps, sink, _ := newDeps()
	deps.Storage = &MockStorageService{
		FetchURIFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			assert.Equal(t, "gs://statements/jan.csv", gcsURI)
			return []byte(csvStatement), nil
		},
	}

	res, err := pipeline.IngestStatement(context.Background(), deps, pipeline.Request{GCSURI: "gs://statements/jan.csv"})
	require.NoError(t, err)
	assert.Len(t, res.Transactions, 2)
	assert.Len(t, sink.got, 2)
}

func TestIngestNothingFound(t *testing.T) {
	deps, sink, learner := newDeps()

	res, err := pipeline.IngestStatement(context.Background(), deps, pipeline.Request{Text: "Dear customer, your statement is attached."})
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	assert.Empty(t, sink.got)
	assert.Empty(t, learner.stores)
}

func TestIngestErrors(t *testing.T) {
	tests := []struct {
		name    string
		deps    func(d *pipeline.Deps)
		req     pipeline.Request
		wantErr error
		wantMsg string
	}{
		{
			name:    "no input",
			req:     pipeline.Request{},
			wantErr: pipeline.ErrNoInput,
		},
		{
			name:    "blank file",
			req:     pipeline.Request{Raw: []byte("   \n")},
			wantErr: pipeline.ErrNoInput,
		},
		{
			name:    "no storage",
			req:     pipeline.Request{GCSURI: "gs://statements/jan.csv"},
			wantMsg: "step 1 (fetch)",
		},
		{
			name: "fetch failure",
			deps: func(d *pipeline.Deps) {
				d.Storage = &MockStorageService{
					FetchURIFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
						return nil, errors.New("object not found")
					},
				}
			},
			req:     pipeline.Request{GCSURI: "gs://statements/missing.pdf"},
			wantMsg: "object not found",
		},
		{
			name:    "broken pdf",
			req:     pipeline.Request{Raw: []byte("%PDF-1.4 not really a pdf")},
			wantMsg: "step 2 (extract_text)",
		},
		{
			name: "sink failure",
			deps: func(d *pipeline.Deps) {
				d.Sink = &MockSink{InsertTransactionsFunc: func(ctx context.Context, txs []domain.Transaction) error {
					return errors.New("quota exceeded")
				}}
			},
			req:     pipeline.Request{Text: csvStatement},
			wantMsg: "quota exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, _, _ := newDeps()
			if tt.deps != nil {
				tt.deps(&deps)
			}

			_, err := pipeline.IngestStatement(context.Background(), deps, tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), err.Error())
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLearnerFailureDoesNotFailImport(t *testing.T) {
	deps, sink, _ := newDeps()
	deps.Learner = &MockLearner{ObserveFunc: func(ctx context.Context, store, description, category string, amount float64) error {
		return errors.New("disk full")
	}}

	res, err := pipeline.IngestStatement(context.Background(), deps, pipeline.Request{Text: csvStatement})
	require.NoError(t, err)
	assert.Len(t, res.Transactions, 2)
	assert.Len(t, sink.got, 2)
}

func TestImportReinforcesSimilarLearnedStore(t *testing.T) {
	ctx := context.Background()
	learned := learning.NewStore(blob.NewMemoryStore(), "", zerolog.Nop())
	require.NoError(t, learned.Load(ctx))
	require.NoError(t, learned.LearnDescription(ctx, "Joe's Deli", "Lunch", "Food", 80))

	deps := pipeline.Deps{
		Parser:  extraction.New(nil, zerolog.Nop()).WithLearned(learned),
		Learner: learned,
	}
	res, err := pipeline.IngestStatement(ctx, deps, pipeline.Request{Text: "2024/03/02  R100.00 Joes Deli 0042"})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Lunch", res.Transactions[0].Description)

	entries := learned.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "joe's deli", entries[0].Key)
	assert.Equal(t, 2, entries[0].Count)
	assert.Equal(t, 100.0, entries[0].Amount)
}

func TestJobHandler(t *testing.T) {
	deps, sink, _ := newDeps()
	handler := pipeline.JobHandler(deps)

	job := &jobs.ParseStatementJob{JobID: "job-1", Text: csvStatement, BankName: "Capitec"}
	require.NoError(t, handler(context.Background(), job))

	assert.Equal(t, extraction.StrategyCSV, job.Strategy)
	assert.Equal(t, 2, job.TransactionCount)
	assert.Equal(t, 0, job.Skipped)
	assert.Len(t, sink.got, 2)

	err := handler(context.Background(), &jobs.ParseStatementJob{JobID: "job-2"})
	assert.True(t, errors.Is(err, pipeline.ErrNoInput))
}
