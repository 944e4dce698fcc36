package pipeline

import (
	"context"

	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/extraction"
)

// StorageService fetches statement files. gcsuploader.Client implements it.
type StorageService interface {
	FetchURI(ctx context.Context, gcsURI string) ([]byte, error)
}

// StatementParser turns statement text into transactions.
// extraction.Extractor implements it.
type StatementParser interface {
	Parse(ctx context.Context, text string, opts extraction.Options) *extraction.ParseResult
}

// TransactionSink persists extracted transactions.
type TransactionSink interface {
	InsertTransactions(ctx context.Context, txs []domain.Transaction) error
}

// StoreLearner records merchants seen on imported statements.
// learning.Store implements it.
type StoreLearner interface {
	Observe(ctx context.Context, store, description, category string, amount float64) error
}
