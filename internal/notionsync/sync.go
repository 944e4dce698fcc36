package notionsync

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

// BatchSize is the number of transactions logged as one progress batch.
const BatchSize = 100

// Options controls a sync run.
type Options struct {
	DryRun bool
	// Prune archives pages whose transaction is not in the synced set.
	Prune bool
}

// Result counts what a sync did or, in a dry run, would do.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Syncer writes transactions into one Notion database.
type Syncer struct {
	notion     NotionService
	databaseID string
	log        zerolog.Logger
}

// NewSyncer creates a Syncer for databaseID.
func NewSyncer(notion NotionService, databaseID string, log zerolog.Logger) *Syncer {
	return &Syncer{notion: notion, databaseID: databaseID, log: log}
}

// SyncRange reads transactions dated from..to from source and syncs them.
func (s *Syncer) SyncRange(ctx context.Context, source TransactionSource, from, to civil.Date, opts Options) (Result, error) {
	txs, err := source.QueryTransactions(ctx, from, to)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query transactions: %w", err)
	}
	s.log.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Int("transaction_count", len(txs)).
		Msg("Retrieved transactions")
	return s.Sync(ctx, txs, opts)
}

// Sync creates a page per new transaction and updates pages whose
// Transaction ID already exists. Per-page failures are logged and counted,
// not returned.
func (s *Syncer) Sync(ctx context.Context, txs []domain.Transaction, opts Options) (Result, error) {
	res := Result{Total: len(txs)}

	pages, err := s.queryAllPages(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	pageByTx := make(map[string]string, len(pages))
	for _, p := range pages {
		if id := transactionIDOf(p); id != "" {
			pageByTx[id] = string(p.ID)
		}
	}

	if opts.Prune {
		wanted := make(map[string]bool, len(txs))
		for _, tx := range txs {
			wanted[tx.ID] = true
		}
		for _, p := range pages {
			id := transactionIDOf(p)
			if wanted[id] {
				continue
			}
			if !opts.DryRun {
				if err := s.notion.DeletePage(ctx, string(p.ID)); err != nil {
					s.log.Warn().Err(err).Str("page_id", string(p.ID)).Msg("Failed to delete stale Notion page")
					res.Failed++
					continue
				}
			}
			res.Deleted++
		}
	}

	for i, tx := range txs {
		if i%BatchSize == 0 {
			s.log.Debug().Int("batch_start", i).Msg("Processing batch")
		}

		pageID, exists := pageByTx[tx.ID]
		if opts.DryRun {
			if exists {
				res.Updated++
			} else {
				res.Created++
			}
			continue
		}

		props := TransactionToNotionProperties(tx)
		if exists {
			if _, err := s.notion.UpdatePage(ctx, pageID, props); err != nil {
				s.log.Warn().Err(err).Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		if _, err := s.notion.CreatePage(ctx, s.databaseID, props); err != nil {
			s.log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		res.Created++
	}

	s.log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Bool("dry_run", opts.DryRun).
		Msg("Notion sync finished")
	return res, nil
}

// queryAllPages follows the cursor until every page has been read.
func (s *Syncer) queryAllPages(ctx context.Context) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := s.notion.QueryDatabase(ctx, s.databaseID, req)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
