package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/notionsync"
)

// defaultRangeDays is the look-back used when -from is omitted.
const defaultRangeDays = 30

// parseDateRange resolves -from/-to flags. Empty values default to the last
// defaultRangeDays days ending today.
func parseDateRange(from, to string, today civil.Date) (civil.Date, civil.Date, error) {
	end := today
	if to != "" {
		d, err := civil.ParseDate(to)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid -to date: %w", err)
		}
		end = d
	}

	start := end.AddDays(-defaultRangeDays)
	if from != "" {
		d, err := civil.ParseDate(from)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid -from date: %w", err)
		}
		start = d
	}

	if end.Before(start) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("-from %s is after -to %s", start, end)
	}
	return start, end, nil
}

func runTransactions(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	from := fs.String("from", "", "Start date YYYY-MM-DD (default 30 days ago)")
	to := fs.String("to", "", "End date YYYY-MM-DD (default today)")
	fs.Parse(os.Args[2:])

	start, end, err := parseDateRange(*from, *to, civil.DateOf(time.Now()))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date range")
	}

	ctx := logger.WithContext(context.Background(), log)
	a := bootstrap(ctx, cfg, log)
	defer a.Close()

	if err := a.RequireBigQuery(); err != nil {
		log.Fatal().Err(err).Msg("BigQuery is not configured")
	}

	txs, err := a.BigQuery.QueryTransactions(ctx, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	fmt.Printf("\n=== Transactions %s to %s (%d) ===\n", start, end, len(txs))
	for i, tx := range txs {
		fmt.Printf("\n%d. %s\n", i+1, tx.Description)
		fmt.Printf("   Date:     %s\n", tx.Date)
		fmt.Printf("   Amount:   %.2f %s\n", tx.SignedAmount(), tx.Direction())
		fmt.Printf("   Store:    %s\n", tx.Store)
		fmt.Printf("   Category: %s\n", tx.Category)
		if tx.Balance != nil {
			fmt.Printf("   Balance:  %.2f\n", *tx.Balance)
		}
	}
	fmt.Println()
}

func runSyncNotion(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	from := fs.String("from", "", "Start date YYYY-MM-DD (default 30 days ago)")
	to := fs.String("to", "", "End date YYYY-MM-DD (default today)")
	dryRun := fs.Bool("dry-run", false, "Show what would change without writing to Notion")
	prune := fs.Bool("prune", false, "Delete Notion pages whose transaction is not in the range")
	fs.Parse(os.Args[2:])

	if cfg.NotionToken == "" || cfg.NotionDatabaseID == "" {
		log.Fatal().Msg("NOTION_TOKEN and NOTION_DATABASE_ID are required")
	}

	start, end, err := parseDateRange(*from, *to, civil.DateOf(time.Now()))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date range")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := bootstrap(ctx, cfg, log)
	defer a.Close()

	if err := a.RequireBigQuery(); err != nil {
		log.Fatal().Err(err).Msg("BigQuery is not configured")
	}

	syncer := notionsync.NewSyncer(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDatabaseID, log)
	res, err := syncer.SyncRange(ctx, a.BigQuery, start, end, notionsync.Options{DryRun: *dryRun, Prune: *prune})
	if err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	fmt.Printf("Synced %d transactions: %d created, %d updated, %d deleted, %d failed.\n",
		res.Total, res.Created, res.Updated, res.Deleted, res.Failed)
}
