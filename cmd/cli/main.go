package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/app"
	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	switch os.Args[1] {
	case "parse":
		runParse(cfg, log)
	case "ingest":
		runIngest(cfg, log)
	case "upload":
		runUpload(cfg, log)
	case "message":
		runMessage(cfg, log)
	case "failed":
		runFailed(cfg, log)
	case "descriptions":
		runDescriptions(cfg, log)
	case "transactions":
		runTransactions(cfg, log)
	case "sync-notion":
		runSyncNotion(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Extractor CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse         Parse a statement file (PDF, CSV or text) to JSON or CSV")
	fmt.Println("  ingest        Parse a statement from GCS or disk and store it in BigQuery")
	fmt.Println("  upload        Upload a statement file to GCS")
	fmt.Println("  message       Parse an SMS or notification into a transaction")
	fmt.Println("  failed        List or clean up messages that could not be parsed")
	fmt.Println("  descriptions  Manage learned store descriptions")
	fmt.Println("  transactions  List stored transactions for a date range")
	fmt.Println("  sync-notion   Sync stored transactions to a Notion database")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// bootstrap builds the shared components or exits.
func bootstrap(ctx context.Context, cfg *config.Config, log zerolog.Logger) *app.App {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize components")
	}
	return a
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
