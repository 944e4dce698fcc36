package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/messages"
)

func runMessage(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("message", flag.ExitOnError)
	text := fs.String("text", "", "Message text (reads stdin when empty)")
	source := fs.String("source", string(domain.SourceSMS), "Message source: sms or notification")
	fs.Parse(os.Args[2:])

	body := *text
	if body == "" {
		data, err := readAllStdin()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read message from stdin")
		}
		body = data
	}
	if strings.TrimSpace(body) == "" {
		log.Fatal().Msg("Usage: cli message -text TEXT [-source sms|notification]")
	}

	ctx := logger.WithContext(context.Background(), log)
	a := bootstrap(ctx, cfg, log)
	defer a.Close()

	tx, err := a.Ingestor.Process(ctx, messages.Message{Text: body, Source: domain.Source(*source)})
	if err != nil {
		var unparsed *messages.UnparsedError
		if errors.As(err, &unparsed) {
			fmt.Printf("Message not recognized. Stored as failed attempt %s.\n", unparsed.AttemptID)
			os.Exit(2)
		}
		if tx == nil {
			log.Fatal().Err(err).Msg("Message processing failed")
		}
		log.Error().Err(err).Msg("Transaction parsed but not stored")
	}

	if err := printJSON(os.Stdout, tx); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}

func runFailed(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("failed", flag.ExitOnError)
	source := fs.String("source", "", "Only list attempts from this source")
	cleanup := fs.Duration("cleanup", 0, "Remove processed attempts older than this, e.g. 720h")
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	a := bootstrap(ctx, cfg, log)
	defer a.Close()

	if *cleanup > 0 {
		removed, err := a.Failed.Cleanup(ctx, *cleanup)
		if err != nil {
			log.Fatal().Err(err).Msg("Cleanup failed")
		}
		fmt.Printf("Removed %d processed attempts.\n", removed)
		return
	}

	attempts := a.Failed.Unprocessed(domain.Source(*source))
	stats := a.Failed.Stats()
	fmt.Printf("\n=== Failed Messages (%d unprocessed of %d) ===\n", stats.Unprocessed, stats.Total)
	for i, at := range attempts {
		fmt.Printf("\n%d. [%s] %s\n", i+1, at.Source, at.ID)
		fmt.Printf("   Received: %s\n", at.Timestamp.Format(time.RFC3339))
		fmt.Printf("   Text:     %s\n", at.OriginalText)
	}
	fmt.Println()
}

func readAllStdin() (string, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return "", err
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	return string(data), err
}
