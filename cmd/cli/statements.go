package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/extraction"
	"github.com/dvloznov/statement-extractor/internal/gcsuploader"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/dvloznov/statement-extractor/internal/writer"
)

// Output formats of the parse command.
const (
	formatJSON = "json"
	formatCSV  = "csv"
)

func runParse(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the statement (PDF, CSV or text)")
	bankName := fs.String("bank", "", "Bank name used when the statement does not name one")
	useAI := fs.Bool("ai", false, "Try the AI parser first")
	format := fs.String("format", formatJSON, "Output format: json or csv")
	outPath := fs.String("out", "", "Output file (defaults to stdout)")
	learn := fs.Bool("learn", false, "Remember the merchants found in the statement")
	withAccount := fs.Bool("account", false, "Include account columns in CSV output")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Usage: cli parse -file PATH [-format json|csv] [-out PATH]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := bootstrap(ctx, cfg, log)
	defer a.Close()

	raw, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read statement")
	}

	deps := pipeline.Deps{Parser: a.Extractor}
	if *learn {
		deps.Learner = a.Learned
	}
	res, err := pipeline.IngestStatement(ctx, deps, pipeline.Request{
		Raw:      raw,
		BankName: *bankName,
		UseAI:    *useAI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Parse failed")
	}

	out := io.Writer(os.Stdout)
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer f.Close()
		out = f
	}

	if err := writeParseResult(out, *format, *withAccount, res); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}

	log.Info().
		Str("strategy", res.Strategy).
		Int("transactions", len(res.Transactions)).
		Int("skipped", res.Skipped).
		Msg("Statement parsed")
}

func writeParseResult(out io.Writer, format string, withAccount bool, res *extraction.ParseResult) error {
	switch strings.ToLower(format) {
	case formatCSV:
		w := &writer.CSVWriter{IncludeAccount: withAccount}
		return w.Write(out, res.AccountInfo, res.Transactions)
	case formatJSON:
		return printJSON(out, res)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func runIngest(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the statement")
	filePath := fs.String("file", "", "Local statement file, instead of -gcs-uri")
	bankName := fs.String("bank", "", "Bank name used when the statement does not name one")
	useAI := fs.Bool("ai", false, "Try the AI parser first")
	fs.Parse(os.Args[2:])

	if (*gcsURI == "") == (*filePath == "") {
		log.Fatal().Msg("Error: exactly one of -gcs-uri or -file is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := bootstrap(ctx, cfg, log)
	defer a.Close()

	if err := a.RequireBigQuery(); err != nil {
		log.Fatal().Err(err).Msg("BigQuery is not configured")
	}
	if err := a.BigQuery.EnsureTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare transactions table")
	}

	req := pipeline.Request{GCSURI: *gcsURI, BankName: *bankName, UseAI: *useAI}
	if *filePath != "" {
		raw, err := os.ReadFile(*filePath)
		if err != nil {
			log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read statement")
		}
		req.Raw = raw
	} else if _, err := a.EnsureGCS(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}

	log.Info().Str("gcs_uri", *gcsURI).Str("file", *filePath).Msg("Starting ingestion")

	res, err := pipeline.IngestStatement(ctx, a.PipelineDeps(), req)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Printf("Ingested %d transactions (strategy %s, %d lines skipped).\n",
		len(res.Transactions), res.Strategy, res.Skipped)
}

func runUpload(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", cfg.GCSBucket, "GCS bucket name (or set GCS_BUCKET)")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to the local statement file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	client, err := gcsuploader.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer client.Close()

	if err := client.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, gcsuploader.URI(*bucketName, *objectName))
}
