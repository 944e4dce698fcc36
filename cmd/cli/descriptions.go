package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/logger"
)

func runDescriptions(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("descriptions", flag.ExitOnError)
	store := fs.String("store", "", "Store name")
	description := fs.String("description", "", "Description to remember")
	category := fs.String("category", "", "Category to remember")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: cli descriptions [options] list|add|update|delete|similar|stats|categories|clear")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[2:])

	action := "list"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	ctx := logger.WithContext(context.Background(), log)
	a := bootstrap(ctx, cfg, log)
	defer a.Close()
	learned := a.Learned

	requireStore := func() {
		if *store == "" {
			log.Fatal().Str("action", action).Msg("Error: -store is required")
		}
	}

	switch action {
	case "list":
		entries := learned.All()
		fmt.Printf("\n=== Learned Stores (%d) ===\n", len(entries))
		for i, e := range entries {
			manual := ""
			if e.IsManual {
				manual = " (manual)"
			}
			fmt.Printf("\n%d. %s%s\n", i+1, e.OriginalStore, manual)
			fmt.Printf("   Description: %s\n", e.Description)
			fmt.Printf("   Category:    %s\n", e.Category)
			fmt.Printf("   Used:        %d times, last %s\n", e.Count, e.LastUsed.Format("2006-01-02"))
		}
		fmt.Println()

	case "add":
		requireStore()
		if err := learned.CreateManualStore(ctx, *store, *description, *category); err != nil {
			log.Fatal().Err(err).Msg("Failed to add store")
		}
		fmt.Printf("Added %s.\n", *store)

	case "update":
		requireStore()
		if err := learned.UpdateDescription(ctx, *store, *description, *category); err != nil {
			log.Fatal().Err(err).Msg("Failed to update store")
		}
		fmt.Printf("Updated %s.\n", *store)

	case "delete":
		requireStore()
		if err := learned.DeleteDescription(ctx, *store); err != nil {
			log.Fatal().Err(err).Msg("Failed to delete store")
		}
		fmt.Printf("Deleted %s.\n", *store)

	case "similar":
		requireStore()
		m, ok := learned.FindSimilarStore(*store)
		if !ok {
			fmt.Printf("No learned store resembles %q.\n", *store)
			os.Exit(1)
		}
		fmt.Printf("%s (%.0f%%): %s [%s]\n", m.Entry.OriginalStore, m.Similarity*100, m.Entry.Description, m.Entry.Category)

	case "stats":
		st := learned.Stats()
		fmt.Printf("Stores:       %d (%d manual, %d learned)\n", st.TotalStores, st.ManualStores, st.LearnedStores)
		fmt.Printf("Transactions: %d (%.1f per store)\n", st.TotalTransactions, st.AverageTransactionsPerStore)
		names := make([]string, 0, len(st.Categories))
		for c := range st.Categories {
			names = append(names, c)
		}
		sort.Strings(names)
		for _, c := range names {
			fmt.Printf("  %-16s %d\n", c, st.Categories[c])
		}

	case "categories":
		for _, c := range learned.Categories() {
			fmt.Println(c)
		}

	case "clear":
		if err := learned.Clear(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to clear stores")
		}
		fmt.Println("Cleared all learned stores.")

	default:
		fs.Usage()
		os.Exit(1)
	}
}
