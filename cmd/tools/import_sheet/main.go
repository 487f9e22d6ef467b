package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/subosito/gotenv"

	"it-inventory-api/internal/config"
	"it-inventory-api/internal/inventory"
	"it-inventory-api/internal/logger"
	"it-inventory-api/internal/notify"
	"it-inventory-api/internal/store"
	"it-inventory-api/pkg/importer"
)

func main() {
	var (
		filePath    = flag.String("file", "", "CSV or XLSX file to import")
		entity      = flag.String("entity", "assets", "What the file holds: assets or employees")
		mappingPath = flag.String("mapping", "", "Column mapping YAML (defaults to the built-in mapping)")
		dryRun      = flag.Bool("dry-run", false, "Validate only; write nothing")
		maxErrors   = flag.Int("max-errors", 50, "Maximum row errors to print")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Println("Usage: import_sheet --file=path.xlsx [--entity=assets|employees] [--mapping=...] [--dry-run]")
		os.Exit(1)
	}
	format, err := importer.FormatFromFilename(*filePath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	_ = gotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	mapping := importer.DefaultMapping()
	if *mappingPath != "" {
		if mapping, err = importer.LoadMapping(*mappingPath); err != nil {
			log.Fatalf("Failed to load mapping: %v", err)
		}
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseDSN, 2)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	lg := logger.New(cfg.LogLevel, cfg.LogFormat)
	svc := inventory.New(st, notify.NewSender(cfg.SMTP, lg), lg, inventory.WithMapping(mapping))

	file, err := os.Open(*filePath)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer file.Close()

	fmt.Printf("Importing %s from %s (dry_run=%v)\n", *entity, *filePath, *dryRun)
	fmt.Println(strings.Repeat("=", 60))

	opts := importer.ImportOptions{DryRun: *dryRun, MaxErrors: *maxErrors}
	var summary importer.ImportSummary
	switch *entity {
	case "assets":
		summary, err = svc.ImportAssets(ctx, inventory.Actor{}, file, format, opts)
	case "employees":
		summary, err = svc.ImportEmployees(ctx, inventory.Actor{}, file, format, opts)
	default:
		log.Fatalf("Unknown entity %q", *entity)
	}
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Println("IMPORT SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Imported: %d\n", summary.SuccessCount)
	fmt.Printf("Errors: %d\n", summary.ErrorCount)
	fmt.Printf("Dry run: %v\n", summary.DryRun)
	for _, msg := range summary.Errors {
		fmt.Printf("  %s\n", msg)
	}
	if summary.Truncated {
		fmt.Printf("  ... %d more\n", summary.ErrorCount-len(summary.Errors))
	}
}
