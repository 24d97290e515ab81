package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tungarlabs/fuelbills/internal/common"
	"github.com/tungarlabs/fuelbills/internal/document"
	"github.com/tungarlabs/fuelbills/internal/export"
	"github.com/tungarlabs/fuelbills/internal/ingest"
	"github.com/tungarlabs/fuelbills/internal/llm/gemini"
	"github.com/tungarlabs/fuelbills/internal/pipeline"
	"github.com/tungarlabs/fuelbills/internal/repository"
)

// pendingFileIDs picks the file IDs to process out of an ingestion run:
// failures are dropped, and a duplicate-content sighting is dropped too so
// one piece of content is extracted exactly once.
func pendingFileIDs(results []ingest.IngestionResult, logger *slog.Logger) []uuid.UUID {
	if logger == nil {
		logger = slog.Default()
	}
	var ids []uuid.UUID
	for _, res := range results {
		if res.Err != "" {
			continue
		}
		if res.Deduplicated {
			logger.Info("skipping duplicate content", "source_path", res.SourcePath, "file_id", res.FileID)
			continue
		}
		fileID, err := uuid.Parse(res.FileID)
		if err != nil {
			logger.Error("failed to parse file ID", "file_id", res.FileID, "error", err)
			continue
		}
		ids = append(ids, fileID)
	}
	return ids
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir     = flag.String("dir", "", "directory to process fuel bills from (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		fromStr = flag.String("from", "", "from date YYYY-MM-DD")
		toStr   = flag.String("to", "", "to date YYYY-MM-DD")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "fuelbills.xlsx")
	}

	var from, to *time.Time
	if *fromStr != "" {
		parsed, err := time.Parse("2006-01-02", *fromStr)
		if err != nil {
			printError("Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		from = &parsed
	}
	if *toStr != "" {
		parsed, err := time.Parse("2006-01-02", *toStr)
		if err != nil {
			printError("Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		to = &parsed
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	dbCfg := cfg.Database
	if *inmem {
		dbCfg.Driver = "sqlite"
		dbCfg.DSN = ":memory:"
	}
	store, err := repository.Open(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("failed to open database", "driver", dbCfg.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	filesRepo := repository.NewBillFileRepository(store, logger)
	jobsRepo := repository.NewExtractJobRepository(store, logger)
	billsRepo := repository.NewBillRepository(store, logger)

	loader := document.New(document.Config{Logger: logger})

	if cfg.LLM.APIKey == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		printError("Error: GOOGLE_API_KEY is required\n")
		os.Exit(1)
	}
	model := gemini.NewClient(gemini.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	logger.Info("model client initialized", "model", cfg.LLM.Model)

	processor := pipeline.NewProcessor(logger, loader, model, filesRepo, jobsRepo, billsRepo, cfg.LLM.Model)
	ingestor := ingest.NewFSIngestor(filesRepo, logger)

	logger.Info("starting ingestion", "dir", *dir)
	results, stats, err := ingestor.IngestDirectory(ctx, *dir, true)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}

	ingested := pendingFileIDs(results, logger)
	logger.Info("ingestion complete",
		"files_ingested", len(ingested),
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	processed := 0
	failures := 0
	for _, fileID := range ingested {
		logger.Info("processing file", "file_id", fileID)
		if _, err := processor.ProcessFile(ctx, fileID); err != nil {
			logger.Error("failed to process file", "file_id", fileID, "error", err)
			failures++
			continue
		}
		processed++
	}

	logger.Info("exporting to XLSX", "output", *out)
	exporter := export.NewService(billsRepo, logger)
	xlsxBytes, err := exporter.ExportBillsXLSX(ctx, from, to)
	if err != nil {
		logger.Error("failed to export bills", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_ingested", len(ingested),
		"files_processed", processed,
		"failures", failures,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files ingested: %d\n", len(ingested))
	fmt.Printf("- Files processed: %d\n", processed)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
}
