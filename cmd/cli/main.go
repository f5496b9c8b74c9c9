package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-report/internal/app"
	"github.com/dvloznov/credit-report/internal/config"
	"github.com/dvloznov/credit-report/internal/gcsuploader"
	"github.com/dvloznov/credit-report/internal/logger"
	"github.com/dvloznov/credit-report/internal/pdftext"
	"github.com/dvloznov/credit-report/internal/pipeline"
	"github.com/dvloznov/credit-report/internal/reportstore"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(log)
	case "upload":
		runUpload(log)
	case "report":
		runReport(log)
	case "extract":
		runExtract(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Credit Report CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze   Analyse a statement (local file or gs:// URI) and print the report")
	fmt.Println("  upload    Upload a statement PDF to GCS")
	fmt.Println("  report    Print the latest stored report for a user")
	fmt.Println("  extract   Print the text extracted from a statement PDF")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func loadConfig(log zerolog.Logger) *config.Config {
	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg
}

func runAnalyze(log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	file := fs.String("file", "", "Path to a local statement PDF")
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the statement PDF")
	userID := fs.String("user", "", "Save the report for this user id")
	fs.Parse(os.Args[2:])

	if (*file == "") == (*gcsURI == "") {
		log.Fatal().Msg("Exactly one of --file or --gcs-uri is required")
	}

	cfg := loadConfig(log)
	log = logger.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer services.Close()

	var res *pipeline.Result
	if *file != "" {
		data, readErr := os.ReadFile(*file)
		if readErr != nil {
			log.Fatal().Err(readErr).Str("file", *file).Msg("Failed to read statement")
		}
		res, err = services.Analyzer.AnalyzePDF(ctx, *userID, data)
	} else {
		if services.Storage == nil {
			log.Fatal().Msg("GCS_BUCKET must be set to analyse a gs:// statement")
		}
		res, err = services.Analyzer.AnalyzeGCS(ctx, *userID, *gcsURI)
	}
	if err != nil {
		log.Fatal().Err(err).Str("stage", string(pipeline.KindOf(err))).Msg("Analysis failed")
	}

	if res.PersistErr != nil {
		log.Warn().Err(res.PersistErr).Msg("Report was not saved")
	}
	printJSON(res.Report)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to local PDF file")
	userID := fs.String("user", "", "Owner of the statement")
	objectName := fs.String("object", "", "GCS object name (defaults to statements/<user>/<uuid>-<file>)")
	fs.Parse(os.Args[2:])

	if *filePath == "" || *userID == "" {
		log.Fatal().Msg("Usage: cli upload -file PATH -user ID [-object NAME]")
	}

	cfg := loadConfig(log)
	if cfg.GCSBucket == "" {
		log.Fatal().Msg("GCS_BUCKET must be set")
	}
	if *objectName == "" {
		*objectName = gcsuploader.StatementObjectName(*userID, filepath.Base(*filePath))
	}

	ctx := logger.WithContext(context.Background(), log)

	storage, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storage.Close()

	log.Info().
		Str("bucket", cfg.GCSBucket).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	uri, err := storage.UploadFile(ctx, cfg.GCSBucket, *objectName, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func runReport(log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	userID := fs.String("user", "", "User id")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	cfg := loadConfig(log)
	ctx := logger.WithContext(context.Background(), log)

	store, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open report store")
	}
	defer closeStore()

	report, err := store.GetLatest(ctx, *userID)
	if errors.Is(err, reportstore.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "No report stored for %s\n", *userID)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load report")
	}

	fmt.Println("\n=== Credit Report ===")
	fmt.Printf("User:     %s\n", report.UserID)
	fmt.Printf("Score:    %d (%s)\n", report.CreditScore, report.RiskCategory)
	fmt.Printf("Updated:  %s\n", report.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("Summary:  %s\n", report.AISummary.Summary)
	printList("Strengths", report.AISummary.Strengths)
	printList("Weaknesses", report.AISummary.Weaknesses)
	printList("Improvements", report.AISummary.Improvements)

	fmt.Printf("\n=== Transactions (%d) ===\n", len(report.ParsedTransactions))
	for i, tx := range report.ParsedTransactions {
		fmt.Printf("%3d. %-10s %12.2f  %s\n", i+1, tx.Date, tx.Amount, tx.Description)
	}
	fmt.Println()
}

func runExtract(log zerolog.Logger) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	file := fs.String("file", "", "Path to a local statement PDF")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statement")
	}

	pages, err := pdftext.ExtractPages(data)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to extract text")
	}
	for i, page := range pages {
		fmt.Printf("=== Page %d ===\n%s\n", i+1, page)
	}

	if opening := pdftext.ScrapeOpeningBalance(strings.Join(pages, "\n")); opening != nil {
		fmt.Printf("\nOpening balance: %.2f\n", *opening)
	}
	if !pdftext.IsReadable(pages) {
		fmt.Println("\nWarning: little readable text found; the statement may be scanned.")
	}
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s:\n", title)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
	}
}
