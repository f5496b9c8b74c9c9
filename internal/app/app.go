// Package app wires the services shared by the server, the worker and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-report/internal/advisor"
	"github.com/dvloznov/credit-report/internal/config"
	"github.com/dvloznov/credit-report/internal/gcsuploader"
	infraBQ "github.com/dvloznov/credit-report/internal/infra/bigquery"
	"github.com/dvloznov/credit-report/internal/infra/sqlite"
	"github.com/dvloznov/credit-report/internal/llm"
	"github.com/dvloznov/credit-report/internal/notionsync"
	"github.com/dvloznov/credit-report/internal/pdftext"
	"github.com/dvloznov/credit-report/internal/pipeline"
	"github.com/dvloznov/credit-report/internal/reportstore"
	reportmem "github.com/dvloznov/credit-report/internal/reportstore/inmemory"
	"github.com/dvloznov/credit-report/internal/scoring"
)

// App holds the long-lived services. Storage is nil when no bucket is configured.
type App struct {
	Config   *config.Config
	Store    reportstore.Store
	Storage  *gcsuploader.GCSStorageService
	Analyzer *pipeline.Analyzer
	Advisor  *advisor.Advisor

	closers []func() error
}

// New builds the services described by cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg}

	store, closeStore, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	if cfg.GCSBucket != "" {
		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		a.Storage = storage
		a.closers = append(a.closers, storage.Close)
	} else {
		log.Warn().Msg("No GCS bucket configured - statement archiving is disabled")
	}

	genaiClient, err := llm.NewClient(ctx, "")
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}

	deps := pipeline.Deps{
		Source:         pdftext.NewExtractor(),
		Extractor:      pipeline.NewGeminiCandidateExtractor(genaiClient.Models, cfg.LLMModel),
		Scorer:         scoring.NewClient(cfg.ScoringURL, cfg.ScoringTimeout, nil),
		Narrator:       pipeline.NewGeminiNarrator(genaiClient.Models, cfg.LLMModel),
		Store:          a.Store,
		MaxChars:       cfg.ExtractMaxChars,
		ScoringTimeout: cfg.ScoringTimeout,
		LLMTimeout:     cfg.LLMTimeout,
	}
	// Optional collaborators stay nil interfaces when disabled.
	if a.Storage != nil {
		deps.Storage = a.Storage
	}
	if cfg.NotionEnabled() {
		deps.Mirror = notionsync.NewReportMirror(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionReportsDBID)
		log.Info().Str("database_id", cfg.NotionReportsDBID).Msg("Mirroring reports to Notion")
	}

	a.Analyzer = pipeline.NewAnalyzer(deps)
	a.Advisor = advisor.NewAdvisor(genaiClient.Models, cfg.LLMModel)

	return a, nil
}

// OpenStore opens the report backend selected by cfg.ReportStore, wrapped in
// a read cache when ReportCacheTTL is set.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (reportstore.Store, func() error, error) {
	store, closeFn, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.ReportCacheTTL > 0 {
		store = reportstore.NewCached(store, cfg.ReportCacheTTL)
	}
	return store, closeFn, nil
}

func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (reportstore.Store, func() error, error) {
	switch cfg.ReportStore {
	case config.StoreBigQuery:
		repo, err := infraBQ.NewBigQueryReportRepository(ctx, cfg.GCPProjectID, cfg.BQDataset)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("project", cfg.GCPProjectID).Str("dataset", cfg.BQDataset).Msg("Using BigQuery report store")
		store := infraBQ.NewReportStore(repo)
		return store, store.Close, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("Using SQLite report store")
		return store, store.Close, nil
	default:
		log.Warn().Msg("Using in-memory report store - reports are lost on restart")
		return reportmem.NewStore(), func() error { return nil }, nil
	}
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
