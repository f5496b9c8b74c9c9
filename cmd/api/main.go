package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/credit-report/internal/api"
	"github.com/dvloznov/credit-report/internal/api/handlers"
	"github.com/dvloznov/credit-report/internal/api/middleware"
	"github.com/dvloznov/credit-report/internal/app"
	"github.com/dvloznov/credit-report/internal/config"
	"github.com/dvloznov/credit-report/internal/jobs/inmemory"
	"github.com/dvloznov/credit-report/internal/logger"
)

func main() {
	// Parse command-line flags
	port := flag.String("port", "", "HTTP server port (overrides PORT)")
	flag.Parse()

	bootLog := logger.New()
	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer services.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, jobStore, inmemory.WithWorkers(cfg.WorkerCount))

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, services.Analyzer.JobHandler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Initialize handlers
	h := api.Handlers{
		Analysis: handlers.NewAnalysisHandler(services.Analyzer, cfg.MaxUploadBytes, log),
		Reports:  handlers.NewReportsHandler(services.Store, log),
		Chat:     handlers.NewChatHandler(services.Advisor, log),
		Jobs:     handlers.NewJobsHandler(jobStore, log),
	}
	if services.Storage != nil {
		h.Statements = handlers.NewStatementsHandler(services.Storage, jobQueue, cfg.GCSBucket, cfg.MaxUploadBytes, log)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// Create HTTP server. Analysis waits on the model and the scorer, so the
	// write timeout covers both.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(h, limiter, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2*cfg.LLMTimeout + cfg.ScoringTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("report_store", cfg.ReportStore).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
