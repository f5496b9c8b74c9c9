package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/credit-report/internal/app"
	"github.com/dvloznov/credit-report/internal/config"
	"github.com/dvloznov/credit-report/internal/jobs"
	"github.com/dvloznov/credit-report/internal/jobs/inmemory"
	"github.com/dvloznov/credit-report/internal/logger"
)

// The worker reads "<user_id> <gs://uri>" lines from stdin and analyses each
// statement. In production the queue would be Cloud Tasks or Pub/Sub.
func main() {
	bootLog := logger.New()
	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer services.Close()
	if services.Storage == nil {
		log.Fatal().Msg("GCS_BUCKET must be set for the worker")
	}

	// Initialize job store and queue
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, jobStore, inmemory.WithWorkers(cfg.WorkerCount))

	log.Info().Msg("Starting worker service")

	// Start consuming jobs
	if err := jobQueue.Start(ctx, services.Analyzer.JobHandler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) != 2 {
				log.Warn().Str("line", scanner.Text()).Msg("Expected \"<user_id> <gs://uri>\"")
				continue
			}
			job := &jobs.AnalyzeStatementJob{UserID: fields[0], GCSURI: fields[1]}
			if err := jobQueue.PublishAnalyzeStatement(ctx, job); err != nil {
				log.Error().Err(err).Msg("Failed to enqueue job")
				return
			}
			log.Info().Str("job_id", job.JobID).Str("user_id", job.UserID).Msg("Enqueued job")
		}
	}()

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()

	log.Info().Msg("Worker service exited")
}
