package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/victoroki/MPESAAnalyzer/internal/ai"
	"github.com/victoroki/MPESAAnalyzer/internal/amqp"
	"github.com/victoroki/MPESAAnalyzer/internal/cli"
	apphttp "github.com/victoroki/MPESAAnalyzer/internal/http"
	"github.com/victoroki/MPESAAnalyzer/internal/services"
	"github.com/victoroki/MPESAAnalyzer/internal/sms/memory"
	"github.com/victoroki/MPESAAnalyzer/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting mpesa server")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	inbox, err := memory.NewFromFile(cfg.SMSInboxFile)
	if err != nil {
		logger.Error("Failed to load SMS inbox", "error", err, "path", cfg.SMSInboxFile)
		os.Exit(1)
	}

	engine := services.NewSyncEngine(repo, inbox, inbox)

	// AMQP is optional; without it sync results stay local.
	var publisher worker.SyncPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, sync events disabled", "error", err)
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	creds := ai.NewCredentialStore(repo)
	advisor := ai.NewAdvisor(ai.NewGemini(cfg.GeminiModel, creds))

	scheduler := worker.NewScheduler(engine, repo, publisher, worker.SchedulerConfig{
		Interval: cfg.SyncInterval,
	})

	srv := apphttp.NewServer(":"+cfg.Port, repo, repo, engine, advisor, creds)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Error("Scheduler stop error", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start sync scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting HTTP server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	slog.Info("Server stopped gracefully")
}
