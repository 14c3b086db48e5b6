package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/adapter/postgres"
	"github.com/user/listing-pipeline/internal/bootstrap"
	"github.com/user/listing-pipeline/internal/delivery/http/handler"
	"github.com/user/listing-pipeline/internal/delivery/http/router"
	"github.com/user/listing-pipeline/internal/usecase"
	"github.com/user/listing-pipeline/pkg/config"
	"github.com/user/listing-pipeline/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// --- Stores ---
	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	stores, err := bootstrap.OpenStores(connectCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to open stores", zap.Error(err))
	}
	defer stores.Close(context.Background())

	// --- Use Cases ---
	runStatus := usecase.NewRunStatus(
		postgres.NewStageRunRepo(stores.Postgres),
		postgres.NewFailedListingRepo(stores.Postgres),
		log,
	)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(runStatus, stores.HealthChecks(), log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exiting")
}
