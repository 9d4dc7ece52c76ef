package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/rpattn/fulfill/internal/config"
	"github.com/rpattn/fulfill/internal/db"
	"github.com/rpattn/fulfill/internal/ingestion"
	"github.com/rpattn/fulfill/internal/middleware"
	"github.com/rpattn/fulfill/internal/product"
	"github.com/rpattn/fulfill/internal/repository"
	"github.com/rpattn/fulfill/internal/webhook"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	productRepo := repository.NewProductRepository(conn.Pool)
	jobRepo := repository.NewImportJobRepository(conn.Pool)
	webhookRepo := repository.NewWebhookRepository(conn.Pool)

	deliverer := webhook.NewHTTPDeliverer(cfg.Webhooks.DeliveryTimeout)
	dispatcher := webhook.NewDispatcher(
		webhookRepo,
		deliverer,
		cfg.Webhooks.Workers,
		cfg.Webhooks.QueueSize,
		logger,
	)

	productService := product.NewService(productRepo, dispatcher)
	importService := ingestion.NewService(
		jobRepo,
		ingestion.NewUpserter(productRepo),
		dispatcher,
		cfg.Import.BatchSize,
		logger,
	)
	webhookService := webhook.NewService(webhookRepo, deliverer)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestLogger(logger))
	router.Route("/api", func(r chi.Router) {
		product.NewHandler(productService).Register(r)
		ingestion.NewHandler(importService, cfg.Import.MaxUploadSize).Register(r)
		webhook.NewHandler(webhookService).Register(r)
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}

	// Let in-flight imports finish their current batches and drain the
	// webhook delivery queue before releasing the pool.
	done := make(chan struct{})
	go func() {
		importService.Wait()
		dispatcher.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.Server.ShutdownTimeout):
		logger.Warn().Msg("background work did not drain before deadline")
	}

	logger.Info().Msg("server exited")
}
