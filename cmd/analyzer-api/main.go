package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/api"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/api/uistatic"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/app"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/auth"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/chat"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/config"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/maintenance"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
)

func main() {
	envFile := os.Getenv("ANALYZER_ENV_FILE")
	if envFile == "" {
		envFile = "Configuration.env"
	}
	cfg, _, err := config.LoadDotEnv("analyzer-api", envFile)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	rt, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build runtime", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = rt.Close() }()

	sessions := chat.NewRegistry()
	sweeper := &maintenance.Service{
		Sessions: sessions,
		Config: maintenance.Config{
			SweepInterval: cfg.Sessions.SweepInterval,
			IdleTTL:       cfg.Sessions.IdleTTL,
		},
		Logger: logger,
	}
	deps := api.Dependencies{
		Logger:       logger,
		Sessions:     sessions,
		Bootstrap:    &rt.Bootstrap,
		Conversation: rt.Orchestrator,
		UI:           uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabase(rt.Engine.Ping),
			api.CheckArtifactStoreConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if rt.Artifacts != nil {
		deps.Artifacts = rt.Artifacts
		sweeper.Artifacts = rt.Artifacts
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("api key auth enabled", slog.Int("keys", validator.Len()))
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() { _ = sweeper.Run(ctx) }()
	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
