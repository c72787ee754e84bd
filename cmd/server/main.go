package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	workdesk "github.com/caldew/workdesk"
	"github.com/caldew/workdesk/internal/auth"
	"github.com/caldew/workdesk/internal/chat"
	"github.com/caldew/workdesk/internal/config"
	"github.com/caldew/workdesk/internal/files"
	"github.com/caldew/workdesk/internal/handler"
	"github.com/caldew/workdesk/internal/llm"
	"github.com/caldew/workdesk/internal/llm/anthropic"
	"github.com/caldew/workdesk/internal/llm/openaichat"
	"github.com/caldew/workdesk/internal/repository"
	"github.com/caldew/workdesk/internal/service"
	"github.com/caldew/workdesk/internal/store"
	"github.com/caldew/workdesk/internal/tools"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(workdesk.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to redis for rate limiting
	var rdb *redis.Client
	if opts, err := redis.ParseURL(cfg.RedisURL); err != nil {
		slog.Warn("invalid redis url, rate limiting disabled", "error", err)
	} else {
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, rate limiting disabled", "error", err)
			rdb = nil
		}
	}

	// Object store and signed links
	objects, err := store.NewDisk(cfg.StorageDir)
	if err != nil {
		slog.Error("failed to open file store", "error", err)
		os.Exit(1)
	}
	signer := store.NewSigner(cfg.JWTSecret)

	// Repositories and services
	users := repository.NewUserRepository(pool)
	fileRepo := repository.NewFileRepository(pool)
	sessions := repository.NewSessionRepository(pool, chat.EvictionPolicy{
		MaxBytes:     config.MaxSessionStoreBytes,
		KeepSessions: config.EvictionKeepSessions,
	})

	authService := auth.NewService(users, cfg.JWTSecret)
	fileService := files.NewService(objects, fileRepo, signer)

	// Tools shared by every provider
	registry := tools.NewRegistry()
	tools.RegisterCurrentTime(registry, time.Now)
	tools.RegisterFetchURL(registry, nil)

	orchestrator := chat.NewOrchestrator(registry, chat.ParseRoundLimitMode(cfg.OnRoundLimit))

	// Providers; an absent API key leaves the provider unregistered and
	// its endpoint answers with the configuration error.
	providers := make(map[string]llm.Provider)
	if cfg.AnthropicAPIKey != "" {
		providers["anthropic"] = anthropic.NewClient(cfg.AnthropicAPIKey, cfg.WebSearchMaxUses)
	}
	if cfg.OpenAIAPIKey != "" {
		providers["openai"] = openaichat.NewClient("openai", cfg.OpenAIAPIKey, "", config.DefaultOpenAIModel, openaichat.ImageParts)
	}
	if cfg.CerebrasAPIKey != "" {
		providers["cerebras"] = openaichat.NewClient("cerebras", cfg.CerebrasAPIKey, "https://api.cerebras.ai/v1", config.DefaultCerebrasModel, openaichat.ImageInlineText)
	}
	if cfg.OllamaBaseURL != "" {
		providers["ollama"] = openaichat.NewClient("ollama", "ollama", cfg.OllamaBaseURL, config.DefaultOllamaModel, openaichat.ImageInlineText)
	}
	enabled := make([]string, 0, len(providers))
	for name := range providers {
		enabled = append(enabled, name)
	}
	catalog := service.NewModelCatalog(enabled)

	h := handler.New(handler.Deps{
		Cfg:          cfg,
		AuthService:  authService,
		FileService:  fileService,
		Sessions:     sessions,
		Orchestrator: orchestrator,
		Providers:    providers,
		Catalog:      catalog,
		Redis:        rdb,
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	h.Register(engine)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	go func() {
		slog.Info("starting server", "addr", srv.Addr, "providers", enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	slog.Info("server stopped gracefully")
}
