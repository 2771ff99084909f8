package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"legalgpt/server/internal/config"
	"legalgpt/server/internal/db"
	internalhttp "legalgpt/server/internal/http"
	"legalgpt/server/internal/rag"
	"legalgpt/server/internal/ratelimit"
	"legalgpt/server/internal/store"
	"legalgpt/server/internal/token"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var userStore store.Store
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		userStore = store.NewPostgresStore(pool)
	} else {
		mem := store.NewMemoryStore()
		if cfg.SeedDemoUser {
			if _, err := mem.Create(ctx, "test@legalgpt.com", "password123", "Test User"); err != nil {
				logger.Warn("seed user failed", "error", err)
			}
		}
		userStore = mem
		logger.Warn("DATABASE_URL not set, using in-memory user store")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Error("redis ping failed", "error", err)
			os.Exit(1)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", "error", err)
			}
		}()
	}
	limiter := ratelimit.New(redisClient, cfg.LoginRateLimit, cfg.LoginRateWindow)

	var chat *rag.Pipeline
	if cfg.OpenAIAPIKey != "" && pool != nil {
		ai := rag.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.ChatModel)
		retriever := rag.NewPostgresRetriever(pool)
		chat = rag.NewPipeline(ai, retriever, ai, cfg.MatchThreshold, cfg.MatchCount)
	} else {
		logger.Warn("chat disabled: requires OPENAI_API_KEY and DATABASE_URL")
	}

	tokens := token.NewService(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})

	server := internalhttp.NewServer(cfg, userStore, tokens, limiter, chat, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("legalgpt server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
