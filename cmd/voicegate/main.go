package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/personalabs/voicegate/internal/auth"
	"github.com/personalabs/voicegate/internal/cache"
	"github.com/personalabs/voicegate/internal/config"
	"github.com/personalabs/voicegate/internal/directory"
	"github.com/personalabs/voicegate/internal/elevenlabs"
	"github.com/personalabs/voicegate/internal/gateway"
	"github.com/personalabs/voicegate/internal/ratelimit"
	"github.com/personalabs/voicegate/internal/telemetry"
	"github.com/personalabs/voicegate/internal/voice"
)

const version = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Loader{}.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting voicegate",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"model", cfg.Model,
		"rate_limit_window_seconds", cfg.RateLimitWindowSeconds,
		"rate_limit_max", cfg.RateLimitMax,
		"quota_store", quotaStoreName(cfg),
	)

	recorder := telemetry.NewRecorder(logger)

	dir := directory.NewClient(cfg.DirectoryBaseURL, cfg.DirectoryToken)

	var quotaStore ratelimit.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		quotaStore = ratelimit.NewRedisStore(client)
	} else {
		quotaStore = ratelimit.NewMemoryStore(nil)
	}
	limiter := ratelimit.New(
		quotaStore,
		time.Duration(cfg.RateLimitWindowSeconds)*time.Second,
		cfg.RateLimitMax,
		logger,
	)

	var synthesizer elevenlabs.Synthesizer
	if cfg.UseStubSynthesizer {
		synthesizer = elevenlabs.NewStubSynthesizer(logger)
		logger.Info("using STUB synthesizer, responses are deterministic and NOT from the ElevenLabs API")
	} else {
		synthesizer = elevenlabs.NewClient(cfg.APIKey)
		logger.Info("ElevenLabs client initialized")
	}

	var audioCache *cache.Cache
	if cfg.CacheMaxSizeMB > 0 && cfg.CacheDir != "" {
		audioCache, err = cache.New(cfg.CacheDir, int64(cfg.CacheMaxSizeMB)*1024*1024, logger)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without", "error", err)
			audioCache = nil
		} else {
			logger.Info("preview cache initialized", "dir", cfg.CacheDir, "max_size_mb", cfg.CacheMaxSizeMB)
		}
	}

	svc := gateway.NewService(
		limiter,
		auth.NewChecker(dir, logger),
		voice.NewResolver(dir, cfg.FallbackVoiceID, logger),
		synthesizer,
		audioCache,
		cfg.Model,
		cfg.OptimizeStreamingLatency,
		recorder,
		logger,
	)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gateway.NewServer(svc, recorder, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Info("voicegate ready to serve requests")

	select {
	case err := <-serverErr:
		logger.Error("http server terminated with error", "error", err)
		os.Exit(1)
	case <-ctx.Done():
		logger.Info("shutdown requested, stopping http server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful stop timed out, forcing close", "error", err)
		httpServer.Close()
	}

	logger.Info("voicegate stopped")
}

func quotaStoreName(cfg config.Config) string {
	if cfg.RedisAddr != "" {
		return "redis"
	}
	return "memory"
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
