package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"chatfic/internal/app"
	"chatfic/internal/config"
	"chatfic/internal/server"
	"chatfic/internal/util"
	"chatfic/pkg/ai"
	"chatfic/pkg/storage"
	"chatfic/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	storyStore, err := buildStore(cfg)
	if err != nil {
		util.Fatal("failed to init store", "err", err)
	}

	generator, err := buildGenerator(cfg)
	if err != nil {
		util.Fatal("failed to init generator", "err", err)
	}

	var archive *storage.ExportArchive
	if cfg.MinioEndpoint != "" {
		objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			util.Fatal("failed to init object storage", "err", err)
		}
		archive = storage.NewExportArchive(objects, time.Hour)
	}

	appCore, err := app.New(app.Config{
		Store:         storyStore,
		Generator:     generator,
		SessionSecret: cfg.SessionSecret,
		Archive:       archive,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		GenerateRateLimitPerMinute: cfg.GenerateRateLimitPerMinute,
	})
	if err != nil {
		util.Fatal("failed to init http server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: httpServer.Router(),
		// Generation round trips block the handler, so the write timeout
		// has to cover a slow model response.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("chatfic server listening", "addr", addr, "provider", providerName(cfg))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func buildStore(cfg config.FileConfig) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		return store.NewGormStore(cfg.DatabaseURL)
	}
	snap, err := store.NewFileSnapshot(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return store.NewMemoryStore(snap), nil
}

func buildGenerator(cfg config.FileConfig) (ai.ChapterGenerator, error) {
	switch providerName(cfg) {
	case "gemini":
		return ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GenerationModel), nil
	case "openai-compat":
		return ai.NewOpenAICompatGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.GenerationModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func providerName(cfg config.FileConfig) string {
	if cfg.Provider == "" {
		return "gemini"
	}
	return cfg.Provider
}
