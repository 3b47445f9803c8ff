package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/ai"
	"trademark-opposition/backend/internal/api"
	"trademark-opposition/backend/internal/config"
)

func main() {
	config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load configuration: %v", err)
	}
	cfg.ConfigureLogging()

	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.Fatalf("create data directory: %v", err)
		}
	}

	server, err := api.NewServer(api.Config{
		DBPath:          cfg.DBPath,
		SilentDB:        true,
		AllowedOrigins:  cfg.AllowedOrigins,
		RequireAuth:     cfg.RequireAuth,
		Strict:          cfg.Strict,
		MaxItemsPerList: cfg.MaxBatchItemsPerList,
		ChunkSize:       cfg.BatchChunkSize,
		ChunkDelay:      cfg.BatchChunkDelay,
		LexiconPath:     cfg.LexiconPath,
		AIConfig:        ai.Config{DefaultModel: cfg.DefaultModel},
		OpenAIConfig: ai.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.ReasoningTimeout,
		},
		AnthropicAPIKey: cfg.AnthropicKey,
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("graceful shutdown")
		}
	}()

	logrus.Infof("starting trademark opposition backend on :%s", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("server exited: %v", err)
	}
}
