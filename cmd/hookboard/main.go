package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"hookboard/internal/bootstrap"
	"hookboard/internal/config"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger := zapr.NewLogger(zapLogger)

	rt := bootstrap.NewRuntime(ctx, cfg, logger)
	defer rt.Cleanup()

	summary := cfg.Summary()
	logger.Info("startup config", "store_mode", summary.StoreMode, "migrate", summary.Migrate)
	logger.Info("hookboard listening", "addr", cfg.Addr)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           rt.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Error(err, "http server failed")
		log.Fatal(err)
	}
}
