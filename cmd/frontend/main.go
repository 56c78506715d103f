package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"irisapi/config"
	"irisapi/frontend"
	irishttp "irisapi/http"
	"irisapi/logging"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ui, err := frontend.New(cfg.Frontend, logger)
	if err != nil {
		logger.Fatal("failed to build frontend", zap.Error(err))
	}

	chain := irishttp.Chain(
		irishttp.RecoveryMiddleware(logger),
		irishttp.RequestIDMiddleware,
		irishttp.LoggerMiddleware(logger),
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Frontend.Port),
		Handler:           chain(ui.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting frontend",
			zap.String("addr", server.Addr),
			zap.String("api_url", cfg.Frontend.APIURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("frontend server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", zap.Error(err))
	}
}
