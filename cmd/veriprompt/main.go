package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"veriprompt/internal/config"
	"veriprompt/internal/generate"
	"veriprompt/internal/pipeline"
	"veriprompt/internal/publish"
	"veriprompt/internal/server"
	"veriprompt/internal/traits"
)

func main() {
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Pinning.JWT == "" {
		logger.Warn("PINATA_JWT environment variable is not set; publishing will fail")
	}

	ctx := context.Background()

	imagen, err := generate.NewImagenClient(generate.ImagenConfig{
		Endpoint: cfg.Generator.Endpoint,
		Model:    cfg.Generator.Model,
		APIKey:   cfg.Generator.APIKey,
	})
	if err != nil {
		logger.Fatal("Failed to initialize generator", zap.Error(err))
	}
	invoker := generate.NewRetrying(imagen, logger)

	labeler, err := traits.NewGeminiLabeler(ctx, cfg.Generator.APIKey, cfg.Generator.LabelModel)
	if err != nil {
		logger.Fatal("Failed to initialize labeler", zap.Error(err))
	}

	store, err := publish.NewS3Store(publish.S3Config{
		Endpoint:  cfg.Store.Endpoint,
		Region:    cfg.Store.Region,
		AccessKey: cfg.Store.AccessKey,
		SecretKey: cfg.Store.SecretKey,
		Bucket:    cfg.Store.Bucket,
		UseSSL:    cfg.Store.UseSSL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize object store", zap.Error(err))
	}
	pinner := publish.NewPinataClient(publish.PinataConfig{
		JWT:      cfg.Pinning.JWT,
		Endpoint: cfg.Pinning.Endpoint,
		Gateway:  cfg.Pinning.Gateway,
	})
	publisher := publish.NewDualPublisher(store, pinner, logger)

	pipe := pipeline.New(invoker, labeler, publisher, cfg.DeleteAfterPin, logger)

	handler := server.NewHandler(pipe, logger)
	mux := server.NewMux(handler)
	srv := server.New(cfg.Port, server.CORS(server.RequestLog(logger)(mux)), logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	return cfg.Build()
}
