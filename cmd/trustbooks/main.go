package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trustbooks/internal/api"
	"trustbooks/internal/api/handlers"
	"trustbooks/internal/bootstrap"
	"trustbooks/pkg/config"
	"trustbooks/pkg/logger"

	"go.uber.org/zap"
)

// @title TrustBooks API
// @version 1.0
// @description Ingestion service for invoices and bank statements.

// @host localhost:8080
// @BasePath /

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting TrustBooks service",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("queue", cfg.Queue.Driver),
	)

	ctx := context.Background()
	pipeline, err := bootstrap.NewPipeline(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize pipeline", zap.Error(err))
	}

	// Initialize handlers
	invoiceHandler := handlers.NewInvoiceHandler(pipeline.Service, logger.Component("invoices"))
	bankStatementHandler := handlers.NewBankStatementHandler(pipeline.Service, logger.Component("bank_statements"))
	healthHandler := handlers.NewHealthHandler()

	// Setup router
	app := api.SetupRouter(invoiceHandler, bankStatementHandler, healthHandler, api.RouterConfig{
		MaxFileSize:  cfg.Upload.MaxFileSize,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		AccessLog:    cfg.Logger.Level == "debug",
	}, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
	if err := pipeline.Close(shutdownCtx); err != nil {
		appLogger.Error("Pipeline shutdown error", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
