package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bergsoft/invoiceflow/internal/config"
	"github.com/bergsoft/invoiceflow/internal/docintel"
	"github.com/bergsoft/invoiceflow/internal/export"
	"github.com/bergsoft/invoiceflow/internal/extraction"
	"github.com/bergsoft/invoiceflow/internal/pipeline"
	"github.com/bergsoft/invoiceflow/internal/preview"
	"github.com/bergsoft/invoiceflow/internal/repository"
	"github.com/bergsoft/invoiceflow/internal/server"
	"github.com/bergsoft/invoiceflow/internal/storage"
	"github.com/bergsoft/invoiceflow/pkg/database"
	"github.com/bergsoft/invoiceflow/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting invoice intake service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, log)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	invoiceRepo := repository.NewInvoiceRepository(db, log)

	analyzer := docintel.NewClient(docintel.Config{
		Endpoint:        cfg.DocIntel.Endpoint,
		APIKey:          cfg.DocIntel.APIKey,
		APIVersion:      cfg.DocIntel.APIVersion,
		ModelID:         cfg.DocIntel.ModelID,
		PollInterval:    cfg.DocIntel.PollInterval,
		MaxPollAttempts: cfg.DocIntel.MaxPollAttempts,
		RequestTimeout:  cfg.DocIntel.RequestTimeout,
	}, log)

	extractor := extraction.New(extraction.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Timeout:     cfg.OpenAI.Timeout,
	}, log)

	documents := storage.NewDocumentStore(cfg.Storage.DocumentDir, log)
	uploadPipeline := pipeline.New(analyzer, extractor, invoiceRepo, documents, log)
	exporter := export.NewExporter(log)
	previews := preview.NewRenderer(log)

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers := server.NewHandlers(
		invoiceRepo,
		uploadPipeline,
		analyzer,
		extractor,
		exporter,
		documents,
		previews,
		log,
	)
	router := server.NewRouter(handlers, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
