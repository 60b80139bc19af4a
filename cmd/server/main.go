package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appinvoicing "github.com/erp/vendor-invoice/internal/application/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/currency"
	"github.com/erp/vendor-invoice/internal/infrastructure/cache"
	"github.com/erp/vendor-invoice/internal/infrastructure/config"
	"github.com/erp/vendor-invoice/internal/infrastructure/logger"
	"github.com/erp/vendor-invoice/internal/infrastructure/persistence"
	"github.com/erp/vendor-invoice/internal/infrastructure/ratesource"
	"github.com/erp/vendor-invoice/internal/infrastructure/storage"
	"github.com/erp/vendor-invoice/internal/interfaces/http/handler"
	"github.com/erp/vendor-invoice/internal/interfaces/http/middleware"
	"github.com/erp/vendor-invoice/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting vendor invoice service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with a zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	arrivalRepo := persistence.NewGormArrivalLineRepository(db.DB)
	poLineRepo := persistence.NewGormPOLineRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	termRepo := persistence.NewGormPaymentTermRepository(db.DB)
	mediaRepo := persistence.NewGormMediaRepository(db.DB)
	rateStore := persistence.NewGormExchangeRateRepository(db.DB)

	// Rate cache and creation guard: Redis when configured, in-memory otherwise
	cacheFactory := cache.NewFactory(cfg.Redis, cache.WithLogger(log))
	rateCache, err := cacheFactory.CreateRateCache()
	if err != nil {
		log.Fatal("Failed to create rate cache", zap.Error(err))
	}
	creationGuard, err := cacheFactory.CreateCreationGuard()
	if err != nil {
		log.Fatal("Failed to create creation guard", zap.Error(err))
	}

	// Exchange-rate resolution: cache, then API, then stored rates
	rateSource := ratesource.NewExchangeRatesClient(cfg.RateAPI, log)
	resolver := currency.NewResolver(rateCache, rateSource, rateStore, cfg.RateAPI.CacheTTL)

	// Object storage for invoice attachments
	objectStorage, err := storage.NewS3ObjectStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
	)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to ensure storage bucket", zap.Error(err))
		}
		cancel()
	}

	// Application services
	invoiceService := appinvoicing.NewInvoiceService(
		invoiceRepo, arrivalRepo, poLineRepo, mediaRepo, termRepo,
		objectStorage, creationGuard, resolver, log,
	)
	invoiceService.SetConfig(appinvoicing.InvoiceServiceConfig{
		AttachmentPolicy: appinvoicing.AttachmentPolicy{
			MaxFiles:     cfg.Invoicing.MaxAttachments,
			MaxFileSize:  cfg.Invoicing.MaxAttachmentSize,
			MaxBatchSize: cfg.Invoicing.MaxAttachmentTotal,
		},
		CreationGuardTTL:  cfg.Invoicing.CreationGuardTTL,
		DownloadURLExpiry: cfg.Storage.PresignExpiration,
		RecentLimit:       cfg.Invoicing.RecentInvoiceLimit,
	})
	arrivalService := appinvoicing.NewArrivalService(arrivalRepo, poLineRepo, resolver, log)
	termService := appinvoicing.NewPaymentTermService(termRepo)
	rateService := appinvoicing.NewRateService(resolver)

	// HTTP handlers
	arrivalHandler := handler.NewArrivalHandler(arrivalService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	termHandler := handler.NewPaymentTermHandler(termService)
	rateHandler := handler.NewRateHandler(rateService)
	systemHandler := handler.NewSystemHandler(db)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.RequestLogger(log),
		logger.Recovery(log),
		middleware.CORS(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	router.NewRouter(engine).
		Register(systemHandler).
		Register(arrivalHandler).
		Register(invoiceHandler).
		Register(termHandler).
		Register(rateHandler).
		Setup()

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
