package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/handlers"
	"github.com/senyabanana/procurement-service/internal/logger"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/router"
	"github.com/senyabanana/procurement-service/internal/router/config"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("cannot load .env: %v", err)
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("cannot init logger:", err)
	}
	defer zapLogger.Sync()

	runDBMigration(zapLogger, cfg.MigrationURL, cfg.PostgresConn)

	ctx := context.Background()
	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		zapLogger.Fatal("error initializing database", zap.Error(err))
	}
	defer dbPool.Close()

	var documents services.DocumentStore
	if cfg.MinioEndpoint != "" {
		store, err := storage.NewMinioStore(ctx, cfg)
		if err != nil {
			zapLogger.Fatal("error initializing document storage", zap.Error(err))
		}
		documents = store
		zapLogger.Info("bid documents are stored in object storage", zap.String("bucket", cfg.MinioBucket))
	} else {
		zapLogger.Info("object storage is not configured, bid documents are stored inline")
	}

	tx := db.NewTransactor(dbPool)
	rfxRepo := repository.NewPostgresRfxRepository(dbPool)
	bidRepo := repository.NewPostgresBidRepository(dbPool)
	contractRepo := repository.NewPostgresContractRepository(dbPool)
	users := repository.NewPostgresUserDirectory(dbPool)

	rfxService := services.NewRfxService(rfxRepo, users, tx)
	bidService := services.NewBidService(bidRepo, rfxRepo, tx, documents)
	contractService := services.NewContractService(contractRepo, bidRepo, rfxRepo, tx)

	routes := router.InitRoutes(router.Handlers{
		Rfx:      handlers.NewRfxHandler(rfxService, zapLogger, cfg.RequestTimeout),
		Bid:      handlers.NewBidHandler(bidService, zapLogger, cfg.RequestTimeout),
		Contract: handlers.NewContractHandler(contractService, zapLogger, cfg.RequestTimeout),
	}, cfg.JWTSecret, zapLogger)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("server is listening", zap.String("address", cfg.ServerAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}
}

func runDBMigration(logger *zap.Logger, migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		logger.Fatal("cannot create a new migrate instance", zap.Error(err))
	}

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("failed to run migrate up", zap.Error(err))
	}
	logger.Info("db migrated successfully")
}
