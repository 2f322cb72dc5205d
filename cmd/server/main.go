package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nawader/farmshop/internal/config"
	"github.com/nawader/farmshop/internal/db"
	"github.com/nawader/farmshop/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *migrateOnlyFlag {
		if _, err := db.ConnectAndMigrate(); err != nil {
			logger.Fatal("migrate-only failed", zap.Error(err))
		}
		logger.Info("migrations completed; exiting as requested")
		return
	}

	dbConn, err := db.ConnectAndMigrate()
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	logger.Info("starting server",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("verification_mode", cfg.VerificationMode))

	handler := server.New(dbConn, cfg, logger)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
