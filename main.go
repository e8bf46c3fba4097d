package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"Gin_postgres_redis_asset_loan/app"
	"Gin_postgres_redis_asset_loan/config"
	"Gin_postgres_redis_asset_loan/logging"
	"Gin_postgres_redis_asset_loan/routes"
	"Gin_postgres_redis_asset_loan/sweep"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	port := pflag.String("port", "", "listen port (overrides PORT)")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logging.Log = zap.Must(zap.NewProduction())
		logging.Fatal("config", zap.Error(err))
	}
	if *port != "" {
		cfg.Port = *port
	}
	if err := logging.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		panic(err)
	}
	defer logging.Sync()

	application := app.MustNew(cfg)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.BootstrapFirstAdmin(ctx, cfg.BootstrapAdmin, application.Repo); err != nil {
		logging.Error("bootstrap admin", zap.Error(err))
	}

	routes.RegisterRoutes(application.Router, application)

	go sweep.NewOverdue(application.Repo, application.Clock, logging.Log).Run(ctx, cfg.OverdueSweepInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("shutdown", zap.Error(err))
	}
}
