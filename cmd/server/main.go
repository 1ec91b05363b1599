package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"tradecoach/internal/app"
	"tradecoach/internal/config"
	"tradecoach/internal/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		// logger config comes from cfg, so fall back to a plain one
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		zap.NewExample().Fatal("logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	// prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	if cfg.CoinGecko.APIKey == "" {
		log.Warn("COINGECKO_API_KEY not set; using the public rate limit")
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("wiring", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched, err := a.NewScheduler(ctx)
	if err != nil {
		log.Fatal("scheduler", zap.Error(err))
	}
	go sched.RunRefreshNow()
	sched.Start()

	api := &server{advisor: a.Coach, extractor: a.Extractor, log: log.Named("http")}
	root := http.NewServeMux()
	root.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	root.Handle("/", api.handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.RequestTimeoutSec+5) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	sched.Stop()
}
