// Package main - Entry point for the pricing API server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"commodity-pricing/api"
	"commodity-pricing/internal/app"
	"commodity-pricing/internal/config"
	"commodity-pricing/internal/logging"
)

const version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "", "config file (.json or .hcl)")
	addr := flag.String("addr", "", "server address (overrides server_addr)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cfgPath, *addr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, addr string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("pricing server starting",
		zap.String("version", version),
		zap.Bool("cache", a.Cache != nil),
	)

	srv := api.NewServer(a.Engine, api.Options{
		Version:            version,
		Logger:             logger,
		Metrics:            a.Metrics,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
