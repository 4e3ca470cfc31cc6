package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MrEthical07/goGate/internal/appconfig"
	"github.com/MrEthical07/goGate/store/postgres"
)

func main() {
	configPath := flag.String("config", os.Getenv("GOGATE_CONFIG"), "path to a YAML config file")
	timeout := flag.Duration("timeout", time.Minute, "overall migration timeout")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)

	if cfg.Postgres.DSN == "" {
		logger.Error("postgres dsn required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Postgres.DSN, postgres.PoolConfig{MaxOpenConns: 1})
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")
}
