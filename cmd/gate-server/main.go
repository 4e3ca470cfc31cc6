package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/httpapi"
	"github.com/MrEthical07/goGate/internal/appconfig"
	"github.com/MrEthical07/goGate/mailer"
	gateprom "github.com/MrEthical07/goGate/metrics/export/prometheus"
	"github.com/MrEthical07/goGate/middleware"
	"github.com/MrEthical07/goGate/store/postgres"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", os.Getenv("GOGATE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	if cfg.Postgres.DSN == "" {
		logger.Error("postgres dsn required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres.DSN, postgres.PoolConfig{
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	builder := goGate.New().
		WithConfig(cfg.Gate).
		WithRepository(postgres.NewAccounts(db)).
		WithAuditLog(postgres.NewAuditLog(db)).
		WithLogger(logger).
		WithAuditSink(goGate.NewSlogSink(logger))

	if cfg.Redis.Addr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis ping failed", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		builder = builder.WithRedis(rdb)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := mailer.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			logger.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		km, err := mailer.NewKafkaMailer(producer, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Error("kafka mailer init failed", "error", err)
			os.Exit(1)
		}
		defer km.Close()
		builder = builder.WithMailer(km).WithPasswordResetMailer(km)
	} else {
		logger.Warn("no kafka brokers configured, codes are logged")
		lm := mailer.NewLogMailer(logger)
		builder = builder.WithMailer(lm).WithPasswordResetMailer(lm)
	}

	engine, err := builder.Build()
	if err != nil {
		logger.Error("engine build failed", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.GinIdentity())
	router.GET("/healthz", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		c.Status(http.StatusOK)
	})
	if cfg.Gate.Metrics.Enabled {
		metricsHandler, err := gateprom.Handler(engine)
		if err != nil {
			logger.Error("metrics handler init failed", "error", err)
			os.Exit(1)
		}
		router.GET(cfg.HTTP.MetricsPath, gin.WrapH(metricsHandler))
	}
	httpapi.New(engine, logger).Register(router.Group("/v1"))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("gate http starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
}
