// Command authcored runs the identity service: the engine behind the
// HTTP surface, backed by Postgres for credentials and Redis for the
// read-through cache.
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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	authcore "github.com/maximsenn/authcore"
	"github.com/maximsenn/authcore/httpapi"
	"github.com/maximsenn/authcore/internal/audit"
	"github.com/maximsenn/authcore/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "optional config file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	users := postgres.New(pool)

	var rdb redis.UniversalClient
	if cfg.CacheEnabled {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{cfg.RedisAddr},
			DB:    cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
	}

	engineCfg := authcore.DefaultConfig()
	engineCfg.Token.AccessSecret = []byte(cfg.AccessSecret)
	engineCfg.Token.RefreshSecret = []byte(cfg.RefreshSecret)
	engineCfg.Token.AccessTTL = cfg.AccessTTL
	engineCfg.Token.RefreshTTL = cfg.RefreshTTL
	engineCfg.Token.Issuer = cfg.Issuer
	engineCfg.Cache.Enabled = cfg.CacheEnabled
	engineCfg.Cache.Prefix = cfg.CachePrefix
	engineCfg.Cache.ValidateTTL = cfg.ValidateTTL

	builder := authcore.New().
		WithConfig(engineCfg).
		WithUsers(users).
		WithAuditSink(audit.NewJSONWriterSink(os.Stdout))
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewServer(engine, log).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
