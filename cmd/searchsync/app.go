package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/config"
	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/db/meili"
	"github.com/kailas-cloud/searchsync/internal/db/memory"
	dbRedis "github.com/kailas-cloud/searchsync/internal/db/redis"
	domdoc "github.com/kailas-cloud/searchsync/internal/domain/document"
	logpkg "github.com/kailas-cloud/searchsync/internal/logger"
	"github.com/kailas-cloud/searchsync/internal/metrics"
	"github.com/kailas-cloud/searchsync/internal/repository/records"
	"github.com/kailas-cloud/searchsync/internal/usecase/indexsync"
	searchuc "github.com/kailas-cloud/searchsync/internal/usecase/search"
)

// app is the composition root shared by serve and reindex.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	search *searchuc.Service
	sync   *indexsync.Engine
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	// Register metrics explicitly (no init())
	metrics.Register()

	adapter, err := newAdapter(cfg.Search)
	if err != nil {
		return nil, err
	}
	logger.Info("search backend selected",
		zap.String("provider", adapter.Name()),
		zap.String("index", cfg.Search.FullIndexName()),
	)

	svc := searchuc.New(
		db.Instrument(adapter, logger),
		cfg.Search.FullIndexName(),
		logger,
		searchuc.WithConnectRetry(cfg.Search.ConnectRetries, cfg.Search.RetryDelay()),
	)
	if err := svc.Initialize(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("initialize search: %w", err)
	}

	engine, err := indexsync.New(svc, syncConfig(cfg.Sync), logger)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("sync engine: %w", err)
	}

	return &app{cfg: cfg, logger: logger, search: svc, sync: engine}, nil
}

func (a *app) close() {
	a.sync.Stop()
	if err := a.search.Close(); err != nil {
		a.logger.Warn("close search backend", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// resync streams every record from the source into BulkSync.
func (a *app) resync(ctx context.Context) error {
	if a.cfg.Source.DSN == "" {
		return fmt.Errorf("source.dsn is not configured")
	}
	pool, err := records.Open(ctx, a.cfg.Source.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := records.New(pool, records.Config{
		Query:     a.cfg.Source.Query,
		BatchSize: a.cfg.Source.BatchSize,
	}, a.logger)

	start := time.Now()
	var synced, failed int
	read, err := repo.Stream(ctx, func(docs []domdoc.Document) error {
		res, err := a.sync.BulkSync(ctx, docs)
		if err != nil {
			return err
		}
		synced += res.Success
		failed += res.Failed
		return nil
	})
	a.logger.Info("resync finished",
		zap.Int("read", read),
		zap.Int("synced", synced),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	return err
}

func newAdapter(cfg config.SearchConfig) (db.Adapter, error) {
	switch cfg.Provider {
	case config.ProviderRedis:
		return dbRedis.NewStore(redisConfig(cfg))
	case config.ProviderMeilisearch:
		return meili.NewStore(meili.Config{
			Host:         cfg.URL(),
			APIKey:       cfg.APIKey,
			TaskTimeout:  cfg.TaskTimeout(),
			PollInterval: cfg.PollInterval(),
		})
	case config.ProviderMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
}

func redisConfig(cfg config.SearchConfig) dbRedis.Config {
	return dbRedis.Config{
		Addrs:    []string{cfg.Addr()},
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		TLS:      cfg.SSL,
	}
}

func syncConfig(c config.SyncConfig) indexsync.Config {
	out := indexsync.Config{
		Mode:          indexsync.Mode(c.Mode),
		BatchSize:     c.BatchSize,
		MaxRetries:    indexsync.DefaultConfig().MaxRetries,
		RetryInterval: time.Duration(c.RetryIntervalMs) * time.Millisecond,
		MaxQueueSize:  c.MaxQueueSize,
		DrainInterval: time.Duration(c.DrainIntervalMs) * time.Millisecond,
		Overflow:      indexsync.OverflowPolicy(c.Overflow),
	}
	if c.MaxRetries != nil {
		out.MaxRetries = *c.MaxRetries
	}
	return out
}
