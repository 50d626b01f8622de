// Package facade builds a storage.Backend from configuration, picking
// between the postgres and sqlite implementations the way
// internal/vectorstore/factory.go picks between chromem and qdrant:
// switch on a lower-cased provider string, fail closed on anything else.
package facade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragstore/internal/config"
	"github.com/fyrsmithlabs/ragstore/internal/storage"
	"github.com/fyrsmithlabs/ragstore/internal/storage/postgres"
	"github.com/fyrsmithlabs/ragstore/internal/storage/retry"
	"github.com/fyrsmithlabs/ragstore/internal/storage/sqlite"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

// Backend names recognized by storage.backend. The comparison is
// case-insensitive; anything else is InvalidConfiguration.
const (
	BackendPostgres = "postgresql"
	BackendSQLite   = "sqlite"
)

// New opens the backend named by cfg.Storage.Backend and runs its migrator.
// The chosen backend is fixed for the lifetime of the returned
// storage.Backend — there is no runtime backend switching.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Backend, error) {
	policy := retryPolicy(cfg)

	switch strings.ToLower(cfg.Storage.Backend) {
	case BackendPostgres:
		store, err := postgres.New(ctx, cfg.Storage.Postgres.DSN.Value(), cfg.Vector.Dimension, logger,
			postgres.WithRetryPolicy(policy))
		if err != nil {
			return nil, fmt.Errorf("facade: open postgres backend: %w", err)
		}
		return store, nil

	case BackendSQLite:
		opts := sqlite.Options{
			Path:          cfg.Storage.SQLite.Path,
			BusyTimeoutMS: cfg.Storage.SQLite.BusyTimeoutMS,
			MaxReaders:    cfg.Storage.SQLite.ReadPoolSize,
		}
		if !cfg.Storage.SQLite.WALMode {
			// The contract still wants WAL by default; an explicit opt-out
			// degrades to the edge preset's smaller cache rather than
			// disabling WAL outright, since the embedded backend's
			// single-writer discipline assumes it.
			opts.Preset = sqlite.PresetEdge
		}
		store, err := sqlite.New(ctx, opts, cfg.Vector.Dimension, logger,
			sqlite.WithRetryPolicy(policy))
		if err != nil {
			return nil, fmt.Errorf("facade: open sqlite backend: %w", err)
		}
		return store, nil

	default:
		return nil, storeerr.New(storeerr.KindInvalidConfiguration, "facade.New",
			fmt.Errorf("unsupported storage backend: %q (supported: %s, %s)", cfg.Storage.Backend, BackendSQLite, BackendPostgres))
	}
}

func retryPolicy(cfg *config.Config) retry.Policy {
	if !cfg.Retry.Enabled {
		return retry.Policy{Enabled: false}
	}
	p := retry.DefaultPolicy()
	p.MaxRetries = cfg.Retry.MaxRetries
	p.BaseDelay = msDuration(cfg.Retry.BaseDelayMS)
	p.Jitter = msDuration(cfg.Retry.JitterMS)
	p.MaxDuration = msDuration(cfg.Retry.MaxDurationMS)
	return p
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
