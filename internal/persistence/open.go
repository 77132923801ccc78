package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
)

// Open builds the KV backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (KV, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage; state is lost on exit")
		return NewMemory(), nil
	case config.BackendFile:
		kv, err := NewFile(cfg.Storage.FileDir)
		if err != nil {
			return nil, err
		}
		logger.Info("using file storage", zap.String("dir", cfg.Storage.FileDir))
		return kv, nil
	case config.BackendRedis:
		return NewRedis(cfg.Redis, logger), nil
	case config.BackendPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
