package builder

import (
	"context"
	"fmt"

	"github.com/futig/rag-conversations/internal/config"
	"github.com/futig/rag-conversations/internal/repository"
	"go.uber.org/zap"
)

// openStore opens the key-value driver selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (repository.Store, error) {
	var (
		kv  repository.Store
		err error
	)

	switch cfg.Driver {
	case config.StoreDriverBolt:
		kv, err = repository.NewBoltStore(cfg.Path)
	case config.StoreDriverSQLite:
		kv, err = repository.NewSQLiteStore(ctx, cfg.Path)
	case config.StoreDriverPostgres:
		logger.Info("running database migrations")
		kv, err = repository.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.MaxConns)
	case config.StoreDriverMemory:
		logger.Warn("memory store selected, state is lost on exit")
		kv = repository.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	fields := []zap.Field{zap.String("driver", cfg.Driver)}
	if cfg.Driver == config.StoreDriverBolt || cfg.Driver == config.StoreDriverSQLite {
		fields = append(fields, zap.String("path", cfg.Path))
	}
	logger.Info("state store opened", fields...)

	return kv, nil
}
