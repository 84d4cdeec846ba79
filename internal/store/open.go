package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"cvbuilder/internal/config"
	"cvbuilder/internal/database"
)

// OpenKV connects the backend selected by cfg.Store.Driver.
func OpenKV(ctx context.Context, cfg *config.Config, logger *slog.Logger) (KV, error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		logger.Info("Store: using sqlite", slog.String("path", cfg.Store.SQLitePath))
		return OpenSQLite(cfg.Store.SQLitePath)
	case config.StorePostgres:
		logger.Info("Store: using postgres", slog.String("host", cfg.Database.Host))
		db, err := database.InitDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewPostgres(db), nil
	case config.StoreRedis:
		logger.Info("Store: using redis", slog.String("addr", cfg.Redis.Addr()))
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedis(client, "cvbuilder:"), nil
	case config.StoreMemory:
		logger.Info("Store: using in-memory store")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Open returns an Adapter over the configured backend. When the backend
// cannot be opened the adapter runs in memory and the error is only logged.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...AdapterOption) *Adapter {
	opts = append([]AdapterOption{WithKeys(cfg.Store.Key, cfg.Store.SettingsKey), WithLogger(logger)}, opts...)
	kv, err := OpenKV(ctx, cfg, logger)
	if err != nil {
		logger.Warn("Store: backend unavailable, running in memory", slog.Any("error", err))
		return NewAdapter(nil, opts...)
	}
	return NewAdapter(kv, opts...)
}
