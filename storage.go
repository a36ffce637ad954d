// storage.go
//
// Snapshot store selection (STORE_DRIVER): sqlite (default), redis or memory.

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/coopsweeper/server/internal/config"
	"github.com/coopsweeper/server/internal/store"
)

// openStore builds the configured store. The returned close func is idempotent.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := openDB(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.DatabasePath, err)
		}
		if err := migrate(db, store.Migrations); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info().Str("path", cfg.DatabasePath).Msg("sqlite store ready")
		return store.NewSQLiteStore(db), onceFunc(func() { _ = db.Close() }), nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Str("prefix", cfg.RedisKeyPrefix).Msg("redis store ready")
		return store.NewRedisStore(client, cfg.RedisKeyPrefix), onceFunc(func() { _ = client.Close() }), nil

	case config.DriverMemory:
		log.Warn().Msg("memory store: games are lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func onceFunc(f func()) func() {
	var once sync.Once
	return func() { once.Do(f) }
}
