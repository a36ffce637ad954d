package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/coopsweeper/server/internal/game"
)

// redisStore keeps one JSON document per game and a sorted set of game IDs scored by
// creation time (Unix milliseconds).
type redisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore wraps a connected client. keyPrefix namespaces every key ("ms:" by default).
func NewRedisStore(client *redis.Client, keyPrefix string) Store {
	if client == nil {
		panic("store: nil redis client")
	}
	if keyPrefix == "" {
		keyPrefix = "ms:"
	}
	return &redisStore{client: client, keyPrefix: keyPrefix}
}

func (r *redisStore) gameKey(id string) string { return r.keyPrefix + "game:" + id }
func (r *redisStore) indexKey() string         { return r.keyPrefix + "games" }

// Save writes the document and indexes it in one MULTI/EXEC.
func (r *redisStore) Save(ctx context.Context, g *game.Snapshot) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("redis: encode game %s: %w", g.ID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.gameKey(g.ID), data, 0)
		pipe.ZAdd(ctx, r.indexKey(), &redis.Z{Score: float64(g.CreatedAt.UnixMilli()), Member: g.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save game %s: %w", g.ID, err)
	}
	return nil
}

// Latest returns the game with the highest creation score.
func (r *redisStore) Latest(ctx context.Context) (*game.Snapshot, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: latest game id: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	data, err := r.client.Get(ctx, r.gameKey(ids[0])).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: load game %s: %w", ids[0], err)
	}
	var g game.Snapshot
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("redis: decode game %s: %w", ids[0], err)
	}
	return &g, nil
}

// History loads every indexed game and keeps the finished ones, oldest first.
func (r *redisStore) History(ctx context.Context) ([]*game.Snapshot, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list game ids: %w", err)
	}
	out := []*game.Snapshot{}
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.gameKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load games: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // indexed but document missing
		}
		var g game.Snapshot
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return nil, fmt.Errorf("redis: decode game %s: %w", ids[i], err)
		}
		if g.Status.Terminal() {
			out = append(out, &g)
		}
	}
	return out, nil
}
