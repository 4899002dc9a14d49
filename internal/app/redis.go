package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"freight/internal/config"
)

// NewRedisClient creates the client shared by the lock store, the settings
// cache, the realtime publisher and the idempotency middleware.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if nrApp != nil {
		client.AddHook(&datastoreHook{})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis %s: %w", cfg.Addr, err)
	}

	return client, nil
}

// keyspaces maps key prefixes to the collection name reported to New Relic.
// Longer prefixes come first.
var keyspaces = []struct {
	prefix     string
	collection string
}{
	{"cache:settings:", "settings_cache"},
	{"idempotency:", "idempotency"},
	{"realtime:", "realtime"},
	{"lock:", "locks"},
}

// commandKey returns the first key a command touches, or "" for keyless
// commands such as PING.
func commandKey(cmd redis.Cmder) string {
	args := cmd.Args()
	idx := 1
	switch strings.ToLower(cmd.Name()) {
	case "eval", "evalsha":
		// EVAL script numkeys key [key ...]
		idx = 3
	}
	if len(args) <= idx {
		return ""
	}
	key, _ := args[idx].(string)
	return key
}

// collectionFor names the freight keyspace a command operates on.
func collectionFor(cmd redis.Cmder) string {
	key := commandKey(cmd)
	for _, ks := range keyspaces {
		if strings.HasPrefix(key, ks.prefix) {
			return ks.collection
		}
	}
	return "redis"
}

// datastoreHook records each command as a New Relic datastore segment on
// the transaction carried by ctx.
type datastoreHook struct{}

func (h *datastoreHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *datastoreHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if txn := newrelic.FromContext(ctx); txn != nil {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  cmd.Name(),
				Collection: collectionFor(cmd),
			}
			defer segment.End()
		}
		return next(ctx, cmd)
	}
}

func (h *datastoreHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if txn := newrelic.FromContext(ctx); txn != nil && len(cmds) > 0 {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  "pipeline",
				Collection: collectionFor(cmds[0]),
			}
			defer segment.End()
		}
		return next(ctx, cmds)
	}
}
