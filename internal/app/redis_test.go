package app

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionFor_NamesFreightKeyspaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  redis.Cmder
		want string
	}{
		{"lock acquire", redis.NewBoolCmd(ctx, "set", "lock:load:L1", "token", "nx"), "locks"},
		{"lock release script", redis.NewCmd(ctx, "evalsha", "abc123", 1, "lock:settlement:S1", "token"), "locks"},
		{"settings cache", redis.NewStringCmd(ctx, "get", "cache:settings:org-1"), "settings_cache"},
		{"idempotent replay", redis.NewStringCmd(ctx, "get", "idempotency:org-1:POST:/v1/settlements/S1/advances:k"), "idempotency"},
		{"realtime event", redis.NewIntCmd(ctx, "publish", "realtime:load.updated", "{}"), "realtime"},
		{"unknown key", redis.NewStringCmd(ctx, "get", "session:42"), "redis"},
		{"keyless", redis.NewStatusCmd(ctx, "ping"), "redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collectionFor(tt.cmd))
		})
	}
}

func TestDatastoreHook_PassesThroughWithoutTransaction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hook := &datastoreHook{}
	boom := errors.New("boom")

	called := 0
	process := hook.ProcessHook(func(ctx context.Context, cmd redis.Cmder) error {
		called++
		return boom
	})
	assert.ErrorIs(t, process(ctx, redis.NewStringCmd(ctx, "get", "lock:load:L1")), boom)

	pipeline := hook.ProcessPipelineHook(func(ctx context.Context, cmds []redis.Cmder) error {
		called++
		return nil
	})
	require.NoError(t, pipeline(ctx, nil))
	assert.Equal(t, 2, called)
}
