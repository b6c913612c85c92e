//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bloodbank/internal/platform/config"
	"bloodbank/pkg/testutil/containers"
)

func TestNewAgainstRedisContainer(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	client, err := New(ctx, config.RedisConfig{URL: rc.URL, PoolSize: 4, DialTimeout: 2 * time.Second})
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Health(ctx))
	require.NoError(t, client.Set(ctx, "bloodbank:probe", "1", time.Minute).Err())
	require.Equal(t, "1", client.Get(ctx, "bloodbank:probe").Val())
}
