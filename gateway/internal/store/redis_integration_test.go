package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a real Redis and returns its URL.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "redis")
	require.NoError(t, err)
	return endpoint
}

func TestRedisIntegration_ClaimAndPushAcrossInstances(t *testing.T) {
	url := setupRedisContainer(t)

	// Two handles model two gateway instances sharing one store.
	instances := make([]*Redis, 2)
	for i := range instances {
		r, err := NewRedis(url, 5*time.Second)
		require.NoError(t, err)
		t.Cleanup(func() { r.Close() })
		instances[i] = r
	}

	ctx := context.Background()
	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(r *Redis) {
			defer wg.Done()
			ok, err := r.ClaimAndPush(ctx, "ig:comment_seen:c1", 7*24*time.Hour, "ig:comment_jobs", []byte(`{"commentId":"c1"}`))
			assert.NoError(t, err)
			if ok {
				admitted.Add(1)
			}
		}(instances[i%2])
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	n, err := instances[0].QueueLength(ctx, "ig:comment_jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ttl, err := instances[1].MarkerTTL(ctx, "ig:comment_seen:c1")
	require.NoError(t, err)
	assert.InDelta(t, (7 * 24 * time.Hour).Seconds(), ttl.Seconds(), 5)
}

func TestRedisIntegration_ClaimReleaseCycle(t *testing.T) {
	r, err := NewRedis(setupRedisContainer(t), 5*time.Second)
	require.NoError(t, err)
	defer r.Close()
	ctx := context.Background()

	ok, err := r.Claim(ctx, "ig:comment_seen:c2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Claim(ctx, "ig:comment_seen:c2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Release(ctx, "ig:comment_seen:c2"))
	ok, err = r.Claim(ctx, "ig:comment_seen:c2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
