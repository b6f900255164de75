//go:build integration

package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"posmarket/internal/infra"
	"posmarket/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func redisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestDLQReplay_ReencolaYEstaciona(t *testing.T) {
	rdb := redisContainer(t)
	ctx := context.Background()
	payload := json.RawMessage(`{"to_email":"jefe@tienda.cl"}`)

	SendToDLQ(ctx, rdb, QueueEmail, Job{Type: JobEmail, Payload: payload}, "smtp down", 3)
	n, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	cfg := ReplayConfig{RDB: rdb, Queues: []string{QueueEmail}, MaxReplays: 1}
	reportBacklog(ctx, cfg)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DLQPendientes.WithLabelValues(QueueEmail)))

	assert.Equal(t, 1, replayOnce(ctx, cfg))
	reportBacklog(ctx, cfg)
	assert.Zero(t, testutil.ToFloat64(metrics.DLQPendientes.WithLabelValues(QueueEmail)))

	raw, err := rdb.RPop(ctx, QueueEmail).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobEmail, job.Type)
	assert.Equal(t, 1, job.Replays)
	assert.JSONEq(t, string(payload), string(job.Payload))

	// Second failure: the replay budget is spent, so the entry is parked.
	SendToDLQ(ctx, rdb, QueueEmail, job, "smtp down", 3)
	assert.Zero(t, replayOnce(ctx, cfg))

	n, err = DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.Zero(t, n)
	parked, err := rdb.LLen(ctx, DLQPrefix+QueueEmail+parkedSuffix).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, parked)
}

func TestDLQReplay_BreakerAbiertoOmite(t *testing.T) {
	rdb := redisContainer(t)
	ctx := context.Background()

	breaker := infra.NewCircuitBreaker(infra.BreakerConfig{MaxFailures: 1, MinSuccesses: 1, CoolDown: time.Hour})
	_ = breaker.Execute(func() error { return assert.AnError })
	require.Equal(t, infra.BreakerOpen, breaker.State())

	SendToDLQ(ctx, rdb, QueueEmail, Job{Type: JobEmail, Payload: json.RawMessage(`{}`)}, "x", 1)
	assert.Zero(t, replayOnce(ctx, ReplayConfig{RDB: rdb, Breaker: breaker, Queues: []string{QueueEmail}, MaxReplays: 3}))

	n, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
