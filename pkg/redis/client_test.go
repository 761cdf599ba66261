package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestCountInWindow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	for want := int64(1); want <= 3; want++ {
		count, err := client.CountInWindow(ctx, "ip:upload:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	key := "sf:rate_limit:ip:upload:1.2.3.4"
	assert.Equal(t, int64(3), mock.incr[key])
	assert.Equal(t, time.Minute, mock.ttl[key])
	assert.Equal(t, 1, mock.expireSet[key], "ttl must only be set once")
}

func TestCountInWindowSurfacesErrors(t *testing.T) {
	mock := newMockCmdable()
	mock.failIncr = true
	client := &Client{store: mock}

	_, err := client.CountInWindow(context.Background(), "scope", time.Minute)
	assert.Error(t, err)
}

func TestSetNXAndDelete(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "k", "v1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.SetNX(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Set(ctx, "other", "x", 0))

	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	require.NoError(t, client.Del(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.True(t, IsNil(err), "expected redis.Nil after delete, got %v", err)
	assert.NoError(t, client.Del(ctx))
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	assert.ErrorIs(t, client.Ping(context.Background()), errNotInitialized)
	_, err := client.CountInWindow(context.Background(), "scope", time.Second)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "sf:idempotency:admin:key-1", client.IdempotencyKey("admin", "key-1"))
	assert.Equal(t, "sf:rate_limit:ip:reviews:127.0.0.1", client.RateLimitKey("ip:reviews:127.0.0.1"))
	assert.Equal(t, "sf:idempotency:key-1", client.IdempotencyKey(" ", "key-1"))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.RedisConfig{
		URL:          "redis://:secret@cache.internal:6380/3",
		DB:           5,
		PoolSize:     12,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
	opts, err := optionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB, "db from the url wins")
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 12, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)

	_, err = optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)
	_, err = optionsFromConfig(config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}

type mockCmdable struct {
	data      map[string]string
	incr      map[string]int64
	ttl       map[string]time.Duration
	expireSet map[string]int
	failIncr  bool
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:      map[string]string{},
		incr:      map[string]int64{},
		ttl:       map[string]time.Duration{},
		expireSet: map[string]int{},
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	if m.failIncr {
		return redis.NewIntResult(0, fmt.Errorf("connection refused"))
	}
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) ExpireNX(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if _, ok := m.ttl[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.ttl[key] = ttl
	m.expireSet[key]++
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
