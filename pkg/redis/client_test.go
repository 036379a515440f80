package redis

import (
	"context"
	"testing"
	"time"

	"github.com/agroconnect/agroconnect-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	values  map[string]string
	counts  map[string]int64
	expired map[string]time.Duration
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values:  map[string]string{},
		counts:  map[string]int64{},
		expired: map[string]time.Duration{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, ok := f.values[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.values[key] = value.(string)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeStore) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expired[key] = ttl
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.deleted = append(f.deleted, keys...)
	for _, k := range keys {
		delete(f.values, k)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (f *fakeStore) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestKeyBuilders(t *testing.T) {
	c := &Client{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"anon cart", c.AnonCartKey("sess-1"), "agro:cart:anon:sess-1"},
		{"user cart", c.UserCartKey("user-1"), "agro:cart:user:user-1"},
		{"access session", c.AccessSessionKey("jti-1"), "agro:session:access:jti-1"},
		{"presence", c.PresenceKey("room-1", "user-1"), "agro:presence:room-1:user-1"},
		{"rate limit", c.RateLimitKey("login:1.2.3.4"), "agro:rate_limit:login:1.2.3.4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, tc.got)
			}
		})
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	store := newFakeStore()
	c := &Client{store: store}
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "v" {
		t.Fatalf("expected v, got %q", got)
	}

	if _, err := c.Get(ctx, "missing"); err != Nil {
		t.Fatalf("expected redis.Nil for missing key, got %v", err)
	}
}

func TestSetNXOnlyOnce(t *testing.T) {
	store := newFakeStore()
	c := &Client{store: store}
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first setnx should win, ok=%v err=%v", ok, err)
	}
	ok, err = c.SetNX(ctx, "lock", "2", time.Minute)
	if err != nil {
		t.Fatalf("second setnx errored: %v", err)
	}
	if ok {
		t.Fatal("second setnx should not win")
	}
}

func TestIncrWithTTLSetsExpiryOnFirstHit(t *testing.T) {
	store := newFakeStore()
	c := &Client{store: store}
	ctx := context.Background()

	n, err := c.IncrWithTTL(ctx, "counter", time.Minute)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	if store.expired["counter"] != time.Minute {
		t.Fatalf("expected ttl on first increment, got %v", store.expired["counter"])
	}

	store.expired = map[string]time.Duration{}
	if _, err := c.IncrWithTTL(ctx, "counter", time.Minute); err != nil {
		t.Fatalf("incr: %v", err)
	}
	if len(store.expired) != 0 {
		t.Fatal("ttl should only be set on the first increment")
	}
}

func TestFixedWindowAllow(t *testing.T) {
	store := newFakeStore()
	c := &Client{store: store}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := c.FixedWindowAllow(ctx, "login:ip", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	allowed, count, err := c.FixedWindowAllow(ctx, "login:ip", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatalf("request over limit should be denied, count=%d", count)
	}
}

func TestOptionsFromConfigRequiresEndpoint(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected an error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 5})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 5 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
