package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	in := payload{Name: "snap", Items: []string{"a", "b"}}
	if err := mc.Set(ctx, "k", in, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	in.Items[0] = "mutated"

	var out payload
	if err := mc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Name != "snap" || out.Items[0] != "a" {
		t.Fatalf("unexpected value: %+v", out)
	}

	if err := mc.Get(ctx, "missing", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(func() time.Time { return now }))
	ctx := context.Background()

	_ = mc.Set(ctx, "k", 1, time.Minute)
	if ok, _ := mc.Exists(ctx, "k"); !ok {
		t.Fatalf("expected key present")
	}
	now = now.Add(time.Minute)
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatalf("expected key expired")
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(func() time.Time { return now }))
	ctx := context.Background()

	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); !ok {
		t.Fatalf("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); ok {
		t.Fatalf("second lock should fail while held")
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); !ok {
		t.Fatalf("lock should be free after ttl")
	}
	_ = mc.Unlock(ctx, "lock")
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); !ok {
		t.Fatalf("lock should be free after unlock")
	}
}

func TestKey(t *testing.T) {
	if got := Key("snapshot", "global"); got != "snapshot:global" {
		t.Fatalf("got %q", got)
	}
	if got := Key("replica", "global", 3); got != "replica:global:3" {
		t.Fatalf("got %q", got)
	}
}
