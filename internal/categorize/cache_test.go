package categorize

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Fatal("hit for missing key")
	}

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	val, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || val != "v" {
		t.Fatalf("Get = (%q, %v, %v)", val, ok, err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", "v", -time.Second)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expired entry returned")
	}
}

func TestCacheKeyStable(t *testing.T) {
	a := cacheKey("merchant", "STARBUCKS #4521")
	b := cacheKey("merchant", "starbucks #4521")
	if a != b {
		t.Error("cache key must be case-insensitive")
	}
	if a == cacheKey("category", "STARBUCKS #4521") {
		t.Error("prefix must separate key spaces")
	}
}
