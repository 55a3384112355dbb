package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/openclaims/harrier/internal/domain"
)

func TestLRUBasicOperations(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	value, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(value) != "value1" {
		t.Errorf("expected value1, got %s", value)
	}

	value, err = c.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != nil {
		t.Errorf("expected nil for missing key, got %s", value)
	}

	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	value, _ = c.Get(ctx, "key1")
	if value != nil {
		t.Error("expected key to be deleted")
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	c.Set(ctx, "short", []byte("lived"), 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	value, err := c.Get(ctx, "short")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != nil {
		t.Error("expected expired entry to be gone")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Set(ctx, fmt.Sprintf("key%d", i), []byte("v"), time.Minute)
	}

	size, capacity := c.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("expected size 3 at capacity 3, got %d/%d", size, capacity)
	}

	// Oldest entries are evicted first.
	if value, _ := c.Get(ctx, "key0"); value != nil {
		t.Error("expected key0 to be evicted")
	}
	if value, _ := c.Get(ctx, "key4"); value == nil {
		t.Error("expected key4 to survive")
	}
}

func TestLRUBenefits(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	raw := domain.RawBenefits{
		"deductible":     map[string]any{"individual": float64(1000)},
		"preventiveCare": true,
	}

	if err := c.SetBenefits(ctx, "member-001", raw, time.Minute); err != nil {
		t.Fatalf("set benefits failed: %v", err)
	}

	got, err := c.GetBenefits(ctx, "member-001")
	if err != nil {
		t.Fatalf("get benefits failed: %v", err)
	}
	if got["preventiveCare"] != true {
		t.Errorf("benefits payload lost: %v", got)
	}

	got, err = c.GetBenefits(ctx, "member-unknown")
	if err != nil {
		t.Fatalf("get benefits failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil on miss, got %v", got)
	}
}

func TestLRURatio(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	if err := c.SetRatio(ctx, "ratio:p1:99215:99213", 1.75, time.Minute); err != nil {
		t.Fatalf("set ratio failed: %v", err)
	}

	ratio, ok, err := c.GetRatio(ctx, "ratio:p1:99215:99213")
	if err != nil {
		t.Fatalf("get ratio failed: %v", err)
	}
	if !ok {
		t.Fatal("expected ratio to be present")
	}
	if ratio != 1.75 {
		t.Errorf("expected 1.75, got %g", ratio)
	}

	_, ok, err = c.GetRatio(ctx, "ratio:missing")
	if err != nil {
		t.Fatalf("get ratio failed: %v", err)
	}
	if ok {
		t.Error("expected miss for unknown key")
	}
}

func TestLRUClose(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	c.Set(ctx, "key", []byte("value"), time.Minute)
	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	size, _ := c.Stats()
	if size != 0 {
		t.Errorf("expected empty cache after close, got %d entries", size)
	}
}

func TestNewMemoryCache(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*LRUCache); !ok {
		t.Errorf("expected LRUCache, got %T", c)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestNewUnknownType(t *testing.T) {
	if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
		t.Error("expected error for unknown cache type")
	}
}
