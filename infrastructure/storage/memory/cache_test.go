package memory

import (
	"context"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	if _, found, err := c.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = found=%v err=%v, want miss", found, err)
	}

	if err := c.Set(ctx, "schema:tables", []byte(`["contacts","cases"]`), 0); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	value, found, err := c.Get(ctx, "schema:tables")
	if err != nil || !found {
		t.Fatalf("Get() = found=%v err=%v, want hit", found, err)
	}
	if string(value) != `["contacts","cases"]` {
		t.Errorf("Get() = %q", value)
	}
}

func TestCache_TTL(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "k"); found {
		t.Error("Get() after TTL should miss")
	}
}

func TestCache_Delete(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Error("Get() after Delete should miss")
	}
}

func TestCache_Stats(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), 0)
	_, _, _ = c.Get(ctx, "k")
	_, _, _ = c.Get(ctx, "nope")

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestCache_CopiesValues(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	original := []byte("abc")
	_ = c.Set(ctx, "k", original, 0)
	original[0] = 'x'

	value, _, _ := c.Get(ctx, "k")
	if string(value) != "abc" {
		t.Errorf("cached value mutated: %q", value)
	}
}
