package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestKey(t *testing.T) {
	if got := Key("table", 3, 500.0, "abc"); got != "table:3:500:abc" {
		t.Fatalf("Key() = %q", got)
	}
	if got := Key("table"); got != "table" {
		t.Fatalf("Key() without parts = %q", got)
	}
}

func TestMemorySetGet(t *testing.T) {
	m := NewMemory(zap.NewNop())
	defer m.Close()
	ctx := context.Background()

	if _, ok, err := m.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	value := []byte("level 3")
	if err := m.Set(ctx, "key", value, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'X'

	got, ok, err := m.Get(ctx, "key")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != "level 3" {
		t.Fatalf("Get() = %q, stored value must be a copy", got)
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(zap.NewNop())
	defer m.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "short", []byte("a"), time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := m.Set(ctx, "long", []byte("b"), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, ok, _ := m.Get(ctx, "short"); ok {
		t.Fatal("expected expired entry to miss")
	}

	now = now.Add(2 * time.Hour)
	m.sweep()
	if _, ok := m.store.Load("long"); ok {
		t.Fatal("expected sweep to drop expired entry")
	}
}

func TestMemoryRejectsNonPositiveTTL(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()

	if err := m.Set(context.Background(), "key", []byte("a"), 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestMemoryCloseTwice(t *testing.T) {
	m := NewMemory(nil)
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
