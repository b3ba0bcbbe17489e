package weather

import (
	"errors"
	"testing"
	"time"
)

func TestCacheSetAndGet(t *testing.T) {
	c := NewCache[string](time.Hour)
	c.Set("key1", "value1")

	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if val != "value1" {
		t.Errorf("expected value1, got %s", val)
	}

	if _, ok := c.Get("absent"); ok {
		t.Fatal("expected cache miss for absent key")
	}
}

func TestCacheGetOrLoadMemoizesWithinTTL(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewCache[int](time.Hour).WithClock(func() time.Time { return now })

	loads := 0
	loader := func() (int, error) {
		loads++
		return 42, nil
	}

	for i := 0; i < 2; i++ {
		v, err := c.GetOrLoad("key", loader)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 42 {
			t.Fatalf("expected 42, got %d", v)
		}
	}

	if loads != 1 {
		t.Errorf("expected a single load within TTL, got %d", loads)
	}
}

func TestCacheReloadsAfterExpiry(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewCache[int](time.Hour).WithClock(func() time.Time { return now })

	loads := 0
	loader := func() (int, error) {
		loads++
		return loads, nil
	}

	if _, err := c.GetOrLoad("key", loader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(2 * time.Hour)

	v, err := c.GetOrLoad("key", loader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loads != 2 {
		t.Errorf("expected reload after expiry, got %d loads", loads)
	}
	if v != 2 {
		t.Errorf("expected reloaded value, got %d", v)
	}
}

func TestCacheLoaderErrorNotStored(t *testing.T) {
	c := NewCache[int](time.Hour)

	loads := 0
	failing := func() (int, error) {
		loads++
		return 0, errors.New("boom")
	}

	if _, err := c.GetOrLoad("key", failing); err == nil {
		t.Fatal("expected loader error")
	}
	if _, err := c.GetOrLoad("key", failing); err == nil {
		t.Fatal("expected loader error on second call")
	}
	if loads != 2 {
		t.Errorf("expected failed loads not to be cached, got %d loads", loads)
	}
}
