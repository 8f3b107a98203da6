package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestNewLRU(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   Config
	}{
		{"nil config uses defaults", nil, Config{MaxEntries: 1024, TTL: 5 * time.Minute}},
		{"custom config applied", &Config{MaxEntries: 10, TTL: time.Minute}, Config{MaxEntries: 10, TTL: time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLRU[int](tt.config)
			if c.config != tt.want {
				t.Errorf("config = %+v, want %+v", c.config, tt.want)
			}
			if c.Len() != 0 {
				t.Errorf("new cache has %d entries", c.Len())
			}
		})
	}
}

func TestLRU_GetPut(t *testing.T) {
	c := NewLRU[[]string](&Config{MaxEntries: 10})

	if _, ok := c.Get("aux/"); ok {
		t.Fatal("Get on empty cache reported a hit")
	}

	c.Put("aux/", []string{"2018_10_23", "2018_10_24"})
	got, ok := c.Get("aux/")
	if !ok || len(got) != 2 || got[0] != "2018_10_23" {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	c.Put("aux/", []string{"2018_10_25"})
	got, _ = c.Get("aux/")
	if len(got) != 1 || got[0] != "2018_10_25" {
		t.Errorf("Get after overwrite = %v", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 2 hits and 1 miss", stats)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Errorf("hit rate = %v, want 2/3", stats.HitRate)
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](&Config{MaxEntries: 2})

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")
	c.Put("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s should still be cached", key)
		}
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestLRU_TTL(t *testing.T) {
	c := NewLRU[int](&Config{TTL: time.Minute})
	now := time.Date(2018, 10, 23, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("a", 1)
	now = now.Add(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired early")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry returned")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry kept, Len = %d", c.Len())
	}

	// Put refreshes the timestamp.
	c.Put("b", 1)
	now = now.Add(50 * time.Second)
	c.Put("b", 2)
	now = now.Add(50 * time.Second)
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v, want 2, true", v, ok)
	}
}

func TestLRU_Delete(t *testing.T) {
	c := NewLRU[int](nil)
	c.Put("aux/2018_10_23/", 1)
	c.Put("aux/2018_10_24/", 2)
	c.Put("other/", 3)

	c.Delete("other/")
	if _, ok := c.Get("other/"); ok {
		t.Error("deleted key still cached")
	}
	c.Delete("missing")

	if n := c.DeletePrefix("aux/"); n != 2 {
		t.Errorf("DeletePrefix removed %d, want 2", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}

	c.Put("x", 1)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](&Config{MaxEntries: 50})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*100+j)%80)
				c.Put(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len = %d, exceeds MaxEntries", c.Len())
	}
}
