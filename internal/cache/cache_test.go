package cache

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/verity/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("serper", "3", "en", "Lanny Flaherty birthplace")
	b := Key("serper", "3", "en", "Lanny Flaherty birthplace")
	c := Key("searxng", "3", "en", "Lanny Flaherty birthplace")

	if a != b {
		t.Errorf("Expected stable key, got %s and %s", a, b)
	}
	if a == c {
		t.Error("Expected different providers to produce different keys")
	}
	if !strings.HasPrefix(a, "verity:v1:") {
		t.Errorf("Expected verity:v1: prefix, got %s", a)
	}
	// Parts are delimited, so shifting text between them changes the key
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Expected part boundaries to matter")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("Expected miss for unknown key")
	}

	if err := c.Set("k", []byte("evidence"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, found := c.Get("k")
	if !found || string(val) != "evidence" {
		t.Errorf("Expected hit with evidence, got %q (found=%v)", val, found)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}

	_ = c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Error("Expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	_ = c.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	if _, found := c.Get("k"); found {
		t.Error("Expected entry to expire")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("searxng", "What is 1 + 1?")

	if err := c.Set(key, []byte("2"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A fresh instance over the same directory sees the entry
	reopened := NewDiskCache(dir, time.Hour)
	val, found := reopened.Get(key)
	if !found || string(val) != "2" {
		t.Errorf("Expected persisted value 2, got %q (found=%v)", val, found)
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := Key("serper", "q")

	_ = c.Set(key, []byte("v"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	if _, found := c.Get(key); found {
		t.Error("Expected expired disk entry to be a miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	key := Key("serper", "q")

	writer := NewLayeredCache(time.Hour, dir, time.Hour)
	if err := writer.Set(key, []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reader := NewLayeredCache(time.Hour, dir, time.Hour)
	if reader.memory.Len() != 0 {
		t.Fatal("Expected empty memory layer on a new cache")
	}
	if val, found := reader.Get(key); !found || string(val) != "v" {
		t.Fatalf("Expected disk hit, got %q (found=%v)", val, found)
	}
	if reader.memory.Len() != 1 {
		t.Error("Expected disk hit to be promoted to memory")
	}

	if err := reader.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := reader.Get(key); found {
		t.Error("Expected miss after clear")
	}
}

func TestNew(t *testing.T) {
	if New(model.CacheConfig{Enabled: false}) != nil {
		t.Error("Expected nil cache when disabled")
	}
	if _, ok := New(model.CacheConfig{Enabled: true}).(*MemoryCache); !ok {
		t.Error("Expected memory-only cache without a directory")
	}
	layered := New(model.CacheConfig{Enabled: true, Dir: filepath.Join(t.TempDir(), "c"), MemoryTTL: time.Hour, DiskTTL: time.Hour})
	if _, ok := layered.(*LayeredCache); !ok {
		t.Error("Expected layered cache with a directory")
	}
}
