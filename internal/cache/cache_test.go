package cache

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/panbanda/corel/pkg/models"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	c := newTestCache(t)
	if !c.Enabled() {
		t.Error("cache should be enabled")
	}

	c, err := New("", 0, false)
	if err != nil {
		t.Fatalf("New() error for disabled cache: %v", err)
	}
	if c.Enabled() {
		t.Error("cache should be disabled")
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "nested", "cache", "dir")

	if _, err := New(cacheDir, 24, true); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Error("New() should create cache directory")
	}
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t)

	data := []byte(`{"value":42}`)
	if err := c.Set("key", "head-1", data); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, ok := c.Get("key", "head-1")
	if !ok {
		t.Fatal("Get() returned false for matching hash")
	}
	if string(got) != string(data) {
		t.Errorf("Get() = %s, want %s", got, data)
	}

	if _, ok := c.Get("key", "head-2"); ok {
		t.Error("Get() should miss when the hash differs")
	}
	if _, ok := c.Get("other", "head-1"); ok {
		t.Error("Get() should miss for unknown key")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := newTestCache(t)

	r1 := models.NewRevision("abc", 1_000, "alice", "first")
	r1.AddPath("src/A.java")
	r1.AddPath("src/b.java")
	latest := models.NewRevision("abc", 1_000, "alice", "")
	latest.AddPath("README.md")

	snap := &Snapshot{Revisions: []*models.Revision{r1}, Latest: latest}
	if err := c.StoreSnapshot("repo;opts", "abc", snap); err != nil {
		t.Fatalf("StoreSnapshot() error: %v", err)
	}

	got, ok := c.LoadSnapshot("repo;opts", "abc")
	if !ok {
		t.Fatal("LoadSnapshot() missed")
	}
	if len(got.Revisions) != 1 {
		t.Fatalf("got %d revisions, want 1", len(got.Revisions))
	}
	rev := got.Revisions[0]
	if rev.ID != "abc" || rev.Author != "alice" || rev.Time != 1_000 || rev.Message != "first" {
		t.Errorf("revision = %+v", rev)
	}
	if !slices.Equal(rev.Files(), []models.FileName{"src/a.java", "src/b.java"}) {
		t.Errorf("files = %v", rev.Files())
	}
	if got.Latest == nil || !slices.Equal(got.Latest.Files(), []models.FileName{"readme.md"}) {
		t.Errorf("latest = %+v", got.Latest)
	}

	if _, ok := c.LoadSnapshot("repo;opts", "def"); ok {
		t.Error("LoadSnapshot() should miss after head moved")
	}
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t)

	if err := c.Set("key", "h", []byte(`1`)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := c.Invalidate("key"); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if _, ok := c.Get("key", "h"); ok {
		t.Error("Key should not exist after invalidation")
	}
	if err := c.Invalidate("key"); err != nil {
		t.Errorf("Invalidate() of missing key error: %v", err)
	}
}

func TestClear(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")
	c, err := New(cacheDir, 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := c.Set(string(rune('a'+i)), "h", []byte(`"data"`)); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := os.Stat(cacheDir); !os.IsNotExist(err) {
		t.Error("Clear() should remove cache directory")
	}
}

func TestDisabledCache(t *testing.T) {
	c, err := New("", 0, false)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := c.Set("key", "h", []byte(`1`)); err != nil {
		t.Errorf("Set() on disabled cache should not error: %v", err)
	}
	if _, ok := c.Get("key", "h"); ok {
		t.Error("Get() on disabled cache should return false")
	}
	if err := c.StoreSnapshot("key", "h", &Snapshot{}); err != nil {
		t.Errorf("StoreSnapshot() on disabled cache should not error: %v", err)
	}
	if _, ok := c.LoadSnapshot("key", "h"); ok {
		t.Error("LoadSnapshot() on disabled cache should return false")
	}
	if err := c.Invalidate("key"); err != nil {
		t.Errorf("Invalidate() on disabled cache should not error: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear() on disabled cache should not error: %v", err)
	}
}

func TestHashBytes(t *testing.T) {
	hash1 := HashBytes([]byte("hello world"))
	hash2 := HashBytes([]byte("hello world"))
	hash3 := HashBytes([]byte("different"))

	if hash1 == "" {
		t.Error("HashBytes() returned empty hash")
	}
	if hash1 != hash2 {
		t.Error("HashBytes() should return consistent hashes for same content")
	}
	if hash1 == hash3 {
		t.Error("HashBytes() should return different hashes for different content")
	}
}

func TestGetStats(t *testing.T) {
	c := newTestCache(t)

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Empty cache should have 0 entries, got %d", stats.Entries)
	}

	for i := 0; i < 3; i++ {
		if err := c.Set(string(rune('a'+i)), "h", []byte(`"data"`)); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
	}

	stats, err = c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("Cache should have 3 entries, got %d", stats.Entries)
	}
	if stats.TotalSize <= 0 {
		t.Error("TotalSize should be positive")
	}
}

func TestGetStatsAfterClear(t *testing.T) {
	c := newTestCache(t)
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("got %d entries, want 0", stats.Entries)
	}
}

func TestTTLExpiration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping TTL test in short mode")
	}

	c := &Cache{
		dir:     filepath.Join(t.TempDir(), "cache"),
		ttl:     1 * time.Second,
		enabled: true,
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		t.Fatal(err)
	}

	if err := c.Set("key", "h", []byte(`"data"`)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, ok := c.Get("key", "h"); !ok {
		t.Error("Get() should return data before TTL expires")
	}

	time.Sleep(2 * time.Second)

	if _, ok := c.Get("key", "h"); ok {
		t.Error("Get() should return false after TTL expires")
	}
	if _, err := os.Stat(c.keyPath("key")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestKeyPath(t *testing.T) {
	c := newTestCache(t)

	path1 := c.keyPath("key1")
	path2 := c.keyPath("key2")

	if path1 == path2 {
		t.Error("Different keys should produce different paths")
	}
	if path1 != c.keyPath("key1") {
		t.Error("Same keys should produce same paths")
	}
	if filepath.Ext(path1) != ".json" {
		t.Errorf("Key path should end with .json, got %s", path1)
	}
	if filepath.Dir(path1) != c.Dir() {
		t.Errorf("Key path should be in cache directory")
	}
}
