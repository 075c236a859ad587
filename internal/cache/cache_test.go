package cache

import (
	"sync"
	"testing"

	"promptflow/internal/story"
)

func TestKeyIsDeterministicAndStageScoped(t *testing.T) {
	fields := map[string]any{"title": "cafe", "duration": 180}
	a, err := Key("storyAnalysis", fields)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	b, _ := Key("storyAnalysis", map[string]any{"duration": 180, "title": "cafe"})
	if a != b {
		t.Fatalf("expected identical keys, got %s vs %s", a, b)
	}
	other, _ := Key("shotBreakdown", fields)
	if other == a {
		t.Fatal("expected different keys for different stages")
	}
	if _, err := Key("  ", fields); err == nil {
		t.Fatal("expected error for blank stage")
	}
	if _, err := Key("storyAnalysis", func() {}); err == nil {
		t.Fatal("expected error for unencodable fields")
	}
}

func TestPutAndGetReturnsIndependentCopies(t *testing.T) {
	c := New(0, nil)
	delta := story.Delta{AnalyzedStory: &story.AnalyzedStory{Themes: []string{"love"}, Pacing: story.PacingSlow}}
	if err := c.Put("k1", "storyAnalysis", delta); err != nil {
		t.Fatalf("Put: %v", err)
	}

	first, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected hit")
	}
	first.AnalyzedStory.Themes[0] = "mutated"

	second, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected second hit")
	}
	if second.AnalyzedStory.Themes[0] != "love" {
		t.Fatalf("cache returned shared state: %v", second.AnalyzedStory.Themes)
	}
	if delta.AnalyzedStory.Themes[0] != "love" {
		t.Fatal("Put must not alias caller data")
	}

	entries := c.List()
	if len(entries) != 1 || entries[0].Hits != 2 || entries[0].Stage != "storyAnalysis" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestGetMiss(t *testing.T) {
	c := New(0, nil)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}
	if _, ok := c.Get(""); ok {
		t.Fatal("expected miss for empty key")
	}
	var nilCache *Cache
	if _, ok := nilCache.Get("k"); ok {
		t.Fatal("nil cache should miss")
	}
	if err := nilCache.Put("k", "s", story.Delta{}); err != nil {
		t.Fatalf("nil cache Put should be a no-op: %v", err)
	}
}

func TestMaxEntriesEvictsOldest(t *testing.T) {
	c := New(2, nil)
	for _, key := range []string{"a", "b", "c"} {
		if err := c.Put(key, "s", story.Delta{}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected oldest entry evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected newest entry retained")
	}

	// Replacing an existing key keeps its original insertion slot.
	if err := c.Put("b", "s", story.Delta{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries after replace, got %d", c.Len())
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := New(0, nil)
	_ = c.Put("a", "s", story.Delta{})
	_ = c.Put("b", "s", story.Delta{})
	if !c.Remove("a") {
		t.Fatal("expected Remove to report success")
	}
	if c.Remove("a") {
		t.Fatal("expected second Remove to report missing")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestCorruptEntryIsDiscarded(t *testing.T) {
	c := New(0, nil)
	_ = c.Put("a", "s", story.Delta{})
	c.mu.Lock()
	c.entries["a"].Payload = []byte("{not json")
	c.mu.Unlock()

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected corrupt entry to miss")
	}
	if c.Len() != 0 {
		t.Fatal("expected corrupt entry removed")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(50, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, _ := Key("s", i%5)
			_ = c.Put(key, "s", story.Delta{ShotBreakdown: &story.ShotBreakdown{TotalDuration: float64(i)}})
			c.Get(key)
			c.List()
		}(i)
	}
	wg.Wait()
	if c.Len() != 5 {
		t.Fatalf("expected 5 distinct keys, got %d", c.Len())
	}
}
