package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"promptflow/internal/logging"
	"promptflow/internal/story"
)

// Entry is one cached stage output.
type Entry struct {
	Key      string          `json:"key"`
	Stage    string          `json:"stage"`
	Payload  json.RawMessage `json:"payload"`
	CachedAt time.Time       `json:"cached_at"`
	Hits     int             `json:"hits"`
}

// Cache provides thread-safe access to memoized stage deltas.
type Cache struct {
	logger     *slog.Logger
	maxEntries int

	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// New creates an empty cache. maxEntries <= 0 keeps every entry.
func New(maxEntries int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		logger:     logging.NewComponentLogger(logger, "cache"),
		maxEntries: maxEntries,
		entries:    make(map[string]*Entry),
	}
}

// Key hashes a stage name and its key fields into a cache key.
func Key(stageName string, fields any) (string, error) {
	stageName = strings.TrimSpace(stageName)
	if stageName == "" {
		return "", errors.New("stage name cannot be empty")
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode cache key fields: %w", err)
	}
	sum := sha256.New()
	sum.Write([]byte(stageName))
	sum.Write([]byte{0})
	sum.Write(encoded)
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// Get returns a fresh copy of the delta stored under key.
func (c *Cache) Get(key string) (story.Delta, bool) {
	if c == nil || key == "" {
		return story.Delta{}, false
	}

	c.mu.Lock()
	entry, found := c.entries[key]
	if found {
		entry.Hits++
	}
	var payload json.RawMessage
	if found {
		payload = entry.Payload
	}
	c.mu.Unlock()

	if !found {
		return story.Delta{}, false
	}

	var delta story.Delta
	if err := json.Unmarshal(payload, &delta); err != nil {
		c.logger.Warn("discarding unreadable cache entry",
			logging.String(logging.FieldEventType, "cache_entry_corrupt"),
			logging.String("cache_key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the stage will recompute its output"),
			logging.String(logging.FieldImpact, "one cache miss"))
		c.Remove(key)
		return story.Delta{}, false
	}
	return delta, true
}

// Put stores a stage delta under key, replacing any previous entry.
func (c *Cache) Put(key, stageName string, delta story.Delta) error {
	if c == nil {
		return nil
	}
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	payload, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = &Entry{Key: key, Stage: stageName, Payload: payload, CachedAt: time.Now()}
	c.evictLocked()

	c.logger.Debug("cached stage output",
		logging.Stage(stageName),
		logging.String("cache_key", key),
		logging.Int("bytes", len(payload)))
	return nil
}

func (c *Cache) evictLocked() {
	if c.maxEntries <= 0 {
		return
	}
	for len(c.order) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.logger.Debug("evicted cache entry", logging.String("cache_key", oldest))
	}
}

// Remove deletes an entry by key.
func (c *Cache) Remove(key string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		return false
	}
	delete(c.entries, key)
	for i, candidate := range c.order {
		if candidate == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all cache entries sorted by CachedAt descending (newest first).
func (c *Cache) List() []Entry {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})
	return entries
}

// Clear removes all entries.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.order = nil
	c.logger.Debug("cleared stage cache")
}

// Len returns the number of entries in the cache.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
