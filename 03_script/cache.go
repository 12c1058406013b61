package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"eco-reel-pipeline/types"
)

// Cache stores generated scripts by fingerprint.
type Cache interface {
	Get(key string) (types.ScriptResult, bool)
	Put(key string, result types.ScriptResult) error
}

// Entry is one persisted script.
type Entry struct {
	Script    string      `json:"script"`
	WordCount int         `json:"word_count"`
	Theme     types.Theme `json:"theme"`
	Timestamp time.Time   `json:"timestamp"`
}

func (e Entry) result() types.ScriptResult {
	return types.ScriptResult{
		Script:    e.Script,
		WordCount: e.WordCount,
		Theme:     e.Theme,
		Timestamp: e.Timestamp,
	}
}

// FileStore persists entries as one JSON object keyed by fingerprint.
// Writes go to a temp file and are renamed into place.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store at path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) load() (map[string]Entry, error) {
	entries := map[string]Entry{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return entries, nil
}

// Get returns the persisted entry for key.
func (s *FileStore) Get(key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := entries[key]
	return e, ok, nil
}

// Put writes key and drops entries older than ttl (ttl <= 0 keeps everything).
func (s *FileStore) Put(key string, e Entry, ttl time.Duration, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		slog.Warn("Script cache file unreadable, rewriting", "path", s.path, "error", err)
		entries = map[string]Entry{}
	}
	if ttl > 0 {
		for k, old := range entries {
			if now.Sub(old.Timestamp) >= ttl {
				delete(entries, k)
			}
		}
	}
	entries[key] = e

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// TTLCache is an in-memory map over an optional FileStore. Entries older
// than the TTL are misses at both levels.
type TTLCache struct {
	mu    sync.RWMutex
	items map[string]Entry
	store *FileStore
	ttl   time.Duration
	now   func() time.Time
}

var _ Cache = (*TTLCache)(nil)

// NewTTLCache creates a cache. store may be nil for memory only.
func NewTTLCache(store *FileStore, ttl time.Duration) *TTLCache {
	return &TTLCache{
		items: make(map[string]Entry),
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *TTLCache) fresh(e Entry) bool {
	return c.ttl <= 0 || c.now().Sub(e.Timestamp) < c.ttl
}

func (c *TTLCache) Get(key string) (types.ScriptResult, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if ok && c.fresh(e) {
		return e.result(), true
	}

	if c.store == nil {
		return types.ScriptResult{}, false
	}
	e, ok, err := c.store.Get(key)
	if err != nil {
		slog.Warn("Script cache read failed", "path", c.store.Path(), "error", err)
		return types.ScriptResult{}, false
	}
	if !ok || !c.fresh(e) {
		return types.ScriptResult{}, false
	}

	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
	return e.result(), true
}

func (c *TTLCache) Put(key string, r types.ScriptResult) error {
	e := Entry{
		Script:    r.Script,
		WordCount: r.WordCount,
		Theme:     r.Theme,
		Timestamp: r.Timestamp,
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = c.now()
	}

	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	return c.store.Put(key, e, c.ttl, c.now())
}
