package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/decklens/internal/models"
)

// Config holds cache settings.
type Config struct {
	// DatabasePath is the SQLite file path; empty means in-memory.
	DatabasePath string `yaml:"database_path"`
	// IndexPath is the Bleve index path; empty means in-memory.
	IndexPath string `yaml:"index_path"`
	// TTLHours is entry lifetime in hours. Default: 24.
	TTLHours int `yaml:"ttl_hours"`
	// MaxEntries triggers compaction when exceeded. Default: 10000.
	MaxEntries int `yaml:"max_entries"`
	// LowConfidence is the threshold below which compaction truncates full
	// text to a summary. Default: 0.5.
	LowConfidence float64 `yaml:"low_confidence"`
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.TTLHours == 0 {
		c.TTLHours = 24
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = 10000
	}
	if c.LowConfidence == 0 {
		c.LowConfidence = 0.5
	}
}

// Cache is the shared result cache: SQLite persistence plus a Bleve keyword
// index. Reads are safe concurrently; writes are last-writer-wins per page
// key. The cache outlives any single orchestration run and is always passed
// by handle, never held as package state.
type Cache struct {
	store  *Store
	index  *EntryIndex
	ttl    time.Duration
	cfg    Config
	logger *zap.Logger
}

// New opens the cache with the given configuration.
func New(cfg Config, logger *zap.Logger) (*Cache, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	index, err := NewEntryIndex(cfg.IndexPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &Cache{
		store:  store,
		index:  index,
		ttl:    time.Duration(cfg.TTLHours) * time.Hour,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Put stores and indexes a vision-processed page.
func (c *Cache) Put(ctx context.Context, entry *models.CacheEntry) error {
	if err := c.store.PutEntry(ctx, entry); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	if err := c.index.Index(ctx, entry); err != nil {
		return fmt.Errorf("cache index: %w", err)
	}
	return nil
}

// Get returns a live entry for (documentID, pageIndex), or models.ErrCacheMiss.
// Expired entries are dropped on read.
func (c *Cache) Get(ctx context.Context, documentID string, pageIndex int) (*models.CacheEntry, error) {
	entry, err := c.store.GetEntry(ctx, documentID, pageIndex)
	if err != nil {
		return nil, err
	}
	if entry.Expired(time.Now(), c.ttl) {
		c.drop(ctx, entry.Key())
		return nil, models.ErrCacheMiss
	}
	return entry, nil
}

// Lookup finds cached pages of a document matching a category name or free
// keywords. Returns models.ErrCacheMiss when nothing matches.
func (c *Cache) Lookup(ctx context.Context, documentID, query string, limit int) ([]*models.CacheEntry, error) {
	keys, err := c.index.Search(ctx, documentID, query, limit)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	entries := make([]*models.CacheEntry, 0, len(keys))
	for _, key := range keys {
		docID, pageIndex, ok := splitKey(key)
		if !ok {
			continue
		}
		entry, err := c.store.GetEntry(ctx, docID, pageIndex)
		if err != nil {
			continue
		}
		if entry.Expired(now, c.ttl) {
			c.drop(ctx, key)
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, models.ErrCacheMiss
	}
	return entries, nil
}

// StoreResult persists the unified extraction result for a document.
func (c *Cache) StoreResult(ctx context.Context, result *models.ExtractionResult) error {
	return c.store.PutResult(ctx, result)
}

// Result returns the stored unified result for a document.
func (c *Cache) Result(ctx context.Context, documentID string) (*models.ExtractionResult, error) {
	return c.store.GetResult(ctx, documentID)
}

// Sweep removes expired entries and compacts the store. Returns the number of
// entries removed.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-c.ttl)
	expired, err := c.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	dropped, err := c.store.Compact(ctx, c.cfg.MaxEntries, c.cfg.LowConfidence)
	if err != nil {
		return len(expired), err
	}
	for _, key := range append(expired, dropped...) {
		if err := c.index.Delete(ctx, key); err != nil {
			c.logger.Warn("cache index delete failed", zap.String("key", key), zap.Error(err))
		}
	}
	removed := len(expired) + len(dropped)
	if removed > 0 {
		c.logger.Info("cache sweep", zap.Int("expired", len(expired)), zap.Int("compacted", len(dropped)))
	}
	return removed, nil
}

// Entries returns the cached entry count.
func (c *Cache) Entries(ctx context.Context) (int64, error) {
	return c.store.CountEntries(ctx)
}

// Close closes the store and index.
func (c *Cache) Close() error {
	ierr := c.index.Close()
	serr := c.store.Close()
	if serr != nil {
		return serr
	}
	return ierr
}

func (c *Cache) drop(ctx context.Context, key string) {
	if docID, pageIndex, ok := splitKey(key); ok {
		_ = c.store.DeleteEntry(ctx, docID, pageIndex)
	}
	_ = c.index.Delete(ctx, key)
}

// splitKey parses "docid:page". Document IDs contain colons ("doc:<hex>"), so
// the split is on the last colon.
func splitKey(key string) (string, int, bool) {
	i := strings.LastIndex(key, ":")
	if i < 0 {
		return "", 0, false
	}
	pageIndex, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return "", 0, false
	}
	return key[:i], pageIndex, true
}
