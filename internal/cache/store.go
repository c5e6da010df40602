// Package cache stores per-page extraction results for reuse by later
// targeted queries, with a searchable keyword index and TTL expiration.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/decklens/internal/models"
)

// Store persists cache entries and unified results in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the cache database at dbPath and initializes the
// schema. Parent directories are created if they do not exist. An empty path
// uses an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS page_entries (
		document_id TEXT NOT NULL,
		page_index INTEGER NOT NULL,
		category TEXT,
		content TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		keywords TEXT,
		processed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (document_id, page_index)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_processed_at ON page_entries(processed_at);
	CREATE INDEX IF NOT EXISTS idx_entries_confidence ON page_entries(confidence);

	CREATE TABLE IF NOT EXISTS results (
		document_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// PutEntry inserts or replaces an entry. Last writer wins per (document, page)
// key: vision results for a page are idempotent given the same input.
func (s *Store) PutEntry(ctx context.Context, entry *models.CacheEntry) error {
	keywordsJSON, err := json.Marshal(entry.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}
	if entry.ProcessedAt.IsZero() {
		entry.ProcessedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO page_entries
		 (document_id, page_index, category, content, confidence, keywords, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.DocumentID, entry.PageIndex, string(entry.Category), entry.Content,
		entry.Confidence, string(keywordsJSON), entry.ProcessedAt,
	)
	return err
}

// GetEntry returns one entry, or models.ErrCacheMiss.
func (s *Store) GetEntry(ctx context.Context, documentID string, pageIndex int) (*models.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document_id, page_index, category, content, confidence, keywords, processed_at
		 FROM page_entries WHERE document_id = ? AND page_index = ?`,
		documentID, pageIndex,
	)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrCacheMiss
	}
	return entry, err
}

// ListByDocument returns all entries for a document ordered by page index.
func (s *Store) ListByDocument(ctx context.Context, documentID string) ([]*models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, page_index, category, content, confidence, keywords, processed_at
		 FROM page_entries WHERE document_id = ? ORDER BY page_index`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*models.CacheEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteEntry removes one entry by (document, page) key. Deleting a missing
// entry is not an error.
func (s *Store) DeleteEntry(ctx context.Context, documentID string, pageIndex int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM page_entries WHERE document_id = ? AND page_index = ?`,
		documentID, pageIndex)
	return err
}

// DeleteExpired removes entries processed before the cutoff and returns the
// keys removed, so the keyword index can drop them too.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, page_index FROM page_entries WHERE processed_at < ?`, cutoff)
	if err != nil {
		return nil, err
	}
	var keys []string
	for rows.Next() {
		var docID string
		var pageIndex int
		if err := rows.Scan(&docID, &pageIndex); err != nil {
			_ = rows.Close()
			return nil, err
		}
		keys = append(keys, fmt.Sprintf("%s:%d", docID, pageIndex))
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM page_entries WHERE processed_at < ?`, cutoff); err != nil {
		return nil, err
	}
	return keys, nil
}

// Compact reduces memory/disk pressure: when the entry count exceeds
// maxEntries, low-confidence entries are dropped oldest-first until the store
// fits, and the full text of surviving entries below the confidence threshold
// is truncated to a short summary.
func (s *Store) Compact(ctx context.Context, maxEntries int, lowConfidence float64) (dropped []string, err error) {
	if maxEntries <= 0 {
		return nil, nil
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_entries`).Scan(&count); err != nil {
		return nil, err
	}
	if count > maxEntries {
		excess := count - maxEntries
		rows, err := s.db.QueryContext(ctx,
			`SELECT document_id, page_index FROM page_entries
			 ORDER BY confidence ASC, processed_at ASC LIMIT ?`, excess)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var docID string
			var pageIndex int
			if err := rows.Scan(&docID, &pageIndex); err != nil {
				_ = rows.Close()
				return nil, err
			}
			dropped = append(dropped, fmt.Sprintf("%s:%d", docID, pageIndex))
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM page_entries WHERE (document_id, page_index) IN
			 (SELECT document_id, page_index FROM page_entries
			  ORDER BY confidence ASC, processed_at ASC LIMIT ?)`, excess); err != nil {
			return nil, err
		}
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE page_entries SET content = substr(content, 1, 280)
		 WHERE confidence < ? AND length(content) > 280`, lowConfidence)
	return dropped, err
}

// PutResult stores the unified extraction result for a document.
func (s *Store) PutResult(ctx context.Context, result *models.ExtractionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (document_id, payload, created_at) VALUES (?, ?, ?)`,
		result.DocumentID, string(payload), time.Now(),
	)
	return err
}

// GetResult returns the stored unified result, or models.ErrCacheMiss.
func (s *Store) GetResult(ctx context.Context, documentID string) (*models.ExtractionResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM results WHERE document_id = ?`, documentID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

// CountEntries returns the number of cached page entries.
func (s *Store) CountEntries(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_entries`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scannable) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	var category, keywordsJSON string
	if err := row.Scan(&entry.DocumentID, &entry.PageIndex, &category, &entry.Content,
		&entry.Confidence, &keywordsJSON, &entry.ProcessedAt); err != nil {
		return nil, err
	}
	entry.Category = models.Category(category)
	if keywordsJSON != "" {
		if err := json.Unmarshal([]byte(keywordsJSON), &entry.Keywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
		}
	}
	return &entry, nil
}
