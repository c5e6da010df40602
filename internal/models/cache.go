package models

import (
	"fmt"
	"time"
)

// CacheEntry holds one vision-processed page for reuse by later targeted
// queries. Keyed by (document ID, page index); last writer wins.
type CacheEntry struct {
	DocumentID  string    `json:"document_id"`
	PageIndex   int       `json:"page_index"`
	Category    Category  `json:"category"`
	Content     string    `json:"content"`
	Confidence  float64   `json:"confidence"`
	Keywords    []string  `json:"keywords,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Key returns the unique cache key for this entry.
func (e *CacheEntry) Key() string {
	return fmt.Sprintf("%s:%d", e.DocumentID, e.PageIndex)
}

// Expired reports whether the entry is older than ttl at the given time.
func (e *CacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(e.ProcessedAt) > ttl
}
