package source

import (
	"crypto/sha256"
	"encoding/hex"
)

const idPrefix = "doc:"

// DocID returns a stable document ID derived from the file content.
// The same bytes always yield the same ID, so cached page extractions survive
// re-ingestion of the same deck under a different name or path.
func DocID(content []byte) string {
	hash := sha256.Sum256(content)
	return idPrefix + hex.EncodeToString(hash[:16])
}
