// Package runid generates identifiers for scraping runs. A seeded run ID is
// deterministic so repeated runs over the same input can be correlated; an
// unseeded one is unique per invocation.
package runid

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generate returns a 12-character hex run ID. With a non-empty seed the ID
// is the truncated md5 of the seed, so the same seed always yields the same
// ID. Without a seed the ID is derived from the current time and a UUID.
func Generate(seed string) string {
	if seed == "" {
		seed = fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString())
	}
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])[:12]
}

// Format prefixes a run ID with the run date, e.g. "20260831_a1b2c3d4e5f6".
func Format(id string, t time.Time) string {
	return fmt.Sprintf("%s_%s", t.Format("20060102"), id)
}

// ForCategory derives a per-category run ID from a base run ID.
func ForCategory(base, category string) string {
	return fmt.Sprintf("%s_%s", base, category)
}
