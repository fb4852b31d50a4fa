// Package idgen generates sortable, time-ordered identifiers used for
// subscriber ids, photo request ids, and chat turn ids.
package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new lexicographically-sortable id seeded from the current
// time. Safe for concurrent use.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewPrefixed returns New() with a short human-readable prefix, e.g. "sub_".
func NewPrefixed(prefix string) string {
	return prefix + New()
}
