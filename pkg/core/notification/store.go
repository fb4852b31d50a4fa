// Package notification keeps a short, time-bounded ring of opaque
// notification payloads delivered by the wearable host.
package notification

import (
	"fmt"
	"sync"
	"time"

	"github.com/glasscore/glasscore/pkg/core/hardware"
)

// DefaultCapacity is the maximum number of notifications retained
// regardless of age.
const DefaultCapacity = 20

// DefaultFreshness is how long a notification remains eligible for
// Recent() once received.
const DefaultFreshness = 5 * time.Minute

// Store is a ring of recently received notifications for one user.
type Store struct {
	capacity  int
	freshness time.Duration

	mu    sync.Mutex
	items []hardware.Notification // oldest first
}

// New builds a notification Store with default capacity and freshness.
func New() *Store {
	return &Store{capacity: DefaultCapacity, freshness: DefaultFreshness}
}

// OnNotification is the hardware-session callback that appends to the ring,
// evicting the oldest entry once the ring is full.
func (s *Store) OnNotification(n hardware.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = time.Now()
	}
	s.items = append(s.items, n)
	if len(s.items) > s.capacity {
		s.items = s.items[len(s.items)-s.capacity:]
	}
}

// Recent returns up to limit notifications younger than the freshness
// window, newest last.
func (s *Store) Recent(limit int) []hardware.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.freshness)
	var fresh []hardware.Notification
	for _, n := range s.items {
		if n.ReceivedAt.After(cutoff) {
			fresh = append(fresh, n)
		}
	}
	if limit > 0 && len(fresh) > limit {
		fresh = fresh[len(fresh)-limit:]
	}
	return fresh
}

// FormatForPrompt stringifies the recent notifications for inclusion in an
// agent prompt. Payloads are not interpreted, only stringified.
func FormatForPrompt(notifications []hardware.Notification) string {
	if len(notifications) == 0 {
		return ""
	}
	out := ""
	for i, n := range notifications {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("- %v", n.Payload)
	}
	return out
}
