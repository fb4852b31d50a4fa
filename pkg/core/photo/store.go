// Package photo holds a bounded "recents" list of a user's captured
// photos plus a small lookup map for request-id retrieval. An unbounded
// per-user photo ring was the dominant source of memory pressure in the
// system this design replaces; everything here is capped.
package photo

import (
	"context"
	"sync"
	"time"

	"github.com/glasscore/glasscore/pkg/core/hardware"
	"github.com/glasscore/glasscore/pkg/core/idgen"
)

// DefaultRecents is the default number of photos kept in recency order.
const DefaultRecents = 3

// DefaultLookupCap is the default size of the request-id lookup map.
const DefaultLookupCap = 8

// Stored is one captured photo. Bytes are kept in memory only; they are
// never placed on the event bus (see Meta).
type Stored struct {
	RequestID string
	Bytes     []byte
	MimeType  string
	Filename  string
	Size      int
	Timestamp time.Time
	UserID    string
}

// Meta is the subset of Stored safe to broadcast: never raw bytes.
type Meta struct {
	RequestID string    `json:"requestId"`
	MimeType  string    `json:"mimeType"`
	Size      int       `json:"size"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
}

func (s Stored) Meta() Meta {
	return Meta{
		RequestID: s.RequestID,
		MimeType:  s.MimeType,
		Size:      s.Size,
		Timestamp: s.Timestamp,
		UserID:    s.UserID,
	}
}

// Publisher is the minimal event bus capability the store needs, kept
// narrow so this package does not import pkg/core/eventbus.
type Publisher interface {
	Publish(meta Meta)
}

// SessionAccessor returns the current hardware session, or nil if none is
// attached. Modeled as a closure rather than a reference back to the
// owning user aggregate, per the cyclic-ownership note in the design: the
// store never mutates its owner, it only borrows the session for the
// duration of one call.
type SessionAccessor func() hardware.Session

// Store owns one user's captured photos.
type Store struct {
	userID    string
	recents   int
	lookupCap int
	session   SessionAccessor
	publisher Publisher

	mu      sync.Mutex
	recent  []Stored          // newest first, len <= recents
	lookup  map[string]Stored // capped at lookupCap, least recently used evicted first
	lookupQ []string          // use order for eviction, least recently used first
}

// New builds a photo Store for one user.
func New(userID string, session SessionAccessor, publisher Publisher) *Store {
	return &Store{
		userID:    userID,
		recents:   DefaultRecents,
		lookupCap: DefaultLookupCap,
		session:   session,
		publisher: publisher,
		lookup:    make(map[string]Stored),
	}
}

// Capture requests a photo through the hardware session, stores it,
// rotates the recents list, and publishes metadata to the event bus. It
// returns the stored photo so the caller (the query pipeline) can use the
// bytes without a second lookup.
func (s *Store) Capture(ctx context.Context) (Stored, error) {
	sess := s.session()
	if sess == nil {
		return Stored{}, errNoSession
	}
	capture, err := sess.CapturePhoto(ctx)
	if err != nil {
		return Stored{}, err
	}

	stored := Stored{
		RequestID: idgen.NewPrefixed("photo_"),
		Bytes:     capture.Bytes,
		MimeType:  capture.MimeType,
		Filename:  capture.Filename,
		Size:      len(capture.Bytes),
		Timestamp: time.Now(),
		UserID:    s.userID,
	}

	s.mu.Lock()
	s.recent = append([]Stored{stored}, s.recent...)
	if len(s.recent) > s.recents {
		s.recent = s.recent[:s.recents]
	}
	s.rememberLocked(stored)
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.Publish(stored.Meta())
	}
	return stored, nil
}

func (s *Store) rememberLocked(stored Stored) {
	if _, exists := s.lookup[stored.RequestID]; !exists {
		s.lookupQ = append(s.lookupQ, stored.RequestID)
	}
	s.lookup[stored.RequestID] = stored
	for len(s.lookupQ) > s.lookupCap {
		oldest := s.lookupQ[0]
		s.lookupQ = s.lookupQ[1:]
		delete(s.lookup, oldest)
	}
}

// ContextBytes returns the newest photo's bytes followed by up to
// (recents-1) previous photos' bytes, newest-first, for inclusion in an
// agent prompt.
func (s *Store) ContextBytes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, 0, len(s.recent))
	for _, p := range s.recent {
		out = append(out, p.Bytes)
	}
	return out
}

// Latest returns the newest photo, if any.
func (s *Store) Latest() (Stored, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) == 0 {
		return Stored{}, false
	}
	return s.recent[0], true
}

// Lookup returns the stored photo for requestID if it is still in the
// small LRU map.
func (s *Store) Lookup(requestID string) (Stored, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.lookup[requestID]
	if ok {
		for i, id := range s.lookupQ {
			if id == requestID {
				s.lookupQ = append(s.lookupQ[:i], s.lookupQ[i+1:]...)
				s.lookupQ = append(s.lookupQ, requestID)
				break
			}
		}
	}
	return p, ok
}
