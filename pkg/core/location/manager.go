// Package location caches a user's last known coordinate and resolves a
// place name and timezone for it on demand.
package location

import (
	"context"
	"sync"
	"time"

	"github.com/glasscore/glasscore/pkg/core/hardware"
	"github.com/glasscore/glasscore/pkg/core/wakeword"
)

// DefaultTTL is how long a geocoded result is trusted before a query that
// needs geocoding will re-resolve it.
const DefaultTTL = 5 * time.Minute

// SessionAccessor returns the current hardware session, or nil. See the
// cyclic-ownership note in pkg/core/photo for why this is a closure.
type SessionAccessor func() hardware.Session

// Cache is the last known location state for one user.
type Cache struct {
	Lat       float64
	Lng       float64
	Accuracy  float64
	Place     string
	Timezone  string
	Geocoded  bool
	FetchedAt time.Time
}

// Manager owns one user's location cache.
type Manager struct {
	session  SessionAccessor
	geocoder hardware.Geocoder
	ttl      time.Duration

	mu       sync.Mutex
	cache    Cache
	haveFix  bool
	timezone string // set independently by a settings callback
}

// New builds a location Manager. geocoder may be nil, in which case
// Refresh never attempts reverse geocoding.
func New(session SessionAccessor, geocoder hardware.Geocoder) *Manager {
	return &Manager{session: session, geocoder: geocoder, ttl: DefaultTTL}
}

// SetTimezone is called by the settings-change callback wired in
// pkg/core/session.User.
func (m *Manager) SetTimezone(tz string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timezone = tz
}

// OnLocation is the hardware-session location callback: it updates the raw
// fix without touching geocoding state.
func (m *Manager) OnLocation(c hardware.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Lat = c.Lat
	m.cache.Lng = c.Lng
	m.cache.Accuracy = c.Accuracy
	m.cache.FetchedAt = time.Now()
	m.haveFix = true
}

// QueryNeedsLocation reports whether query needs a coordinate fix at all.
func (m *Manager) QueryNeedsLocation(query string) bool {
	return wakeword.QueryNeedsLocation(query)
}

// QueryNeedsGeocoding reports whether query needs a resolved place name,
// not just raw coordinates.
func (m *Manager) QueryNeedsGeocoding(query string) bool {
	return wakeword.NeedsGeocoding(query)
}

// Refresh fetches a fresh coordinate from the hardware session when query
// needs location, and reverse-geocodes it when query needs geocoding and
// the cached geocode has expired. Every failure is tolerated: Refresh
// always returns the best available cache, using a stale or absent one
// when the hardware session or geocoder is unavailable.
func (m *Manager) Refresh(ctx context.Context, query string) Cache {
	if !m.QueryNeedsLocation(query) {
		return m.Snapshot()
	}

	if sess := m.session(); sess != nil {
		if fix, err := sess.GetLatestLocation(ctx); err == nil {
			m.OnLocation(fix)
		}
	}

	if !m.QueryNeedsGeocoding(query) {
		return m.Snapshot()
	}

	m.mu.Lock()
	stale := !m.cache.Geocoded || time.Since(m.cache.FetchedAt) > m.ttl
	lat, lng := m.cache.Lat, m.cache.Lng
	haveFix := m.haveFix
	m.mu.Unlock()

	if stale && haveFix && m.geocoder != nil {
		place, tz, err := m.geocoder.Reverse(ctx, hardware.Coordinate{Lat: lat, Lng: lng})
		if err == nil {
			m.mu.Lock()
			m.cache.Place = place
			if tz != "" {
				m.cache.Timezone = tz
			}
			m.cache.Geocoded = true
			m.mu.Unlock()
		}
	}

	return m.Snapshot()
}

// Snapshot returns the current cache, tolerating an absent hardware
// session by returning the last known value (possibly the zero value).
func (m *Manager) Snapshot() Cache {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache
}

// Timezone returns the device-reported timezone, falling back to UTC.
func (m *Manager) Timezone() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timezone != "" {
		return m.timezone
	}
	return "UTC"
}
