// Package drain holds a tiny process-wide flag used during graceful
// shutdown: once set, the health endpoint reports not-ready so a load
// balancer stops routing new connections here while in-flight SSE streams
// finish.
package drain

import "sync/atomic"

// Flag is a draining state holder shared across handlers. The zero value
// reports not draining.
type Flag struct {
	draining atomic.Bool
}

// SetDraining marks the process as draining (or not). Safe to call on a nil
// Flag, which always reports not draining.
func (f *Flag) SetDraining(draining bool) {
	if f == nil {
		return
	}
	f.draining.Store(draining)
}

// IsDraining reports the current draining state. Safe to call on a nil
// Flag.
func (f *Flag) IsDraining() bool {
	if f == nil {
		return false
	}
	return f.draining.Load()
}
