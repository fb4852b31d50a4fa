// Package transcript accumulates a user utterance across a noisy,
// interim-updating transcription stream: it detects the wake phrase,
// concatenates confirmed utterances, and fires a callback once speech has
// been silent for a configured window.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/glasscore/glasscore/pkg/core/hardware"
	"github.com/glasscore/glasscore/pkg/core/wakeword"
)

// DefaultSilenceWindow is the default time the accumulator waits for more
// speech before treating the utterance as complete.
const DefaultSilenceWindow = 1500 * time.Millisecond

// ReadyFunc is invoked once a query is ready to be processed. It runs on
// its own goroutine so a slow consumer never blocks the silence timer.
type ReadyFunc func(query string, speakerID string)

// Accumulator tracks one user's in-progress utterance. It is safe for
// concurrent use: all state is guarded by an internal mutex.
type Accumulator struct {
	matcher       *wakeword.Matcher
	silenceWindow time.Duration
	onReady       ReadyFunc

	mu                   sync.Mutex
	listening            bool
	confirmedTranscript  string
	currentUtteranceText string
	lastConfirmedUttID   string
	haveConfirmedAny     bool
	lastFinalSpeakerID   string
	timer                *time.Timer
	destroyed            bool
}

// New builds an Accumulator using matcher for wake-word detection and
// residue stripping. onReady is called (never with an empty query) once
// per completed utterance.
func New(matcher *wakeword.Matcher, silenceWindow time.Duration, onReady ReadyFunc) *Accumulator {
	if silenceWindow <= 0 {
		silenceWindow = DefaultSilenceWindow
	}
	return &Accumulator{
		matcher:       matcher,
		silenceWindow: silenceWindow,
		onReady:       onReady,
	}
}

// Reattach clears the destroyed flag so a reconnecting hardware session can
// resume feeding this accumulator. It does not reset accumulation state.
func (a *Accumulator) Reattach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyed = false
}

// Destroy gates further emission, cancels any pending silence timer, and
// discards the in-progress utterance. It is idempotent.
func (a *Accumulator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyed = true
	a.stopTimerLocked()
	a.listening = false
	a.confirmedTranscript = ""
	a.currentUtteranceText = ""
	a.lastConfirmedUttID = ""
	a.haveConfirmedAny = false
}

// Listening reports whether the accumulator is currently inside a
// listening window (post wake-word, pre-silence).
func (a *Accumulator) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

// Feed processes one transcription event per the accumulator state
// machine described in the design: wake-word arming while idle,
// cumulative confirmation and silence rearming while listening.
func (a *Accumulator) Feed(ev hardware.TranscriptionEvent) {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}

	if !a.listening {
		result := a.matcher.Detect(ev.Text)
		if !result.Matched {
			a.mu.Unlock()
			return
		}
		a.listening = true
		a.confirmedTranscript = ""
		a.currentUtteranceText = ""
		a.lastFinalSpeakerID = ev.SpeakerID
		a.lastConfirmedUttID = ""
		a.haveConfirmedAny = false
		if ev.IsFinal {
			// The arming utterance is already complete: confirm its tail so a
			// later final neither drops it nor re-confirms the same utteranceId.
			a.confirmedTranscript = result.TailAfterMatch
			a.lastConfirmedUttID = ev.UtteranceID
			a.haveConfirmedAny = true
		} else {
			a.currentUtteranceText = result.TailAfterMatch
		}
		a.rearmLocked()
		a.mu.Unlock()
		return
	}

	clean := a.matcher.StripResidue(ev.Text)
	clean = a.matcher.RemoveWakeWord(clean)

	if ev.IsFinal {
		duplicate := ev.UtteranceID != "" && a.haveConfirmedAny && ev.UtteranceID == a.lastConfirmedUttID
		if duplicate {
			a.mu.Unlock()
			return
		}
		if clean != "" {
			if a.confirmedTranscript == "" {
				a.confirmedTranscript = clean
			} else {
				a.confirmedTranscript = a.confirmedTranscript + " " + clean
			}
		}
		a.currentUtteranceText = ""
		a.lastConfirmedUttID = ev.UtteranceID
		a.haveConfirmedAny = true
		a.lastFinalSpeakerID = ev.SpeakerID
		a.rearmLocked()
		a.mu.Unlock()
		return
	}

	a.currentUtteranceText = clean
	a.lastFinalSpeakerID = ev.SpeakerID
	a.rearmLocked()
	a.mu.Unlock()
}

func (a *Accumulator) rearmLocked() {
	a.stopTimerLocked()
	a.timer = time.AfterFunc(a.silenceWindow, a.fire)
}

func (a *Accumulator) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Accumulator) fire() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}

	full := strings.TrimSpace(a.confirmedTranscript + " " + a.currentUtteranceText)
	full = a.matcher.StripResidue(full)
	full = a.matcher.RemoveWakeWord(full)
	full = strings.TrimSpace(full)
	speaker := a.lastFinalSpeakerID
	onReady := a.onReady

	a.listening = false
	a.confirmedTranscript = ""
	a.currentUtteranceText = ""
	a.lastConfirmedUttID = ""
	a.haveConfirmedAny = false
	a.timer = nil
	a.mu.Unlock()

	if full != "" && onReady != nil {
		go onReady(full, speaker)
	}
}
