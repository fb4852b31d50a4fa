package transcript

import (
	"sync"
	"testing"
	"time"

	"github.com/glasscore/glasscore/pkg/core/hardware"
	"github.com/glasscore/glasscore/pkg/core/wakeword"
)

func waitForReady(t *testing.T, readyCh <-chan string, timeout time.Duration) (string, bool) {
	t.Helper()
	select {
	case q := <-readyCh:
		return q, true
	case <-time.After(timeout):
		return "", false
	}
}

func newTestAccumulator(t *testing.T, window time.Duration) (*Accumulator, <-chan string) {
	t.Helper()
	ch := make(chan string, 8)
	var mu sync.Mutex
	fired := 0
	a := New(wakeword.New(), window, func(query, speaker string) {
		mu.Lock()
		fired++
		mu.Unlock()
		ch <- query
	})
	return a, ch
}

func TestAccumulator_SplitWordWakeAndTwoUtteranceQuery(t *testing.T) {
	a, ready := newTestAccumulator(t, 60*time.Millisecond)

	a.Feed(hardware.TranscriptionEvent{Text: "Hey Mentra", IsFinal: false})
	a.Feed(hardware.TranscriptionEvent{Text: "Hey Mentra what time is it", IsFinal: false})
	a.Feed(hardware.TranscriptionEvent{Text: "Hey Mentra what time is it", IsFinal: true, UtteranceID: "1"})

	time.Sleep(40 * time.Millisecond) // below the silence window

	a.Feed(hardware.TranscriptionEvent{Text: "what's the weather", IsFinal: false})
	a.Feed(hardware.TranscriptionEvent{Text: "what's the weather", IsFinal: true, UtteranceID: "2"})

	query, ok := waitForReady(t, ready, 200*time.Millisecond)
	if !ok {
		t.Fatal("onQueryReady never fired")
	}
	if query != "what time is it what's the weather" {
		t.Fatalf("query = %q", query)
	}

	select {
	case extra := <-ready:
		t.Fatalf("onQueryReady fired a second time with %q", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAccumulator_WakeWordResidueOnSplitUtterance(t *testing.T) {
	a, ready := newTestAccumulator(t, 40*time.Millisecond)

	a.Feed(hardware.TranscriptionEvent{Text: "hey mentr", IsFinal: true, UtteranceID: "1"})
	a.Feed(hardware.TranscriptionEvent{Text: "a, how much is the ticket", IsFinal: true, UtteranceID: "2"})

	query, ok := waitForReady(t, ready, 200*time.Millisecond)
	if !ok {
		t.Fatal("onQueryReady never fired")
	}
	if query != "how much is the ticket" {
		t.Fatalf("query = %q", query)
	}
}

func TestAccumulator_DuplicateFinalUtteranceIsNoOp(t *testing.T) {
	a, ready := newTestAccumulator(t, 40*time.Millisecond)

	a.Feed(hardware.TranscriptionEvent{Text: "Hey Mentra tell me a joke", IsFinal: true, UtteranceID: "1"})
	a.Feed(hardware.TranscriptionEvent{Text: "Hey Mentra tell me a joke but different", IsFinal: true, UtteranceID: "1"})

	query, ok := waitForReady(t, ready, 200*time.Millisecond)
	if !ok {
		t.Fatal("onQueryReady never fired")
	}
	if query != "tell me a joke" {
		t.Fatalf("duplicate utteranceId should be a no-op, got query = %q", query)
	}
}

func TestAccumulator_NoUtteranceIDTreatsEachFinalAsNewBoundary(t *testing.T) {
	a, ready := newTestAccumulator(t, 40*time.Millisecond)

	a.Feed(hardware.TranscriptionEvent{Text: "Hey Mentra one", IsFinal: true})
	a.Feed(hardware.TranscriptionEvent{Text: "two", IsFinal: true})

	query, ok := waitForReady(t, ready, 200*time.Millisecond)
	if !ok {
		t.Fatal("onQueryReady never fired")
	}
	if query != "one two" {
		t.Fatalf("query = %q", query)
	}
}

func TestAccumulator_IgnoresEventsBeforeWakeWord(t *testing.T) {
	a, ready := newTestAccumulator(t, 30*time.Millisecond)

	a.Feed(hardware.TranscriptionEvent{Text: "just some background chatter", IsFinal: true})

	select {
	case q := <-ready:
		t.Fatalf("onQueryReady fired without a wake word: %q", q)
	case <-time.After(80 * time.Millisecond):
	}
	if a.Listening() {
		t.Fatal("accumulator should not be listening")
	}
}

func TestAccumulator_DestroyGatesEmission(t *testing.T) {
	a, ready := newTestAccumulator(t, 20*time.Millisecond)

	a.Feed(hardware.TranscriptionEvent{Text: "Hey Mentra hello", IsFinal: true, UtteranceID: "1"})
	a.Destroy()

	select {
	case q := <-ready:
		t.Fatalf("onQueryReady fired after Destroy: %q", q)
	case <-time.After(80 * time.Millisecond):
	}

	a.Reattach()
	a.Feed(hardware.TranscriptionEvent{Text: "Hey Mentra hello again", IsFinal: true, UtteranceID: "2"})
	query, ok := waitForReady(t, ready, 200*time.Millisecond)
	if !ok {
		t.Fatal("onQueryReady never fired after Reattach")
	}
	if query != "hello again" {
		t.Fatalf("query = %q", query)
	}
}
