// Package eventbus fans out per-user, per-topic events to live subscribers
// (server-push transports) and queues events for topics with no current
// subscriber so a late joiner can replay what it missed.
package eventbus

import (
	"encoding/json"
	"sync"
)

// Topic is one of the three fan-out channels.
type Topic string

const (
	TopicChat          Topic = "chat"
	TopicTranscription Topic = "transcription"
	TopicPhoto         Topic = "photo"
)

// DefaultPendingCeiling bounds each pending FIFO; once full, the oldest
// queued event is dropped to make room for the newest.
const DefaultPendingCeiling = 200

// Writer is a live subscriber. Write should return an error (and the
// subscriber will be removed) on any failure, including a write deadline
// expiring.
type Writer interface {
	Write(line string) error
}

type key struct {
	userID string
	topic  Topic
}

type topicState struct {
	mu          sync.Mutex
	subscribers map[string]Writer // keyed by subscriber id
	pending     []string
}

// Bus is the process-wide event fan-out. The zero value is not usable; use
// New.
type Bus struct {
	ceiling int

	mu     sync.Mutex
	topics map[key]*topicState
}

// New builds an empty Bus with the default pending-queue ceiling.
func New() *Bus {
	return &Bus{ceiling: DefaultPendingCeiling, topics: make(map[key]*topicState)}
}

func (b *Bus) stateFor(userID string, topic Topic) *topicState {
	k := key{userID, topic}
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.topics[k]
	if !ok {
		st = &topicState{subscribers: make(map[string]Writer)}
		b.topics[k] = st
	}
	return st
}

// Broadcast serialises event to JSON and either delivers it to every
// current subscriber of (userID, topic), or — if there are none — appends
// it to the pending FIFO for a later subscriber to replay. A write failure
// removes that subscriber; other subscribers are unaffected.
func (b *Bus) Broadcast(userID string, topic Topic, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	line := string(payload)

	st := b.stateFor(userID, topic)
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.subscribers) == 0 {
		st.pending = append(st.pending, line)
		if len(st.pending) > b.ceiling {
			st.pending = st.pending[len(st.pending)-b.ceiling:]
		}
		return nil
	}

	for id, w := range st.subscribers {
		if werr := w.Write(line); werr != nil {
			delete(st.subscribers, id)
		}
	}
	return nil
}

// Subscribe registers writer under subscriberID for (userID, topic). If
// the pending FIFO was non-empty, it is drained into writer in order and
// cleared, and flushedPending is true — the caller (the server-push
// transport) uses this to decide whether to additionally emit a history
// replay.
func (b *Bus) Subscribe(userID string, topic Topic, subscriberID string, writer Writer) (flushedPending bool) {
	st := b.stateFor(userID, topic)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.subscribers[subscriberID] = writer

	if len(st.pending) == 0 {
		return false
	}
	for _, line := range st.pending {
		_ = writer.Write(line) // best effort: a cold subscriber that fails will be torn down by its own transport loop
	}
	st.pending = nil
	return true
}

// Unsubscribe removes subscriberID from (userID, topic). Idempotent.
func (b *Bus) Unsubscribe(userID string, topic Topic, subscriberID string) {
	st := b.stateFor(userID, topic)
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.subscribers, subscriberID)
}

// ClearPending drops the pending FIFO for (userID, topic). If topic is
// empty, every topic for userID is cleared — used on hard session end to
// avoid unbounded growth across a permanent disconnect.
func (b *Bus) ClearPending(userID string, topic Topic) {
	if topic != "" {
		st := b.stateFor(userID, topic)
		st.mu.Lock()
		st.pending = nil
		st.mu.Unlock()
		return
	}

	b.mu.Lock()
	var keys []key
	for k := range b.topics {
		if k.userID == userID {
			keys = append(keys, k)
		}
	}
	b.mu.Unlock()

	for _, k := range keys {
		st := b.stateFor(k.userID, k.topic)
		st.mu.Lock()
		st.pending = nil
		st.mu.Unlock()
	}
}

// SubscriberCount returns the number of live subscribers for (userID, topic).
func (b *Bus) SubscriberCount(userID string, topic Topic) int {
	st := b.stateFor(userID, topic)
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.subscribers)
}
