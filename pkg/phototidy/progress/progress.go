// Package progress distributes staged pipeline progress events to
// subscribers. Stages push events through an Emitter; consumers either
// provide a plain callback or subscribe to a Broadcaster for asynchronous
// delivery.
package progress

import (
	"sync"

	"github.com/google/uuid"
)

// Stage names emitted by the pipeline.
const (
	StageScan    = "scan"
	StageDiff    = "diff"
	StageHash    = "hash"
	StagePlan    = "plan"
	StageExecute = "execute"
	StageUndo    = "undo"
)

// Event is one staged progress update. Current is empty when the stage has
// no meaningful current item (for example the final event of a stage).
type Event struct {
	Stage     string `json:"stage"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Current   string `json:"current,omitempty"`
}

// Emitter receives progress events. Implementations must be safe for
// concurrent use; hashing workers emit from multiple goroutines.
type Emitter interface {
	Emit(Event)
}

// Func adapts a plain function to the Emitter interface.
type Func func(Event)

// Emit calls f.
func (f Func) Emit(ev Event) { f(ev) }

// Discard is an Emitter that drops every event.
var Discard Emitter = Func(func(Event) {})

// Subscriber receives events on a buffered channel. Events are dropped
// rather than blocking the producer when the channel is full.
type Subscriber struct {
	ID     string
	Stages map[string]bool
	Events chan Event
}

// Broadcaster fans events out to subscribers. It implements Emitter so it
// can be handed directly to pipeline stages.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe registers interest in the given stages. An empty stage list
// subscribes to every stage.
func (b *Broadcaster) Subscribe(stages ...string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan Event, 128),
	}
	if len(stages) > 0 {
		sub.Stages = make(map[string]bool, len(stages))
		for _, s := range stages {
			sub.Stages[s] = true
		}
	}

	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Emit delivers ev to every matching subscriber without blocking.
func (b *Broadcaster) Emit(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if sub.Stages != nil && !sub.Stages[ev.Stage] {
			continue
		}
		select {
		case sub.Events <- ev:
		default:
			// Subscriber is slow; drop rather than stall the pipeline.
		}
	}
}

// Close closes the broadcaster and all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
