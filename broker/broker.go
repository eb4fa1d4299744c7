// Package broker fans decoded frame events out to subscribers (the web
// SSE endpoint, a future TUI). It has no teacher source file of its own —
// github.com/mickamy/sql-tap's broker package was not part of the
// retrieval pack — but its Subscribe/Publish shape is grounded in how
// server.go and web.go in that pack consume it.
package broker

import (
	"sync"

	"github.com/mickamy/cql-decode/tap"
)

// Broker fans a single stream of tap.Event values out to any number of
// subscribers. A slow subscriber never blocks a fast one: events are
// dropped for subscribers whose channel is full.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan tap.Event
	nextID int
	buf    int
}

// New creates a Broker whose subscriber channels are buffered to buf
// events.
func New(buf int) *Broker {
	return &Broker{subs: make(map[int]chan tap.Event), buf: buf}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. Callers must call unsub when done to release the
// channel.
func (b *Broker) Subscribe() (<-chan tap.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan tap.Event, b.buf)
	b.subs[id] = ch

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
	return ch, unsub
}

// Publish fans ev out to every current subscriber, dropping it for any
// subscriber whose channel is currently full.
func (b *Broker) Publish(ev tap.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
