// Package tap implements a transparent TCP relay that sits between a CQL
// client and a Cassandra-compatible node, forwarding every byte unchanged
// in both directions while decoding the upstream-to-client leg into
// tap.Event values as response frames complete.
package tap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mickamy/cql-decode/cql/body"
)

// Event is a single decoded response frame observed on the wire, timestamped
// at the moment its body finished assembling.
type Event struct {
	ID         string
	StreamID   int8
	Opcode     body.Opcode
	Body       body.Body
	ReceivedAt time.Time
	RawLength  int
	Err        error

	// Burst is set by a caller running events through a detect.Detector; the
	// tap itself never populates it.
	Burst bool
}

// Tap accepts client connections on a local address and relays each one to
// a single upstream node, emitting an Event for every response frame it
// observes passing from the upstream to the client. An Event is dropped,
// not queued, when the Events channel's buffer is full.
type Tap struct {
	listenAddr   string
	upstreamAddr string

	events chan Event

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	nextID   uint64
}

// New returns a Tap that will listen on listenAddr and relay to
// upstreamAddr once ListenAndServe is called.
func New(listenAddr, upstreamAddr string) *Tap {
	return &Tap{
		listenAddr:   listenAddr,
		upstreamAddr: upstreamAddr,
		events:       make(chan Event, 256),
	}
}

// Events returns the channel of decoded response events. It is never closed;
// callers should select on ctx.Done() alongside it.
func (t *Tap) Events() <-chan Event {
	return t.events
}

// ListenAndServe accepts client connections until ctx is cancelled or Close
// is called, relaying each to the upstream node in its own goroutine.
func (t *Tap) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", t.listenAddr)
	if err != nil {
		return fmt.Errorf("tap: listen: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = lis.Close()
		return fmt.Errorf("tap: already closed")
	}
	t.listener = lis
	t.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = t.Close()
		case <-done:
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		clientConn, err := lis.Accept()
		if err != nil {
			if isClosedErr(err) {
				return nil
			}
			return fmt.Errorf("tap: accept: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			t.handle(ctx, clientConn)
		}()
	}
}

func (t *Tap) handle(ctx context.Context, clientConn net.Conn) {
	upstreamConn, err := net.Dial("tcp", t.upstreamAddr)
	if err != nil {
		_ = clientConn.Close()
		return
	}

	c := &conn{
		clientConn:   clientConn,
		upstreamConn: upstreamConn,
		events:       t.events,
		nextID:       t.allocID,
	}
	_ = c.relay(ctx)
}

func (t *Tap) allocID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return strconv.FormatUint(t.nextID, 10)
}

// Close stops accepting new connections. Connections already being relayed
// run to completion.
func (t *Tap) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.listener == nil {
		return nil
	}
	if err := t.listener.Close(); err != nil {
		return fmt.Errorf("tap: close: %w", err)
	}
	return nil
}

func isClosedErr(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return strings.Contains(netErr.Err.Error(), "closed")
	}
	return strings.Contains(err.Error(), "closed")
}
