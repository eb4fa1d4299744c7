package tap

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mickamy/cql-decode/cql/buffer"
	"github.com/mickamy/cql-decode/cql/frame"
)

// relayReadSize is the chunk size read from the upstream connection per
// iteration. It has no relation to frame boundaries — frame.Frame is built
// to tolerate arbitrary chunking (§8).
const relayReadSize = 4096

// conn manages bidirectional relay for a single client connection: client
// bytes pass straight through to upstream, upstream bytes pass straight
// through to the client and are also fed into a frame assembler so a tap.Event
// can be emitted each time a response frame completes.
type conn struct {
	clientConn   net.Conn
	upstreamConn net.Conn
	events       chan<- Event
	nextID       func() string
}

func (c *conn) relay(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() { errCh <- c.relayClientToUpstream(ctx) }()
	go func() { errCh <- c.relayUpstreamToClient(ctx) }()

	err := <-errCh
	_ = c.clientConn.Close()
	_ = c.upstreamConn.Close()
	<-errCh

	return err
}

// relayClientToUpstream forwards client requests verbatim. Request frames
// are out of scope for decoding (§1 Non-goals): only the content, never the
// shape, of this leg matters to the tap.
func (c *conn) relayClientToUpstream(ctx context.Context) error {
	buf := make([]byte, relayReadSize)
	for {
		if ctx.Err() != nil {
			return fmt.Errorf("tap: client relay: %w", ctx.Err())
		}

		n, err := c.clientConn.Read(buf)
		if n > 0 {
			if _, werr := c.upstreamConn.Write(buf[:n]); werr != nil {
				if isClosedErr(werr) {
					return nil
				}
				return fmt.Errorf("tap: send to upstream: %w", werr)
			}
		}
		if err != nil {
			if isClosedErr(err) {
				return nil
			}
			return fmt.Errorf("tap: receive from client: %w", err)
		}
	}
}

// relayUpstreamToClient forwards every byte from the upstream node straight
// to the client, while feeding the same bytes into a frame assembler so each
// completed response frame produces an Event.
func (c *conn) relayUpstreamToClient(ctx context.Context) error {
	buf := make([]byte, relayReadSize)
	fbuf := buffer.New(nil)
	f := frame.New(fbuf)

	for {
		if ctx.Err() != nil {
			return fmt.Errorf("tap: upstream relay: %w", ctx.Err())
		}

		n, err := c.upstreamConn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, werr := c.clientConn.Write(chunk); werr != nil {
				if isClosedErr(werr) {
					return nil
				}
				return fmt.Errorf("tap: send to client: %w", werr)
			}

			if _, ferr := f.Write(chunk); ferr != nil {
				return fmt.Errorf("tap: assemble frame: %w", ferr)
			}
			for f.Complete() {
				c.emitFrame(f)
				before := fbuf.Len()
				f = frame.New(fbuf)
				if f.Complete() && fbuf.Len() == before {
					// No header bytes were consumed: the stream is malformed
					// at a point the frame assembler cannot recover from.
					c.emitFrame(f)
					return fmt.Errorf("tap: upstream relay: desynced response stream")
				}
			}
		}
		if err != nil {
			if isClosedErr(err) {
				return nil
			}
			return fmt.Errorf("tap: receive from upstream: %w", err)
		}
	}
}

func (c *conn) emitFrame(f *frame.Frame) {
	ev := Event{
		ID:         c.nextID(),
		StreamID:   f.StreamID(),
		Opcode:     f.Header().Opcode,
		RawLength:  int(frame.HeaderLength + f.BodyLength()),
		ReceivedAt: time.Now(),
	}
	decoded, err := f.Body()
	if err != nil {
		ev.Err = err
	} else {
		ev.Body = decoded
	}

	select {
	case c.events <- ev:
	default:
	}
}
