// Package frame implements the incremental frame assembler: it consumes
// bytes appended in arbitrary chunks from a transport, reconstructs an
// 8-octet header followed by a length-prefixed body, and decodes the body
// by opcode once enough bytes have arrived (§4.2).
package frame

import (
	"errors"
	"fmt"

	"github.com/mickamy/cql-decode/cql/body"
	"github.com/mickamy/cql-decode/cql/buffer"
)

// HeaderLength is the fixed size of a CQL response header, in octets.
const HeaderLength = 8

// ErrUnsupportedFrameType is returned when the version octet's high bit
// is not set — the frame is a request, not a response (§4.2, §7).
var ErrUnsupportedFrameType = errors.New("frame: unsupported frame type")

const responseVersionFlag = 0x80

type state int

const (
	stateAwaitHeader state = iota
	stateAwaitBody
	stateComplete
)

// Header is the decoded 8-octet frame header (§3, §6). Version has had
// the high bit masked off — it is the numeric protocol version only.
type Header struct {
	Version    uint8
	Flags      uint8
	StreamID   int8
	Opcode     body.Opcode
	BodyLength uint32
}

// Frame assembles one response frame from a shared, externally owned
// Buffer. Create one with New for each frame boundary; append bytes with
// Write until Complete reports true, then read Body.
type Frame struct {
	buf   *buffer.Buffer
	state state

	header  Header
	decoded body.Body
	err     error
}

// New begins assembling a frame against buf. buf may already hold bytes
// left over from a previous frame; New advances the state machine over
// them at once, so a buf that already holds a whole frame yields a
// complete Frame without any call to Write.
func New(buf *buffer.Buffer) *Frame {
	f := &Frame{buf: buf}
	f.advance()
	return f
}

// Write appends p to the underlying buffer and advances the state
// machine as far as the available bytes allow. It never returns an error
// for a short append — ShortRead is an internal, not a Write-level,
// condition. A decode failure (unsupported frame type/opcode/etc.) is
// recorded and returned by Body.
func (f *Frame) Write(p []byte) (int, error) {
	f.buf.Append(p)
	f.advance()
	return len(p), nil
}

// Complete reports whether the frame has finished header+body assembly
// (successfully or with a decode error — either way nothing further will
// change).
func (f *Frame) Complete() bool {
	return f.state == stateComplete
}

// StreamID returns the frame's correlation token. Valid only once the
// header has been parsed (as soon as enough bytes for a valid header have
// arrived); a frame that completed with a header error reports zero.
func (f *Frame) StreamID() int8 {
	return f.header.StreamID
}

// BodyLength returns the frame's declared body length. Valid once the
// header has been parsed.
func (f *Frame) BodyLength() uint32 {
	return f.header.BodyLength
}

// Header returns the decoded header. Valid once the header has been
// parsed.
func (f *Frame) Header() Header {
	return f.header
}

// Body returns the decoded response body. It is only meaningful once
// Complete reports true; calling it earlier returns a zero Body and a
// non-nil error.
func (f *Frame) Body() (body.Body, error) {
	if f.state != stateComplete {
		return body.Body{}, fmt.Errorf("frame: body requested before frame is complete")
	}
	if f.err != nil {
		return body.Body{}, f.err
	}
	return f.decoded, nil
}

// advance drives the state machine as far as the currently buffered bytes
// allow, per the AWAIT_HEADER / AWAIT_BODY table in §4.2.
func (f *Frame) advance() {
	if f.state == stateAwaitHeader {
		raw, ok := f.buf.Peek(HeaderLength)
		if !ok {
			return
		}
		if err := f.parseHeader(raw); err != nil {
			f.err = err
			f.state = stateComplete
			return
		}
		// Consume the header octets now that they've been validated.
		if _, err := f.buf.ReadN(HeaderLength); err != nil {
			f.err = fmt.Errorf("frame: consume header: %w", err)
			f.state = stateComplete
			return
		}
		f.state = stateAwaitBody
	}

	if f.state == stateAwaitBody {
		if f.buf.Len() < int(f.header.BodyLength) {
			return
		}
		raw, err := f.buf.ReadN(int(f.header.BodyLength))
		if err != nil {
			f.err = fmt.Errorf("frame: consume body: %w", err)
			f.state = stateComplete
			return
		}
		bodyBuf := buffer.New(raw)
		decoded, err := body.Decode(f.header.Opcode, bodyBuf)
		if err != nil {
			f.err = fmt.Errorf("frame: decode body: %w", err)
		}
		f.decoded = decoded
		f.state = stateComplete
	}
}

func (f *Frame) parseHeader(raw []byte) error {
	version := raw[0]
	if version&responseVersionFlag == 0 {
		return fmt.Errorf("frame: version octet %#x: %w", version, ErrUnsupportedFrameType)
	}
	opcode := body.Opcode(raw[3])
	if !body.SupportedOpcode(opcode) {
		return fmt.Errorf("frame: opcode %#x: %w", raw[3], body.ErrUnsupportedOperation)
	}
	f.header = Header{
		Version:    version &^ responseVersionFlag,
		Flags:      raw[1],
		StreamID:   int8(raw[2]),
		Opcode:     opcode,
		BodyLength: uint32(raw[4])<<24 | uint32(raw[5])<<16 | uint32(raw[6])<<8 | uint32(raw[7]),
	}
	return nil
}
