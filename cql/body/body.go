// Package body decodes CQL response bodies: Error, Ready, Supported,
// Result (with its Void/Rows/SetKeyspace/Prepared/SchemaChange variants)
// and Event (SchemaChange/StatusChange/TopologyChange). It is the layer
// between the frame assembler (cql/frame) and the typed value decoder
// (cql/value).
package body

import (
	"errors"
	"fmt"

	"github.com/mickamy/cql-decode/cql/buffer"
)

// ErrUnsupportedOperation is returned when an opcode is not one of the
// five response opcodes this decoder understands (§4.2, §7).
var ErrUnsupportedOperation = errors.New("body: unsupported operation")

// Kind discriminates the ResponseBody sum type (§3).
type Kind int

const (
	KindError Kind = iota
	KindReady
	KindSupported
	KindResult
	KindEvent
)

// Body is a decoded response body. Exactly the fields for Kind are
// meaningful; Ready carries no payload.
type Body struct {
	Kind Kind

	Error     *Error
	Supported map[string][]string
	Result    *Result
	Event     *Event
}

// Decode dispatches on opcode and decodes the matching body from b
// (§4.2's opcode table, §4.3/§4.6/§4.7 body decoders).
func Decode(opcode Opcode, b *buffer.Buffer) (Body, error) {
	switch opcode {
	case OpcodeError:
		e, err := DecodeError(b)
		if err != nil {
			return Body{}, fmt.Errorf("body: decode error body: %w", err)
		}
		return Body{Kind: KindError, Error: &e}, nil

	case OpcodeReady:
		return Body{Kind: KindReady}, nil

	case OpcodeSupported:
		opts, err := b.ReadStringMultimap()
		if err != nil {
			return Body{}, fmt.Errorf("body: decode supported body: %w", err)
		}
		return Body{Kind: KindSupported, Supported: opts}, nil

	case OpcodeResult:
		r, err := DecodeResult(b)
		if err != nil {
			return Body{}, fmt.Errorf("body: decode result body: %w", err)
		}
		return Body{Kind: KindResult, Result: &r}, nil

	case OpcodeEvent:
		ev, err := DecodeEvent(b)
		if err != nil {
			return Body{}, fmt.Errorf("body: decode event body: %w", err)
		}
		return Body{Kind: KindEvent, Event: &ev}, nil
	}

	return Body{}, fmt.Errorf("body: opcode %#x: %w", byte(opcode), ErrUnsupportedOperation)
}

// SupportedOpcode reports whether opcode is one of the five response
// opcodes the decoder dispatches on.
func SupportedOpcode(opcode Opcode) bool {
	switch opcode {
	case OpcodeError, OpcodeReady, OpcodeSupported, OpcodeResult, OpcodeEvent:
		return true
	}
	return false
}
