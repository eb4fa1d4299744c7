package body

import (
	"fmt"

	"github.com/mickamy/cql-decode/cql/buffer"
)

// Error codes that carry a structured ErrorDetails payload (§3).
const (
	codeUnavailable   int32 = 0x1000
	codeWriteTimeout  int32 = 0x1100
	codeReadTimeout   int32 = 0x1200
	codeAlreadyExists int32 = 0x2400
	codeUnprepared    int32 = 0x2500
)

// DetailsKind discriminates the ErrorDetails sum type.
type DetailsKind int

const (
	DetailsNone DetailsKind = iota
	DetailsUnavailable
	DetailsWriteTimeout
	DetailsReadTimeout
	DetailsAlreadyExists
	DetailsUnprepared
)

// Details carries the code-specific fields of a protocol-reported error.
// Exactly the fields for Kind are meaningful.
type Details struct {
	Kind DetailsKind

	Consistency buffer.Consistency // Unavailable, WriteTimeout, ReadTimeout
	Required    int32              // Unavailable
	Alive       int32              // Unavailable
	Received    int32              // WriteTimeout, ReadTimeout
	BlockFor    int32              // WriteTimeout, ReadTimeout
	WriteType   string             // WriteTimeout
	DataPresent bool               // ReadTimeout
	Keyspace    string             // AlreadyExists
	Table       string             // AlreadyExists
	ID          []byte             // Unprepared
}

// Error is a decoded ErrorResponse body. It is a successfully decoded
// response value, not a decoder error (§7) — policy handling of
// protocol-reported errors belongs to the caller.
type Error struct {
	Code    int32
	Message string
	Details *Details // nil for a bare error (code not in the structured set)
}

// DecodeError reads code, message and — if the code names a structured
// kind — the matching Details payload (§4.6, §3).
func DecodeError(b *buffer.Buffer) (Error, error) {
	code, err := b.ReadInt()
	if err != nil {
		return Error{}, fmt.Errorf("body: error code: %w", err)
	}
	msg, err := b.ReadString()
	if err != nil {
		return Error{}, fmt.Errorf("body: error message: %w", err)
	}

	e := Error{Code: code, Message: msg}

	details, err := decodeDetails(code, b)
	if err != nil {
		return Error{}, fmt.Errorf("body: error details: %w", err)
	}
	e.Details = details
	return e, nil
}

func decodeDetails(code int32, b *buffer.Buffer) (*Details, error) {
	switch code {
	case codeUnavailable:
		cl, err := b.ReadConsistency()
		if err != nil {
			return nil, fmt.Errorf("unavailable: consistency: %w", err)
		}
		required, err := b.ReadInt()
		if err != nil {
			return nil, fmt.Errorf("unavailable: required: %w", err)
		}
		alive, err := b.ReadInt()
		if err != nil {
			return nil, fmt.Errorf("unavailable: alive: %w", err)
		}
		return &Details{Kind: DetailsUnavailable, Consistency: cl, Required: required, Alive: alive}, nil

	case codeWriteTimeout:
		cl, err := b.ReadConsistency()
		if err != nil {
			return nil, fmt.Errorf("write timeout: consistency: %w", err)
		}
		received, err := b.ReadInt()
		if err != nil {
			return nil, fmt.Errorf("write timeout: received: %w", err)
		}
		blockFor, err := b.ReadInt()
		if err != nil {
			return nil, fmt.Errorf("write timeout: blockfor: %w", err)
		}
		writeType, err := b.ReadString()
		if err != nil {
			return nil, fmt.Errorf("write timeout: write_type: %w", err)
		}
		return &Details{
			Kind: DetailsWriteTimeout, Consistency: cl,
			Received: received, BlockFor: blockFor, WriteType: writeType,
		}, nil

	case codeReadTimeout:
		cl, err := b.ReadConsistency()
		if err != nil {
			return nil, fmt.Errorf("read timeout: consistency: %w", err)
		}
		received, err := b.ReadInt()
		if err != nil {
			return nil, fmt.Errorf("read timeout: received: %w", err)
		}
		blockFor, err := b.ReadInt()
		if err != nil {
			return nil, fmt.Errorf("read timeout: blockfor: %w", err)
		}
		presentByte, err := b.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read timeout: data_present: %w", err)
		}
		return &Details{
			Kind: DetailsReadTimeout, Consistency: cl,
			Received: received, BlockFor: blockFor, DataPresent: presentByte != 0,
		}, nil

	case codeAlreadyExists:
		ks, err := b.ReadString()
		if err != nil {
			return nil, fmt.Errorf("already exists: keyspace: %w", err)
		}
		table, err := b.ReadString()
		if err != nil {
			return nil, fmt.Errorf("already exists: table: %w", err)
		}
		return &Details{Kind: DetailsAlreadyExists, Keyspace: ks, Table: table}, nil

	case codeUnprepared:
		id, err := b.ReadShortBytes()
		if err != nil {
			return nil, fmt.Errorf("unprepared: id: %w", err)
		}
		return &Details{Kind: DetailsUnprepared, ID: id}, nil
	}

	return nil, nil
}
