// Package buffer implements the appendable octet queue and primitive
// cursor-style reads that every higher CQL decoder layer is built on.
package buffer

import (
	"errors"
	"fmt"
)

// ErrShortRead is returned by any primitive read that needs more octets
// than the buffer currently holds. Under the frame assembler's discipline
// (cql/frame) this should never surface — a read is only attempted once
// enough bytes have arrived — so seeing it indicates a corrupted length
// prefix or a caller bypassing the assembler.
var ErrShortRead = errors.New("buffer: short read")

// Buffer is an appendable, sliceable octet queue. Reads are destructive:
// each primitive read advances the cursor and consumes exactly the bytes
// it describes. The zero value is an empty, ready-to-use Buffer.
type Buffer struct {
	data []byte
}

// New creates a Buffer pre-loaded with the given bytes. The slice is
// copied; the caller retains ownership of the original.
func New(b []byte) *Buffer {
	buf := &Buffer{}
	buf.Append(b)
	return buf
}

// Append adds bytes to the tail of the queue.
func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// Len returns the number of unread octets.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Peek returns the first n unread octets without consuming them. It
// reports false if fewer than n octets are available.
func (b *Buffer) Peek(n int) ([]byte, bool) {
	if n < 0 || len(b.data) < n {
		return nil, false
	}
	return b.data[:n], true
}

// take consumes and returns the first n octets, or ErrShortRead if the
// buffer doesn't hold that many.
func (b *Buffer) take(n int) ([]byte, error) {
	if n < 0 || len(b.data) < n {
		return nil, fmt.Errorf("buffer: need %d bytes, have %d: %w", n, len(b.data), ErrShortRead)
	}
	out := b.data[:n]
	b.data = b.data[n:]
	return out, nil
}

// ReadN consumes and returns the next n octets.
func (b *Buffer) ReadN(n int) ([]byte, error) {
	p, err := b.take(n)
	if err != nil {
		return nil, fmt.Errorf("buffer: read %d bytes: %w", n, err)
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

// ReadByte reads a single octet.
func (b *Buffer) ReadByte() (byte, error) {
	p, err := b.take(1)
	if err != nil {
		return 0, fmt.Errorf("buffer: read byte: %w", err)
	}
	return p[0], nil
}

// ReadShort reads a big-endian unsigned 16-bit integer.
func (b *Buffer) ReadShort() (uint16, error) {
	p, err := b.take(2)
	if err != nil {
		return 0, fmt.Errorf("buffer: read short: %w", err)
	}
	return uint16(p[0])<<8 | uint16(p[1]), nil
}

// ReadInt reads a big-endian signed 32-bit integer.
func (b *Buffer) ReadInt() (int32, error) {
	p, err := b.take(4)
	if err != nil {
		return 0, fmt.Errorf("buffer: read int: %w", err)
	}
	v := uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
	return int32(v), nil
}

// ReadString reads a u16-length-prefixed UTF-8 string.
func (b *Buffer) ReadString() (string, error) {
	n, err := b.ReadShort()
	if err != nil {
		return "", fmt.Errorf("buffer: read string length: %w", err)
	}
	p, err := b.take(int(n))
	if err != nil {
		return "", fmt.Errorf("buffer: read string: %w", err)
	}
	return string(p), nil
}

// ReadLongString reads a u32-length-prefixed UTF-8 string.
func (b *Buffer) ReadLongString() (string, error) {
	n, err := b.ReadInt()
	if err != nil {
		return "", fmt.Errorf("buffer: read long string length: %w", err)
	}
	if n < 0 {
		return "", fmt.Errorf("buffer: read long string: negative length %d", n)
	}
	p, err := b.take(int(n))
	if err != nil {
		return "", fmt.Errorf("buffer: read long string: %w", err)
	}
	return string(p), nil
}

// ReadBytes reads an i32-length-prefixed byte run. A negative length
// denotes SQL-level null, reported as (nil, true, nil).
func (b *Buffer) ReadBytes() (data []byte, isNull bool, err error) {
	n, err := b.ReadInt()
	if err != nil {
		return nil, false, fmt.Errorf("buffer: read bytes length: %w", err)
	}
	if n < 0 {
		return nil, true, nil
	}
	p, err := b.take(int(n))
	if err != nil {
		return nil, false, fmt.Errorf("buffer: read bytes: %w", err)
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, false, nil
}

// ReadShortBytes reads a u16-length-prefixed byte run.
func (b *Buffer) ReadShortBytes() ([]byte, error) {
	n, err := b.ReadShort()
	if err != nil {
		return nil, fmt.Errorf("buffer: read short bytes length: %w", err)
	}
	p, err := b.take(int(n))
	if err != nil {
		return nil, fmt.Errorf("buffer: read short bytes: %w", err)
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

// ReadOption reads a u16 discriminant and invokes f with it and the
// buffer positioned at the start of the variant-specific payload.
func (b *Buffer) ReadOption(f func(id uint16, b *Buffer) error) error {
	id, err := b.ReadShort()
	if err != nil {
		return fmt.Errorf("buffer: read option id: %w", err)
	}
	if err := f(id, b); err != nil {
		return fmt.Errorf("buffer: read option payload: %w", err)
	}
	return nil
}

// ReadInet reads a one-octet address-length prefix followed by that many
// address octets (4 for IPv4, 16 for IPv6) and a big-endian i32 port.
func (b *Buffer) ReadInet() (addr []byte, port int32, err error) {
	n, err := b.ReadByte()
	if err != nil {
		return nil, 0, fmt.Errorf("buffer: read inet address length: %w", err)
	}
	if n != 4 && n != 16 {
		return nil, 0, fmt.Errorf("buffer: read inet: invalid address length %d", n)
	}
	p, err := b.take(int(n))
	if err != nil {
		return nil, 0, fmt.Errorf("buffer: read inet address: %w", err)
	}
	addr = make([]byte, len(p))
	copy(addr, p)
	port, err = b.ReadInt()
	if err != nil {
		return nil, 0, fmt.Errorf("buffer: read inet port: %w", err)
	}
	return addr, port, nil
}

// Consistency is a named consistency level carried by several error payloads.
type Consistency uint16

const (
	ConsistencyAny Consistency = iota
	ConsistencyOne
	ConsistencyTwo
	ConsistencyThree
	ConsistencyQuorum
	ConsistencyAll
	ConsistencyLocalQuorum
	ConsistencyEachQuorum
	ConsistencySerial
	ConsistencyLocalSerial
	ConsistencyLocalOne
)

func (c Consistency) String() string {
	switch c {
	case ConsistencyAny:
		return "ANY"
	case ConsistencyOne:
		return "ONE"
	case ConsistencyTwo:
		return "TWO"
	case ConsistencyThree:
		return "THREE"
	case ConsistencyQuorum:
		return "QUORUM"
	case ConsistencyAll:
		return "ALL"
	case ConsistencyLocalQuorum:
		return "LOCAL_QUORUM"
	case ConsistencyEachQuorum:
		return "EACH_QUORUM"
	case ConsistencySerial:
		return "SERIAL"
	case ConsistencyLocalSerial:
		return "LOCAL_SERIAL"
	case ConsistencyLocalOne:
		return "LOCAL_ONE"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint16(c))
}

// ReadConsistency reads a u16 mapped to a named consistency level.
func (b *Buffer) ReadConsistency() (Consistency, error) {
	v, err := b.ReadShort()
	if err != nil {
		return 0, fmt.Errorf("buffer: read consistency: %w", err)
	}
	return Consistency(v), nil
}

// ReadStringMultimap reads a u16 entry count, each entry a string key and
// a string-list value.
func (b *Buffer) ReadStringMultimap() (map[string][]string, error) {
	count, err := b.ReadShort()
	if err != nil {
		return nil, fmt.Errorf("buffer: read string multimap count: %w", err)
	}
	out := make(map[string][]string, count)
	for i := uint16(0); i < count; i++ {
		key, err := b.ReadString()
		if err != nil {
			return nil, fmt.Errorf("buffer: read string multimap key: %w", err)
		}
		listLen, err := b.ReadShort()
		if err != nil {
			return nil, fmt.Errorf("buffer: read string multimap list length: %w", err)
		}
		values := make([]string, listLen)
		for j := uint16(0); j < listLen; j++ {
			v, err := b.ReadString()
			if err != nil {
				return nil, fmt.Errorf("buffer: read string multimap value: %w", err)
			}
			values[j] = v
		}
		out[key] = values
	}
	return out, nil
}
