// Package value decodes raw length-prefixed byte runs into the CQL Value
// ADT, dispatching on the column type produced by cql/coltype and
// recursing into nested list/map/set collections.
package value

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mickamy/cql-decode/cql/buffer"
	"github.com/mickamy/cql-decode/cql/coltype"
)

// Kind discriminates the Value sum type.
type Kind int

const (
	Null Kind = iota
	String
	Int64
	Blob
	Bool
	DecimalValue
	Float64
	Float32
	Int32
	Instant
	UUIDValue
	Varint
	InetValue
	List
	Map
	Set
)

// Value is a decoded column value. Exactly one field is meaningful,
// selected by Kind; Null carries no payload.
type Value struct {
	Kind Kind

	Str     string
	I64     int64
	I32     int32
	Bytes   []byte
	Boolean bool
	Dec     decimal.Decimal
	F64     float64
	F32     float32
	Time    time.Time
	UUID    uuid.UUID
	Big     *big.Int
	IP      net.IP
	Items   []Value    // List, Set
	Entries []MapEntry // Map, insertion order as decoded (later duplicate keys overwrite earlier ones)
}

// MapEntry is one key/value pair of a decoded Map value.
type MapEntry struct {
	Key Value
	Val Value
}

func null() Value { return Value{Kind: Null} }

// Decode produces a Value from a raw byte run and the column type it was
// declared against. A nil/null run (as produced by buffer.ReadBytes when
// the length prefix is negative) always yields the null Value regardless
// of type.
func Decode(data []byte, isNull bool, t coltype.Type) (Value, error) {
	if isNull {
		return null(), nil
	}
	switch t.Kind {
	case coltype.Ascii, coltype.Varchar:
		return Value{Kind: String, Str: string(data)}, nil
	case coltype.Bigint:
		return decodeBigint(data)
	case coltype.Int:
		return decodeInt(data)
	case coltype.Float:
		return decodeFloat(data)
	case coltype.Double:
		return decodeDouble(data)
	case coltype.Boolean:
		return decodeBoolean(data)
	case coltype.Blob:
		return Value{Kind: Blob, Bytes: append([]byte(nil), data...)}, nil
	case coltype.Varint:
		return decodeVarint(data)
	case coltype.Decimal:
		return decodeDecimal(data)
	case coltype.Timestamp:
		return decodeTimestamp(data)
	case coltype.UUID, coltype.Timeuuid:
		return decodeUUID(data)
	case coltype.Inet:
		return decodeInet(data)
	case coltype.List:
		return decodeList(data, *t.Elem)
	case coltype.Map:
		return decodeMap(data, *t.Elem, *t.Value)
	case coltype.Set:
		return decodeSet(data, *t.Elem)
	}
	return Value{}, fmt.Errorf("value: decode: unsupported column type %s", t.Kind)
}

func decodeBigint(data []byte) (Value, error) {
	if len(data) != 8 {
		return Value{}, fmt.Errorf("value: bigint: want 8 bytes, got %d", len(data))
	}
	high := int32(binary.BigEndian.Uint32(data[0:4]))
	low := uint32(binary.BigEndian.Uint32(data[4:8]))
	v := (int64(high) << 32) | int64(low)
	return Value{Kind: Int64, I64: v}, nil
}

func decodeInt(data []byte) (Value, error) {
	if len(data) != 4 {
		return Value{}, fmt.Errorf("value: int: want 4 bytes, got %d", len(data))
	}
	v := int32(binary.BigEndian.Uint32(data))
	return Value{Kind: Int32, I32: v}, nil
}

func decodeFloat(data []byte) (Value, error) {
	if len(data) != 4 {
		return Value{}, fmt.Errorf("value: float: want 4 bytes, got %d", len(data))
	}
	v := math.Float32frombits(binary.BigEndian.Uint32(data))
	return Value{Kind: Float32, F32: v}, nil
}

func decodeDouble(data []byte) (Value, error) {
	if len(data) != 8 {
		return Value{}, fmt.Errorf("value: double: want 8 bytes, got %d", len(data))
	}
	v := math.Float64frombits(binary.BigEndian.Uint64(data))
	return Value{Kind: Float64, F64: v}, nil
}

// decodeBoolean treats 0x01 as true and any other single octet as false,
// matching the wire's documented (if permissive) convention.
func decodeBoolean(data []byte) (Value, error) {
	if len(data) == 0 {
		return Value{Kind: Bool, Boolean: false}, nil
	}
	return Value{Kind: Bool, Boolean: data[0] == 0x01}, nil
}

// decodeVarint parses a big-endian two's-complement integer of arbitrary
// width, sign-extending from the MSB of the first octet.
func decodeVarint(data []byte) (Value, error) {
	if len(data) == 0 {
		return Value{}, fmt.Errorf("value: varint: empty byte run is disallowed")
	}
	return Value{Kind: Varint, Big: varintToBig(data)}, nil
}

func varintToBig(data []byte) *big.Int {
	negative := data[0]&0x80 != 0
	if !negative {
		return new(big.Int).SetBytes(data)
	}
	// Two's complement: invert and add one, then negate.
	inv := make([]byte, len(data))
	for i, b := range data {
		inv[i] = ^b
	}
	magnitude := new(big.Int).SetBytes(inv)
	magnitude.Add(magnitude, big.NewInt(1))
	return magnitude.Neg(magnitude)
}

// decodeDecimal reads an i32 scale prefix followed by a varint unscaled
// value; the decimal equals unscaled * 10^(-scale).
func decodeDecimal(data []byte) (Value, error) {
	if len(data) < 4 {
		return Value{}, fmt.Errorf("value: decimal: want at least 4 bytes, got %d", len(data))
	}
	scale := int32(binary.BigEndian.Uint32(data[0:4]))
	unscaled := data[4:]
	if len(unscaled) == 0 {
		return Value{}, fmt.Errorf("value: decimal: empty unscaled varint is disallowed")
	}
	big := varintToBig(unscaled)
	return Value{Kind: DecimalValue, Dec: decimal.NewFromBigInt(big, -scale)}, nil
}

// decodeTimestamp combines two big-endian i32 words into i64 milliseconds
// since epoch, preserving sub-second precision in the resulting instant.
func decodeTimestamp(data []byte) (Value, error) {
	if len(data) != 8 {
		return Value{}, fmt.Errorf("value: timestamp: want 8 bytes, got %d", len(data))
	}
	high := int32(binary.BigEndian.Uint32(data[0:4]))
	low := uint32(binary.BigEndian.Uint32(data[4:8]))
	millis := (int64(high) << 32) | int64(low)
	t := time.UnixMilli(millis).UTC()
	return Value{Kind: Instant, Time: t}, nil
}

func decodeUUID(data []byte) (Value, error) {
	if len(data) != 16 {
		return Value{}, fmt.Errorf("value: uuid: want 16 bytes, got %d", len(data))
	}
	id, err := uuid.FromBytes(data)
	if err != nil {
		return Value{}, fmt.Errorf("value: uuid: %w", err)
	}
	return Value{Kind: UUIDValue, UUID: id}, nil
}

func decodeInet(data []byte) (Value, error) {
	if len(data) != 4 && len(data) != 16 {
		return Value{}, fmt.Errorf("value: inet: want 4 or 16 bytes, got %d", len(data))
	}
	ip := make(net.IP, len(data))
	copy(ip, data)
	return Value{Kind: InetValue, IP: ip}, nil
}

func decodeList(data []byte, elemType coltype.Type) (Value, error) {
	buf := buffer.New(data)
	count, err := buf.ReadShort()
	if err != nil {
		return Value{}, fmt.Errorf("value: list count: %w", err)
	}
	items := make([]Value, 0, count)
	for i := uint16(0); i < count; i++ {
		v, err := decodeCollectionElement(buf, elemType)
		if err != nil {
			return Value{}, fmt.Errorf("value: list element %d: %w", i, err)
		}
		items = append(items, v)
	}
	return Value{Kind: List, Items: items}, nil
}

func decodeSet(data []byte, elemType coltype.Type) (Value, error) {
	v, err := decodeList(data, elemType)
	if err != nil {
		return Value{}, err
	}
	v.Kind = Set
	return v, nil
}

func decodeMap(data []byte, keyType, valType coltype.Type) (Value, error) {
	buf := buffer.New(data)
	count, err := buf.ReadShort()
	if err != nil {
		return Value{}, fmt.Errorf("value: map count: %w", err)
	}
	// Later duplicate keys overwrite earlier ones in place, preserving the
	// position of the key's first occurrence.
	byKey := make(map[string]int, count)
	entries := make([]MapEntry, 0, count)
	for i := uint16(0); i < count; i++ {
		k, err := decodeCollectionElement(buf, keyType)
		if err != nil {
			return Value{}, fmt.Errorf("value: map key %d: %w", i, err)
		}
		v, err := decodeCollectionElement(buf, valType)
		if err != nil {
			return Value{}, fmt.Errorf("value: map value %d: %w", i, err)
		}
		sk := mapKeyString(k)
		if idx, ok := byKey[sk]; ok {
			entries[idx] = MapEntry{Key: k, Val: v}
			continue
		}
		byKey[sk] = len(entries)
		entries = append(entries, MapEntry{Key: k, Val: v})
	}
	return Value{Kind: Map, Entries: entries}, nil
}

// mapKeyString derives a comparison key for overwrite-on-duplicate
// semantics; it need only distinguish values, not round-trip them.
func mapKeyString(v Value) string {
	return fmt.Sprintf("%d:%q:%d:%d:%x:%t:%s:%v:%v:%v:%s:%v:%v",
		v.Kind, v.Str, v.I64, v.I32, v.Bytes, v.Boolean, v.Dec.String(),
		v.F64, v.F32, v.Time, v.UUID, v.Big, v.IP)
}

// decodeCollectionElement reads one short-bytes run and decodes it against
// elemType; a negative element-byte prefix is a null element, not an
// empty one.
func decodeCollectionElement(buf *buffer.Buffer, elemType coltype.Type) (Value, error) {
	n, err := buf.ReadShort()
	if err != nil {
		return Value{}, fmt.Errorf("element length: %w", err)
	}
	signed := int16(n)
	if signed < 0 {
		return null(), nil
	}
	data, err := buf.ReadN(int(signed))
	if err != nil {
		return Value{}, fmt.Errorf("element bytes: %w", err)
	}
	return Decode(data, false, elemType)
}
