// Package coltype parses the recursive column-type descriptor tree that
// labels every column of a CQL result set.
package coltype

import (
	"errors"
	"fmt"

	"github.com/mickamy/cql-decode/cql/buffer"
)

// ErrUnsupportedColumnType is returned for a column-type discriminant that
// is unknown on the wire, or reserved-but-unsupported (counter, text).
var ErrUnsupportedColumnType = errors.New("coltype: unsupported column type")

// Kind discriminates the ColumnType sum type.
type Kind int

const (
	Ascii Kind = iota
	Bigint
	Blob
	Boolean
	Decimal
	Double
	Float
	Int
	Timestamp
	UUID
	Varchar
	Varint
	Timeuuid
	Inet
	List
	Map
	Set
)

func (k Kind) String() string {
	switch k {
	case Ascii:
		return "ascii"
	case Bigint:
		return "bigint"
	case Blob:
		return "blob"
	case Boolean:
		return "boolean"
	case Decimal:
		return "decimal"
	case Double:
		return "double"
	case Float:
		return "float"
	case Int:
		return "int"
	case Timestamp:
		return "timestamp"
	case UUID:
		return "uuid"
	case Varchar:
		return "varchar"
	case Varint:
		return "varint"
	case Timeuuid:
		return "timeuuid"
	case Inet:
		return "inet"
	case List:
		return "list"
	case Map:
		return "map"
	case Set:
		return "set"
	}
	return "unknown"
}

// Type is a (possibly recursive) column type. List and Set carry one
// element type in Elem; Map carries a key type in Elem and a value type
// in Value.
type Type struct {
	Kind  Kind
	Elem  *Type // List/Set element type, Map key type
	Value *Type // Map value type only
}

// Wire discriminant codes. 0x05 (counter) and 0x0a (text) are reserved:
// present in the protocol but never valid as a column-type discriminant.
// There is no text Kind, and cql/value has no separate text decoding; a
// text-typed column fails here like any other unsupported code. Read per
// cql/buffer's ReadOption convention.
const (
	codeAscii     = 0x0001
	codeBigint    = 0x0002
	codeBlob      = 0x0003
	codeBoolean   = 0x0004
	codeCounter   = 0x0005 // reserved, unsupported
	codeDecimal   = 0x0006
	codeDouble    = 0x0007
	codeFloat     = 0x0008
	codeInt       = 0x0009
	codeText      = 0x000a // reserved, unsupported as a column type
	codeTimestamp = 0x000b
	codeUUID      = 0x000c
	codeVarchar   = 0x000d
	codeVarint    = 0x000e
	codeTimeuuid  = 0x000f
	codeInet      = 0x0010
	codeList      = 0x0020
	codeMap       = 0x0021
	codeSet       = 0x0022
)

// Read parses one column-type descriptor from b, recursing through
// List/Map/Set element types as needed.
func Read(b *buffer.Buffer) (Type, error) {
	var result Type
	err := b.ReadOption(func(id uint16, inner *buffer.Buffer) error {
		t, err := fromCode(id, inner)
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return Type{}, fmt.Errorf("coltype: read: %w", err)
	}
	return result, nil
}

func fromCode(id uint16, b *buffer.Buffer) (Type, error) {
	switch id {
	case codeAscii:
		return Type{Kind: Ascii}, nil
	case codeBigint:
		return Type{Kind: Bigint}, nil
	case codeBlob:
		return Type{Kind: Blob}, nil
	case codeBoolean:
		return Type{Kind: Boolean}, nil
	case codeDecimal:
		return Type{Kind: Decimal}, nil
	case codeDouble:
		return Type{Kind: Double}, nil
	case codeFloat:
		return Type{Kind: Float}, nil
	case codeInt:
		return Type{Kind: Int}, nil
	case codeTimestamp:
		return Type{Kind: Timestamp}, nil
	case codeUUID:
		return Type{Kind: UUID}, nil
	case codeVarchar:
		return Type{Kind: Varchar}, nil
	case codeVarint:
		return Type{Kind: Varint}, nil
	case codeTimeuuid:
		return Type{Kind: Timeuuid}, nil
	case codeInet:
		return Type{Kind: Inet}, nil
	case codeList:
		elem, err := Read(b)
		if err != nil {
			return Type{}, fmt.Errorf("list element: %w", err)
		}
		return Type{Kind: List, Elem: &elem}, nil
	case codeMap:
		key, err := Read(b)
		if err != nil {
			return Type{}, fmt.Errorf("map key: %w", err)
		}
		val, err := Read(b)
		if err != nil {
			return Type{}, fmt.Errorf("map value: %w", err)
		}
		return Type{Kind: Map, Elem: &key, Value: &val}, nil
	case codeSet:
		elem, err := Read(b)
		if err != nil {
			return Type{}, fmt.Errorf("set element: %w", err)
		}
		return Type{Kind: Set, Elem: &elem}, nil
	case codeCounter, codeText:
		return Type{}, fmt.Errorf("coltype: reserved code %#04x: %w", id, ErrUnsupportedColumnType)
	}
	return Type{}, fmt.Errorf("coltype: code %#04x: %w", id, ErrUnsupportedColumnType)
}
