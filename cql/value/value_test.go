package value_test

import (
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/mickamy/cql-decode/cql/coltype"
	"github.com/mickamy/cql-decode/cql/value"
)

func TestDecodeNull(t *testing.T) {
	t.Parallel()
	v, err := value.Decode(nil, true, coltype.Type{Kind: coltype.Int})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Kind != value.Null {
		t.Errorf("Kind = %v, want Null", v.Kind)
	}
}

func TestDecodeInt(t *testing.T) {
	t.Parallel()
	v, err := value.Decode([]byte{0x00, 0x00, 0x00, 0x2A}, false, coltype.Type{Kind: coltype.Int})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Kind != value.Int32 || v.I32 != 42 {
		t.Errorf("got Kind=%v I32=%d, want Int32/42", v.Kind, v.I32)
	}
}

func TestDecodeBigint(t *testing.T) {
	t.Parallel()
	v, err := value.Decode([]byte{0, 0, 0, 0, 0, 0, 0, 100}, false, coltype.Type{Kind: coltype.Bigint})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Kind != value.Int64 || v.I64 != 100 {
		t.Errorf("got %v/%d, want Int64/100", v.Kind, v.I64)
	}
}

func TestDecodeBigintNegative(t *testing.T) {
	t.Parallel()
	v, err := value.Decode([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, false, coltype.Type{Kind: coltype.Bigint})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.I64 != -1 {
		t.Errorf("I64 = %d, want -1", v.I64)
	}
}

func TestDecodeBoolean(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []byte
		want bool
	}{
		{"true", []byte{0x01}, true},
		{"false zero", []byte{0x00}, false},
		{"false other octet", []byte{0x7f}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := value.Decode(tt.in, false, coltype.Type{Kind: coltype.Boolean})
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if v.Boolean != tt.want {
				t.Errorf("Boolean = %v, want %v", v.Boolean, tt.want)
			}
		})
	}
}

func TestDecodeVarint(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []byte
		want int64
	}{
		{"positive", []byte{0x01, 0x00}, 256},
		{"negative one", []byte{0xff}, -1},
		{"zero", []byte{0x00}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := value.Decode(tt.in, false, coltype.Type{Kind: coltype.Varint})
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if v.Big.Cmp(big.NewInt(tt.want)) != 0 {
				t.Errorf("Big = %v, want %d", v.Big, tt.want)
			}
		})
	}
}

func TestDecodeVarintEmptyDisallowed(t *testing.T) {
	t.Parallel()
	if _, err := value.Decode([]byte{}, false, coltype.Type{Kind: coltype.Varint}); err == nil {
		t.Fatal("expected error for zero-length varint")
	}
}

func TestDecodeDecimal(t *testing.T) {
	t.Parallel()
	// scale=2, unscaled=12345 -> 123.45
	data := []byte{0x00, 0x00, 0x00, 0x02, 0x30, 0x39}
	v, err := value.Decode(data, false, coltype.Type{Kind: coltype.Decimal})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Dec.String() != "123.45" {
		t.Errorf("Dec = %s, want 123.45", v.Dec.String())
	}
}

func TestDecodeDecimalScaleZero(t *testing.T) {
	t.Parallel()
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x2A}
	v, err := value.Decode(data, false, coltype.Type{Kind: coltype.Decimal})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Dec.String() != "42" {
		t.Errorf("Dec = %s, want 42", v.Dec.String())
	}
}

func TestDecodeTimestamp(t *testing.T) {
	t.Parallel()
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	millis := want.UnixMilli()
	data := make([]byte, 8)
	data[0] = byte(millis >> 56)
	data[1] = byte(millis >> 48)
	data[2] = byte(millis >> 40)
	data[3] = byte(millis >> 32)
	data[4] = byte(millis >> 24)
	data[5] = byte(millis >> 16)
	data[6] = byte(millis >> 8)
	data[7] = byte(millis)
	v, err := value.Decode(data, false, coltype.Type{Kind: coltype.Timestamp})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !v.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", v.Time, want)
	}
}

func TestDecodeUUID(t *testing.T) {
	t.Parallel()
	data := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	}
	v, err := value.Decode(data, false, coltype.Type{Kind: coltype.UUID})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.UUID.String() != "01020304-0506-0708-090a-0b0c0d0e0f10" {
		t.Errorf("UUID = %s", v.UUID.String())
	}
}

func TestDecodeInet(t *testing.T) {
	t.Parallel()
	v, err := value.Decode([]byte{192, 168, 1, 1}, false, coltype.Type{Kind: coltype.Inet})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !v.IP.Equal(net.IPv4(192, 168, 1, 1)) {
		t.Errorf("IP = %v, want 192.168.1.1", v.IP)
	}
}

func TestDecodeListOfInt(t *testing.T) {
	t.Parallel()
	// count=2, elements [4-byte 1], [4-byte 2]
	data := []byte{
		0x00, 0x02,
		0x00, 0x04, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x04, 0x00, 0x00, 0x00, 0x02,
	}
	v, err := value.Decode(data, false, coltype.Type{Kind: coltype.List, Elem: &coltype.Type{Kind: coltype.Int}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(v.Items) != 2 || v.Items[0].I32 != 1 || v.Items[1].I32 != 2 {
		t.Errorf("Items = %+v", v.Items)
	}
}

func TestDecodeListWithNullElement(t *testing.T) {
	t.Parallel()
	data := []byte{
		0x00, 0x01,
		0xff, 0xff, // -1 length -> null element
	}
	v, err := value.Decode(data, false, coltype.Type{Kind: coltype.List, Elem: &coltype.Type{Kind: coltype.Int}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(v.Items) != 1 || v.Items[0].Kind != value.Null {
		t.Errorf("Items = %+v, want one null element", v.Items)
	}
}

func TestDecodeNestedMapOfVarcharToListOfInt(t *testing.T) {
	t.Parallel()
	// {"xs" -> [1,2], "ys" -> []}
	intElem := func(n int32) []byte {
		return []byte{0x00, 0x04, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
	listVal := func(elems ...[]byte) []byte {
		out := []byte{0x00, byte(len(elems))}
		for _, e := range elems {
			out = append(out, e...)
		}
		return out
	}
	strElem := func(s string) []byte {
		out := []byte{0x00, byte(len(s))}
		return append(out, s...)
	}

	xsList := listVal(intElem(1), intElem(2))
	ysList := listVal()

	data := []byte{0x00, 0x02} // 2 entries
	data = append(data, strElem("xs")...)
	data = append(data, byte(len(xsList)>>8), byte(len(xsList)))
	data = append(data, xsList...)
	data = append(data, strElem("ys")...)
	data = append(data, byte(len(ysList)>>8), byte(len(ysList)))
	data = append(data, ysList...)

	mt := coltype.Type{
		Kind: coltype.Map,
		Elem: &coltype.Type{Kind: coltype.Varchar},
		Value: &coltype.Type{
			Kind: coltype.List,
			Elem: &coltype.Type{Kind: coltype.Int},
		},
	}

	v, err := value.Decode(data, false, mt)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(v.Entries) != 2 {
		t.Fatalf("Entries = %+v, want 2 entries", v.Entries)
	}
	got := map[string][]int32{}
	for _, e := range v.Entries {
		ints := make([]int32, len(e.Val.Items))
		for i, it := range e.Val.Items {
			ints[i] = it.I32
		}
		got[e.Key.Str] = ints
	}
	if len(got["xs"]) != 2 || got["xs"][0] != 1 || got["xs"][1] != 2 {
		t.Errorf(`got["xs"] = %v, want [1 2]`, got["xs"])
	}
	if len(got["ys"]) != 0 {
		t.Errorf(`got["ys"] = %v, want []`, got["ys"])
	}
}

func TestDecodeMapDuplicateKeyOverwrites(t *testing.T) {
	t.Parallel()
	strElem := func(s string) []byte {
		return append([]byte{0x00, byte(len(s))}, s...)
	}
	intElem := func(n int32) []byte {
		return []byte{0x00, 0x04, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
	data := []byte{0x00, 0x02}
	data = append(data, strElem("k")...)
	data = append(data, intElem(1)...)
	data = append(data, strElem("k")...)
	data = append(data, intElem(2)...)

	mt := coltype.Type{Kind: coltype.Map, Elem: &coltype.Type{Kind: coltype.Varchar}, Value: &coltype.Type{Kind: coltype.Int}}
	v, err := value.Decode(data, false, mt)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(v.Entries) != 1 || v.Entries[0].Val.I32 != 2 {
		t.Errorf("Entries = %+v, want single entry with value 2", v.Entries)
	}
}
