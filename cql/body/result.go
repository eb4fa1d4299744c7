package body

import (
	"errors"
	"fmt"

	"github.com/mickamy/cql-decode/cql/buffer"
	"github.com/mickamy/cql-decode/cql/coltype"
	"github.com/mickamy/cql-decode/cql/value"
)

// ErrUnsupportedResultKind is returned when a Result body carries an
// unknown kind discriminant.
var ErrUnsupportedResultKind = errors.New("body: unsupported result kind")

// ResultKind discriminates the ResultBody sum type (§4.3).
type ResultKind int

const (
	ResultVoid ResultKind = iota
	ResultRows
	ResultSetKeyspace
	ResultPrepared
	ResultSchemaChange
)

func (k ResultKind) String() string {
	switch k {
	case ResultVoid:
		return "Void"
	case ResultRows:
		return "Rows"
	case ResultSetKeyspace:
		return "SetKeyspace"
	case ResultPrepared:
		return "Prepared"
	case ResultSchemaChange:
		return "SchemaChange"
	}
	return "Unknown"
}

const (
	wireResultVoid         int32 = 0x01
	wireResultRows         int32 = 0x02
	wireResultSetKeyspace  int32 = 0x03
	wireResultPrepared     int32 = 0x04
	wireResultSchemaChange int32 = 0x05

	globalTableSpecFlag int32 = 0x01
)

// ColumnSpec describes one column of a result set's row shape (§3).
type ColumnSpec struct {
	Keyspace string
	Table    string
	Column   string
	Type     coltype.Type
}

// Row is one decoded result row: column name to decoded value.
type Row map[string]value.Value

// Result is a decoded RESULT body. Exactly the fields for Kind are
// meaningful.
type Result struct {
	Kind ResultKind

	// Rows
	Metadata []ColumnSpec
	Rows     []Row

	// SetKeyspace
	Keyspace string

	// Prepared
	PreparedID       []byte
	PreparedMetadata []ColumnSpec

	// SchemaChange
	SchemaChangeType string
	SchemaKeyspace   string
	SchemaTable      string
}

// DecodeResult reads the kind discriminant and dispatches to the matching
// result-body decoder (§4.3).
func DecodeResult(b *buffer.Buffer) (Result, error) {
	kind, err := b.ReadInt()
	if err != nil {
		return Result{}, fmt.Errorf("body: result kind: %w", err)
	}
	switch kind {
	case wireResultVoid:
		return Result{Kind: ResultVoid}, nil
	case wireResultRows:
		return decodeRows(b)
	case wireResultSetKeyspace:
		ks, err := b.ReadString()
		if err != nil {
			return Result{}, fmt.Errorf("body: set_keyspace: %w", err)
		}
		return Result{Kind: ResultSetKeyspace, Keyspace: ks}, nil
	case wireResultPrepared:
		return decodePrepared(b)
	case wireResultSchemaChange:
		change, ks, table, err := decodeSchemaChangeFields(b)
		if err != nil {
			return Result{}, fmt.Errorf("body: schema_change result: %w", err)
		}
		return Result{Kind: ResultSchemaChange, SchemaChangeType: change, SchemaKeyspace: ks, SchemaTable: table}, nil
	}
	return Result{}, fmt.Errorf("body: result kind %#x: %w", kind, ErrUnsupportedResultKind)
}

func decodeSchemaChangeFields(b *buffer.Buffer) (change, keyspace, table string, err error) {
	change, err = b.ReadString()
	if err != nil {
		return "", "", "", fmt.Errorf("change: %w", err)
	}
	keyspace, err = b.ReadString()
	if err != nil {
		return "", "", "", fmt.Errorf("keyspace: %w", err)
	}
	table, err = b.ReadString()
	if err != nil {
		return "", "", "", fmt.Errorf("table: %w", err)
	}
	return change, keyspace, table, nil
}

func decodePrepared(b *buffer.Buffer) (Result, error) {
	id, err := b.ReadShortBytes()
	if err != nil {
		return Result{}, fmt.Errorf("body: prepared id: %w", err)
	}
	meta, _, err := decodeMetadata(b)
	if err != nil {
		return Result{}, fmt.Errorf("body: prepared metadata: %w", err)
	}
	return Result{Kind: ResultPrepared, PreparedID: id, PreparedMetadata: meta}, nil
}

func decodeRows(b *buffer.Buffer) (Result, error) {
	meta, _, err := decodeMetadata(b)
	if err != nil {
		return Result{}, fmt.Errorf("body: rows metadata: %w", err)
	}
	rowsCount, err := b.ReadInt()
	if err != nil {
		return Result{}, fmt.Errorf("body: rows count: %w", err)
	}
	rows := make([]Row, 0, rowsCount)
	for i := int32(0); i < rowsCount; i++ {
		row := make(Row, len(meta))
		for _, col := range meta {
			data, isNull, err := b.ReadBytes()
			if err != nil {
				return Result{}, fmt.Errorf("body: row %d column %q: %w", i, col.Column, err)
			}
			v, err := value.Decode(data, isNull, col.Type)
			if err != nil {
				return Result{}, fmt.Errorf("body: row %d column %q value: %w", i, col.Column, err)
			}
			row[col.Column] = v
		}
		rows = append(rows, row)
	}
	return Result{Kind: ResultRows, Metadata: meta, Rows: rows}, nil
}

// decodeMetadata reads the shared Rows/Prepared metadata block: flags,
// column count, an optional global table spec, then one spec per column
// (§4.4). It returns the flags alongside the specs for callers that care.
func decodeMetadata(b *buffer.Buffer) ([]ColumnSpec, int32, error) {
	flags, err := b.ReadInt()
	if err != nil {
		return nil, 0, fmt.Errorf("flags: %w", err)
	}
	count, err := b.ReadInt()
	if err != nil {
		return nil, 0, fmt.Errorf("columns_count: %w", err)
	}

	var globalKeyspace, globalTable string
	hasGlobalSpec := flags&globalTableSpecFlag != 0
	if hasGlobalSpec {
		globalKeyspace, err = b.ReadString()
		if err != nil {
			return nil, 0, fmt.Errorf("global keyspace: %w", err)
		}
		globalTable, err = b.ReadString()
		if err != nil {
			return nil, 0, fmt.Errorf("global table: %w", err)
		}
	}

	specs := make([]ColumnSpec, 0, count)
	for i := int32(0); i < count; i++ {
		spec := ColumnSpec{Keyspace: globalKeyspace, Table: globalTable}
		if !hasGlobalSpec {
			spec.Keyspace, err = b.ReadString()
			if err != nil {
				return nil, 0, fmt.Errorf("column %d keyspace: %w", i, err)
			}
			spec.Table, err = b.ReadString()
			if err != nil {
				return nil, 0, fmt.Errorf("column %d table: %w", i, err)
			}
		}
		spec.Column, err = b.ReadString()
		if err != nil {
			return nil, 0, fmt.Errorf("column %d name: %w", i, err)
		}
		spec.Type, err = coltype.Read(b)
		if err != nil {
			return nil, 0, fmt.Errorf("column %d type: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return specs, flags, nil
}
