package body

import (
	"errors"
	"fmt"

	"github.com/mickamy/cql-decode/cql/buffer"
)

// ErrUnsupportedEventType is returned for an event type tag the decoder
// does not recognize.
var ErrUnsupportedEventType = errors.New("body: unsupported event type")

// EventKind discriminates the EventBody sum type (§3, §4.7).
type EventKind int

const (
	EventSchemaChange EventKind = iota
	EventStatusChange
	EventTopologyChange
)

func (k EventKind) String() string {
	switch k {
	case EventSchemaChange:
		return "SchemaChange"
	case EventStatusChange:
		return "StatusChange"
	case EventTopologyChange:
		return "TopologyChange"
	}
	return "Unknown"
}

const (
	wireEventSchemaChange   = "SCHEMA_CHANGE"
	wireEventStatusChange   = "STATUS_CHANGE"
	wireEventTopologyChange = "TOPOLOGY_CHANGE"
)

// Event is a decoded asynchronous cluster event. Exactly the fields for
// Kind are meaningful. StatusChange and TopologyChange share the same
// wire shape (change string + inet) and are distinguished only by Kind.
type Event struct {
	Kind EventKind

	// SchemaChange
	Change   string
	Keyspace string
	Table    string

	// StatusChange, TopologyChange
	Address []byte
	Port    int32
}

// DecodeEvent reads the event type tag and dispatches (§4.7).
func DecodeEvent(b *buffer.Buffer) (Event, error) {
	tag, err := b.ReadString()
	if err != nil {
		return Event{}, fmt.Errorf("body: event type: %w", err)
	}
	switch tag {
	case wireEventSchemaChange:
		change, ks, table, err := decodeSchemaChangeFields(b)
		if err != nil {
			return Event{}, fmt.Errorf("body: schema_change event: %w", err)
		}
		return Event{Kind: EventSchemaChange, Change: change, Keyspace: ks, Table: table}, nil
	case wireEventStatusChange:
		change, addr, port, err := decodeStatusFields(b)
		if err != nil {
			return Event{}, fmt.Errorf("body: status_change event: %w", err)
		}
		return Event{Kind: EventStatusChange, Change: change, Address: addr, Port: port}, nil
	case wireEventTopologyChange:
		change, addr, port, err := decodeStatusFields(b)
		if err != nil {
			return Event{}, fmt.Errorf("body: topology_change event: %w", err)
		}
		return Event{Kind: EventTopologyChange, Change: change, Address: addr, Port: port}, nil
	}
	return Event{}, fmt.Errorf("body: event type %q: %w", tag, ErrUnsupportedEventType)
}

func decodeStatusFields(b *buffer.Buffer) (change string, addr []byte, port int32, err error) {
	change, err = b.ReadString()
	if err != nil {
		return "", nil, 0, fmt.Errorf("change: %w", err)
	}
	addr, port, err = b.ReadInet()
	if err != nil {
		return "", nil, 0, fmt.Errorf("inet: %w", err)
	}
	return change, addr, port, nil
}
