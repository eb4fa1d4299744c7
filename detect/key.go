package detect

import (
	"fmt"

	"github.com/mickamy/cql-decode/cql/body"
	"github.com/mickamy/cql-decode/tap"
)

// EventKey derives the burst-detection key for ev: its opcode, plus the
// result kind when the body is a Result frame. Error frames are keyed by
// error code so that, e.g., five consecutive "unavailable" errors on one
// connection are distinguished from five "read timeout" errors.
func EventKey(ev tap.Event) string {
	if ev.Err != nil {
		return fmt.Sprintf("%s:decode-error", ev.Opcode)
	}

	switch ev.Body.Kind {
	case body.KindError:
		return fmt.Sprintf("%s:%#04x", ev.Opcode, ev.Body.Error.Code)
	case body.KindResult:
		return fmt.Sprintf("%s:%s", ev.Opcode, ev.Body.Result.Kind)
	default:
		return ev.Opcode.String()
	}
}
