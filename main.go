// Command cql-decode reads a raw CQL response-frame byte stream from a
// file (or stdin) and prints one JSON object per decoded frame. It
// exercises the decode pipeline directly, with no live socket involved.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mickamy/cql-decode/cql/body"
	"github.com/mickamy/cql-decode/cql/buffer"
	"github.com/mickamy/cql-decode/cql/frame"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("cql-decode", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "cql-decode — decode a raw CQL response-frame stream\n\nUsage:\n  cql-decode [flags] [file]\n\nIf file is omitted, reads from stdin.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	chunkSize := fs.Int("chunk-size", 4096, "bytes read per iteration (frames may span reads)")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("cql-decode %s\n", version)
		return
	}

	var r io.Reader = os.Stdin
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			logErr(err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	if err := decodeStream(os.Stdout, r, *chunkSize); err != nil {
		logErr(err)
		os.Exit(1)
	}
}

func decodeStream(w io.Writer, r io.Reader, chunkSize int) error {
	enc := json.NewEncoder(w)
	br := bufio.NewReader(r)
	buf := make([]byte, chunkSize)

	fbuf := buffer.New(nil)
	f := frame.New(fbuf)
	// pending is the number of unread octets f could have consumed: what the
	// buffer held when f was created plus everything appended since.
	pending := 0

	for {
		n, readErr := br.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return fmt.Errorf("cql-decode: assemble frame: %w", err)
			}
			pending += n
			for f.Complete() {
				if err := enc.Encode(frameToJSON(f)); err != nil {
					return fmt.Errorf("cql-decode: encode: %w", err)
				}
				if fbuf.Len() == pending {
					// No header bytes were consumed: the stream is malformed
					// at a point the frame assembler cannot recover from.
					return fmt.Errorf("cql-decode: desynced response stream")
				}
				pending = fbuf.Len()
				f = frame.New(fbuf)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("cql-decode: read: %w", readErr)
		}
	}
}

type frameJSON struct {
	StreamID int8   `json:"stream_id"`
	Opcode   string `json:"opcode"`
	Kind     string `json:"kind,omitempty"`
	Error    string `json:"error,omitempty"`
}

func frameToJSON(f *frame.Frame) frameJSON {
	out := frameJSON{StreamID: f.StreamID(), Opcode: f.Header().Opcode.String()}
	b, err := f.Body()
	if err != nil {
		out.Error = err.Error()
		return out
	}
	switch b.Kind {
	case body.KindError:
		out.Kind = "Error"
	case body.KindReady:
		out.Kind = "Ready"
	case body.KindSupported:
		out.Kind = "Supported"
	case body.KindResult:
		out.Kind = "Result:" + b.Result.Kind.String()
	case body.KindEvent:
		out.Kind = "Event:" + b.Event.Kind.String()
	}
	return out
}

func logErr(err error) {
	fmt.Fprintln(os.Stderr, "cql-decode:", err)
}
