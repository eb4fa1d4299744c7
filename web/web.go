// Package web serves decoded response events over Server-Sent Events.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mickamy/cql-decode/broker"
	"github.com/mickamy/cql-decode/cql/body"
	"github.com/mickamy/cql-decode/tap"
)

// Server serves the decoded event stream over HTTP.
type Server struct {
	httpServer *http.Server
	broker     *broker.Broker
}

// New creates a new web Server backed by the given Broker.
func New(b *broker.Broker) *Server {
	s := &Server{broker: b}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", s.handleSSE)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

type eventJSON struct {
	ID         string `json:"id"`
	StreamID   int8   `json:"stream_id"`
	Opcode     string `json:"opcode"`
	Kind       string `json:"kind,omitempty"`
	ReceivedAt string `json:"received_at"`
	RawLength  int    `json:"raw_length"`
	Burst      bool   `json:"burst,omitempty"`

	Error        *errorJSON `json:"error,omitempty"`
	ResultKind   string     `json:"result_kind,omitempty"`
	RowCount     int        `json:"row_count,omitempty"`
	Keyspace     string     `json:"keyspace,omitempty"`
	EventKind    string     `json:"event_kind,omitempty"`
	DecodeFailed string     `json:"decode_failed,omitempty"`
}

type errorJSON struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

func eventToJSON(ev tap.Event) eventJSON {
	out := eventJSON{
		ID:         ev.ID,
		StreamID:   ev.StreamID,
		Opcode:     ev.Opcode.String(),
		ReceivedAt: ev.ReceivedAt.Format(time.RFC3339Nano),
		RawLength:  ev.RawLength,
		Burst:      ev.Burst,
	}

	if ev.Err != nil {
		out.DecodeFailed = ev.Err.Error()
		return out
	}

	switch ev.Body.Kind {
	case body.KindError:
		out.Kind = "Error"
		out.Error = &errorJSON{Code: ev.Body.Error.Code, Message: ev.Body.Error.Message}
	case body.KindReady:
		out.Kind = "Ready"
	case body.KindSupported:
		out.Kind = "Supported"
	case body.KindResult:
		out.Kind = "Result"
		out.ResultKind = ev.Body.Result.Kind.String()
		if ev.Body.Result.Kind == body.ResultRows {
			out.RowCount = len(ev.Body.Result.Rows)
		}
		if ev.Body.Result.Kind == body.ResultSetKeyspace {
			out.Keyspace = ev.Body.Result.Keyspace
		}
	case body.KindEvent:
		out.Kind = "Event"
		out.EventKind = ev.Body.Event.Kind.String()
	}
	return out
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush() // send headers immediately

	ch, unsub := s.broker.Subscribe()
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(eventToJSON(ev))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
