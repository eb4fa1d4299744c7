package web_test

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mickamy/cql-decode/broker"
	"github.com/mickamy/cql-decode/cql/body"
	"github.com/mickamy/cql-decode/tap"
	"github.com/mickamy/cql-decode/web"
)

func TestHandleSSEStreamsPublishedEvents(t *testing.T) {
	t.Parallel()
	b := broker.New(4)
	srv := web.New(b)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", resp.Header.Get("Content-Type"))
	}

	// Give the SSE handler time to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	b.Publish(tap.Event{
		ID:       "1",
		Opcode:   body.OpcodeReady,
		Body:     body.Body{Kind: body.KindReady},
	})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read SSE line: %v", err)
	}
	if !strings.HasPrefix(line, "data: ") {
		t.Fatalf("line = %q, want data: prefix", line)
	}
	if !strings.Contains(line, `"id":"1"`) || !strings.Contains(line, `"kind":"Ready"`) {
		t.Errorf("unexpected payload: %s", line)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	b := broker.New(4)
	srv := web.New(b)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
