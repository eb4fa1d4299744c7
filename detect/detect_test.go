package detect_test

import (
	"testing"
	"time"

	"github.com/mickamy/cql-decode/detect"
)

func TestBelowThreshold(t *testing.T) {
	t.Parallel()
	d := detect.New(5, time.Second, 10*time.Second)
	now := time.Now()
	k := "RESULT:Rows"

	for i := range 4 {
		r := d.Record(k, now.Add(time.Duration(i)*100*time.Millisecond))
		if r.Matched {
			t.Fatal("unexpected match before threshold")
		}
		if r.Alert != nil {
			t.Fatal("unexpected alert before threshold")
		}
	}
}

func TestAtThreshold(t *testing.T) {
	t.Parallel()
	d := detect.New(5, time.Second, 10*time.Second)
	now := time.Now()
	k := "RESULT:Rows"

	for i := range 4 {
		d.Record(k, now.Add(time.Duration(i)*100*time.Millisecond))
	}

	r := d.Record(k, now.Add(400*time.Millisecond))
	if !r.Matched {
		t.Fatal("expected matched at threshold")
	}
	if r.Alert == nil {
		t.Fatal("expected alert at threshold")
	}
	if r.Alert.Count != 5 {
		t.Fatalf("got count %d, want 5", r.Alert.Count)
	}
	if r.Alert.Key != k {
		t.Fatalf("got key %q, want %q", r.Alert.Key, k)
	}
}

func TestMatchedAfterThreshold(t *testing.T) {
	t.Parallel()
	d := detect.New(5, time.Second, 10*time.Second)
	now := time.Now()
	k := "RESULT:Rows"

	// Cross threshold.
	for i := range 5 {
		d.Record(k, now.Add(time.Duration(i)*100*time.Millisecond))
	}

	// Subsequent events within window should be matched but no alert (cooldown).
	for i := range 5 {
		r := d.Record(k, now.Add(time.Duration(500+i*100)*time.Millisecond))
		if !r.Matched {
			t.Fatalf("event %d: expected matched after threshold", i)
		}
		if r.Alert != nil {
			t.Fatalf("event %d: expected cooldown to suppress alert", i)
		}
	}
}

func TestWindowExpiry(t *testing.T) {
	t.Parallel()
	d := detect.New(5, time.Second, 10*time.Second)
	now := time.Now()
	k := "RESULT:Rows"

	// 3 occurrences in first batch.
	for i := range 3 {
		d.Record(k, now.Add(time.Duration(i)*100*time.Millisecond))
	}

	// 3 occurrences after window expires. Total 6, but only 3 in window.
	after := now.Add(2 * time.Second)
	for i := range 3 {
		r := d.Record(k, after.Add(time.Duration(i)*100*time.Millisecond))
		if r.Matched {
			t.Fatal("unexpected match: only 3 in window")
		}
	}
}

func TestCooldownExpiry(t *testing.T) {
	t.Parallel()
	d := detect.New(5, 2*time.Second, time.Second)
	now := time.Now()
	k := "RESULT:Rows"

	// Trigger first alert.
	for i := range 5 {
		d.Record(k, now.Add(time.Duration(i)*100*time.Millisecond))
	}

	// After cooldown expires, should alert again.
	after := now.Add(1500 * time.Millisecond)
	r := d.Record(k, after)
	if !r.Matched {
		t.Fatal("expected matched after cooldown expired")
	}
	if r.Alert == nil {
		t.Fatal("expected alert after cooldown expired")
	}
}

func TestDifferentKeys(t *testing.T) {
	t.Parallel()
	d := detect.New(3, time.Second, 10*time.Second)
	now := time.Now()
	k1 := "RESULT:Rows"
	k2 := "ERROR:0x1000"

	// Interleave: 2 of each, below threshold for both.
	d.Record(k1, now)
	d.Record(k2, now.Add(100*time.Millisecond))
	d.Record(k1, now.Add(200*time.Millisecond))
	d.Record(k2, now.Add(300*time.Millisecond))

	// k1 hits threshold.
	r := d.Record(k1, now.Add(400*time.Millisecond))
	if r.Alert == nil {
		t.Fatal("expected alert for k1")
	}
	if r.Alert.Key != k1 {
		t.Fatalf("got key %q, want %q", r.Alert.Key, k1)
	}

	// k2 also hits threshold (3 occurrences).
	r = d.Record(k2, now.Add(500*time.Millisecond))
	if r.Alert == nil {
		t.Fatal("expected alert for k2")
	}
	if r.Alert.Key != k2 {
		t.Fatalf("got key %q, want %q", r.Alert.Key, k2)
	}
}

func TestEmptyKey(t *testing.T) {
	t.Parallel()
	d := detect.New(1, time.Second, 10*time.Second)
	r := d.Record("", time.Now())
	if r.Matched {
		t.Fatal("expected no match for empty key")
	}
}
