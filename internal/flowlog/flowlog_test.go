package flowlog

import (
	"bytes"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testRecord() Record {
	begin := time.UnixMilli(1_700_000_000_000)
	return Record{
		Session:    "s1",
		Username:   "alice",
		Begin:      begin,
		End:        begin.Add(1500 * time.Millisecond),
		LocalAddr:  &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 11080},
		RemoteAddr: &net.TCPAddr{IP: net.IPv4(192, 0, 2, 7), Port: 50000},
		Read:       12,
		Written:    30,
	}
}

func TestRecordLine(t *testing.T) {
	want := "alice,1700000000000,1700000001500,10.0.0.1:11080,192.0.2.7:50000,12,30,42"
	if got := testRecord().Line(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	r := testRecord()
	r.RemoteAddr = nil
	if got := r.Line(); got != "alice,1700000000000,1700000001500,10.0.0.1:11080,-,12,30,42" {
		t.Fatalf("nil address rendered as %q", got)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	NewLogSink(zerolog.New(&buf)).Record(testRecord())

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}

	want := map[string]any{
		"level":   "info",
		"message": "flow",
		"user":    "alice",
		"local":   "10.0.0.1:11080",
		"remote":  "192.0.2.7:50000",
		"read":    float64(12),
		"written": float64(30),
		"total":   float64(42),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %v want %v", k, got[k], v)
		}
	}
}

func TestSinkFunc(t *testing.T) {
	var got []Record
	var s Sink = SinkFunc(func(r Record) { got = append(got, r) })
	s.Record(testRecord())
	if len(got) != 1 || got[0].Total() != 42 {
		t.Fatalf("got %+v", got)
	}
}
