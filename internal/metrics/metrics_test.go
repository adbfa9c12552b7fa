package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/die-net/socksrelay/internal/traffic"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SessionOpened("a", nil)
	m.SessionOpened("b", nil)
	m.AuthChecked(true)
	m.AuthChecked(false)
	m.Connected(true)

	begin := time.Now()
	m.SessionClosed("a", traffic.Snapshot{Begin: begin, End: begin.Add(time.Second), Read: 10, Written: 32})

	if got := testutil.ToFloat64(m.sessions); got != 2 {
		t.Errorf("sessions_total = %v want 2", got)
	}
	if got := testutil.ToFloat64(m.active); got != 1 {
		t.Errorf("active_sessions = %v want 1", got)
	}
	if got := testutil.ToFloat64(m.bytes.WithLabelValues("read")); got != 10 {
		t.Errorf("bytes read = %v want 10", got)
	}
	if got := testutil.ToFloat64(m.bytes.WithLabelValues("written")); got != 32 {
		t.Errorf("bytes written = %v want 32", got)
	}
	if got := testutil.ToFloat64(m.auth.WithLabelValues("failure")); got != 1 {
		t.Errorf("auth failures = %v want 1", got)
	}
	if got := testutil.ToFloat64(m.connects.WithLabelValues("success")); got != 1 {
		t.Errorf("connect successes = %v want 1", got)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SessionOpened("a", nil)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "socksrelay_active_sessions 1") {
		t.Fatalf("active gauge missing from scrape:\n%s", body)
	}
}
