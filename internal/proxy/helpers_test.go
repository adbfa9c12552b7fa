package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/die-net/socksrelay/internal/flowlog"
	"github.com/die-net/socksrelay/internal/traffic"
)

const testTimeout = 3 * time.Second

// recorder is a flowlog.Sink that hands records to the test.
type recorder struct {
	ch chan flowlog.Record
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan flowlog.Record, 64)}
}

func (r *recorder) Record(rec flowlog.Record) {
	r.ch <- rec
}

func (r *recorder) next(t *testing.T) flowlog.Record {
	t.Helper()
	select {
	case rec := <-r.ch:
		return rec
	case <-time.After(testTimeout):
		t.Fatal("no flow record")
		return flowlog.Record{}
	}
}

func (r *recorder) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case rec := <-r.ch:
		t.Fatalf("unexpected flow record %+v", rec)
	case <-time.After(wait):
	}
}

type countingObserver struct {
	opened, closed       atomic.Int64
	authOK, authFail     atomic.Int64
	connectOK, connectNG atomic.Int64
}

func (o *countingObserver) SessionOpened(string, net.Addr) { o.opened.Add(1) }
func (o *countingObserver) SessionClosed(string, traffic.Snapshot) { o.closed.Add(1) }

func (o *countingObserver) AuthChecked(ok bool) {
	if ok {
		o.authOK.Add(1)
	} else {
		o.authFail.Add(1)
	}
}

func (o *countingObserver) Connected(ok bool) {
	if ok {
		o.connectOK.Add(1)
	} else {
		o.connectNG.Add(1)
	}
}

// syncBuffer is a goroutine-safe log destination.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startServer runs a Server on a loopback port for the duration of the test.
func startServer(t *testing.T, cfg Config) (string, *Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", ListenConfig{})
	if err != nil {
		cancel()
		t.Fatal(err)
	}

	if !cfg.Debug {
		cfg.Log = zerolog.Nop()
	}

	srv := NewServer(ctx, cfg)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ln)
	}()

	t.Cleanup(func() {
		cancel()
		_ = ln.Close()
		<-done
		srv.Wait()
	})
	return ln.Addr().String(), srv
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	c, err := net.DialTimeout("tcp", addr, testTimeout)
	if err != nil {
		t.Fatal(err)
	}
	_ = c.SetDeadline(time.Now().Add(testTimeout))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func write(t *testing.T, c net.Conn, b ...byte) {
	t.Helper()
	if _, err := c.Write(b); err != nil {
		t.Fatal(err)
	}
}

func expect(t *testing.T, c net.Conn, want ...byte) {
	t.Helper()
	got := make([]byte, len(want))
	if _, err := io.ReadFull(c, got); err != nil {
		t.Fatalf("reading % x: %v", want, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}
}

// expectClosed asserts the server closed the connection without sending
// anything more.
func expectClosed(t *testing.T, c net.Conn) {
	t.Helper()
	var b [1]byte
	n, err := c.Read(b[:])
	if n != 0 {
		t.Fatalf("unexpected byte 0x%02x before close", b[0])
	}
	if err == nil {
		t.Fatal("connection still open")
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatal("connection not closed before deadline")
	}
}

// connectRequest encodes a CONNECT (or other cmd) for an IPv4 host:port.
func connectRequest(t *testing.T, cmd byte, addr string) []byte {
	t.Helper()
	ta, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	ip := ta.IP.To4()
	return []byte{0x05, cmd, 0x00, 0x01, ip[0], ip[1], ip[2], ip[3], byte(ta.Port >> 8), byte(ta.Port)}
}

func userPassRequest(user, pass string) []byte {
	b := []byte{0x01, byte(len(user))}
	b = append(b, user...)
	b = append(b, byte(len(pass)))
	return append(b, pass...)
}

var (
	successReply = []byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0}
	failureReply = []byte{0x05, 0x01, 0x00, 0x01, 0, 0, 0, 0, 0, 0}
)

func isReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET)
}
