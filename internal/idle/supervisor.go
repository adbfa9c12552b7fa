package idle

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds idle thresholds. A zero duration disables that check.
type Config struct {
	ReaderIdle time.Duration
	WriterIdle time.Duration
	AllIdle    time.Duration
}

// Enabled reports whether any threshold is set.
func (c Config) Enabled() bool {
	return c.ReaderIdle > 0 || c.WriterIdle > 0 || c.AllIdle > 0
}

// Kind identifies which threshold expired.
type Kind int

const (
	ReaderIdle Kind = iota + 1
	WriterIdle
	AllIdle
)

func (k Kind) String() string {
	switch k {
	case ReaderIdle:
		return "reader idle"
	case WriterIdle:
		return "writer idle"
	case AllIdle:
		return "all idle"
	default:
		return "unknown idle"
	}
}

// Supervisor tracks activity on one connection.
type Supervisor struct {
	cfg    Config
	onIdle func(Kind)

	lastRead  atomic.Int64
	lastWrite atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New returns a Supervisor that calls onIdle at most once. Activity clocks
// start now.
func New(cfg Config, onIdle func(Kind)) *Supervisor {
	s := &Supervisor{
		cfg:    cfg,
		onIdle: onIdle,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	now := time.Now().UnixNano()
	s.lastRead.Store(now)
	s.lastWrite.Store(now)
	return s
}

// Start begins watching. It is a no-op if no threshold is configured or if
// called more than once.
func (s *Supervisor) Start() {
	s.startOnce.Do(func() {
		if !s.cfg.Enabled() {
			close(s.done)
			return
		}
		go s.run()
	})
}

// Stop ends supervision without invoking the callback. It is safe to call
// multiple times and from the callback itself.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Done is closed when the watcher goroutine has exited.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// MarkRead records a successful read.
func (s *Supervisor) MarkRead() {
	s.lastRead.Store(time.Now().UnixNano())
}

// MarkWrite records a successful write.
func (s *Supervisor) MarkWrite() {
	s.lastWrite.Store(time.Now().UnixNano())
}

// Wrap returns a net.Conn whose non-empty reads and writes mark activity.
func (s *Supervisor) Wrap(c net.Conn) net.Conn {
	return &conn{Conn: c, s: s}
}

func (s *Supervisor) run() {
	defer close(s.done)

	t := time.NewTimer(s.untilNext(time.Now()))
	defer t.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-t.C:
			if k, ok := s.expired(now); ok {
				s.onIdle(k)
				return
			}
			t.Reset(s.untilNext(now))
		}
	}
}

func (s *Supervisor) expired(now time.Time) (Kind, bool) {
	read := time.Unix(0, s.lastRead.Load())
	write := time.Unix(0, s.lastWrite.Load())

	if s.cfg.ReaderIdle > 0 && now.Sub(read) >= s.cfg.ReaderIdle {
		return ReaderIdle, true
	}
	if s.cfg.WriterIdle > 0 && now.Sub(write) >= s.cfg.WriterIdle {
		return WriterIdle, true
	}
	if s.cfg.AllIdle > 0 && now.Sub(latest(read, write)) >= s.cfg.AllIdle {
		return AllIdle, true
	}
	return 0, false
}

// untilNext returns the wait until the earliest threshold could expire.
func (s *Supervisor) untilNext(now time.Time) time.Duration {
	read := time.Unix(0, s.lastRead.Load())
	write := time.Unix(0, s.lastWrite.Load())

	next := time.Duration(-1)
	consider := func(last time.Time, threshold time.Duration) {
		if threshold <= 0 {
			return
		}
		d := last.Add(threshold).Sub(now)
		if next < 0 || d < next {
			next = d
		}
	}
	consider(read, s.cfg.ReaderIdle)
	consider(write, s.cfg.WriterIdle)
	consider(latest(read, write), s.cfg.AllIdle)

	if next < time.Millisecond {
		next = time.Millisecond
	}
	return next
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

type conn struct {
	net.Conn
	s *Supervisor
}

func (c *conn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.s.MarkRead()
	}
	return n, err
}

func (c *conn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if n > 0 {
		c.s.MarkWrite()
	}
	return n, err
}
