package traffic

import (
	"sync"
	"time"
)

// Unauthenticated is the username recorded for sessions that never
// authenticated.
const Unauthenticated = "unauthenticated"

// Unauthorized is the username recorded for sessions that failed
// username/password authentication.
const Unauthorized = "unauthorized"

// Counter is a per-session traffic accumulator.
//
// The relay's two pipes update it from separate goroutines, so all methods are
// safe for concurrent use.
type Counter struct {
	mu       sync.Mutex
	username string
	begin    time.Time
	end      time.Time
	read     int64
	written  int64
	final    bool
}

// NewCounter returns a Counter whose session started now.
func NewCounter() *Counter {
	return &Counter{username: Unauthenticated, begin: time.Now()}
}

// AddRead records n bytes received from the client. Negative values and
// updates after Finalize are ignored.
func (c *Counter) AddRead(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	if !c.final {
		c.read += int64(n)
	}
	c.mu.Unlock()
}

// AddWritten records n bytes sent to the client. Negative values and updates
// after Finalize are ignored.
func (c *Counter) AddWritten(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	if !c.final {
		c.written += int64(n)
	}
	c.mu.Unlock()
}

// SetUsername tags the counter with the session's user.
func (c *Counter) SetUsername(username string) {
	c.mu.Lock()
	if !c.final {
		c.username = username
	}
	c.mu.Unlock()
}

// Finalize stamps the end time and freezes the counter. It returns the final
// snapshot; calling it again returns the same snapshot without restamping.
func (c *Counter) Finalize() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.final {
		c.final = true
		c.end = time.Now()
	}
	return c.snapshotLocked()
}

// Finalized reports whether Finalize has been called.
func (c *Counter) Finalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.final
}

// Snapshot returns the current values. End is zero until the counter is
// finalized.
func (c *Counter) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Counter) snapshotLocked() Snapshot {
	return Snapshot{
		Username: c.username,
		Begin:    c.begin,
		End:      c.end,
		Read:     c.read,
		Written:  c.written,
	}
}

// Snapshot is an immutable copy of a Counter's state.
type Snapshot struct {
	Username string
	Begin    time.Time
	End      time.Time
	Read     int64
	Written  int64
}

// Total returns Read+Written.
func (s Snapshot) Total() int64 {
	return s.Read + s.Written
}

// Duration returns the session length, or zero if the session is still open.
func (s Snapshot) Duration() time.Duration {
	if s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Begin)
}
