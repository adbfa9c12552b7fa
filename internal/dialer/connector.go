package dialer

import (
	"context"
	"net"
)

// Outcome is the result of one asynchronous connect.
type Outcome struct {
	Conn net.Conn
	Err  error
}

// Connector runs connects off the caller's goroutine.
type Connector struct {
	dialer Dialer
}

func NewConnector(d Dialer) *Connector {
	return &Connector{dialer: d}
}

// Connect starts a TCP connect to address and returns a channel that receives
// exactly one Outcome. A connection that completes after ctx is done is closed
// and reported as ctx's error.
func (c *Connector) Connect(ctx context.Context, address string) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		conn, err := c.dialer.DialContext(ctx, "tcp", address)
		if err == nil && ctx.Err() != nil {
			_ = conn.Close()
			conn, err = nil, ctx.Err()
		}
		ch <- Outcome{Conn: conn, Err: err}
	}()
	return ch
}

// Discard closes the connection of an Outcome nobody will consume, once it
// arrives.
func Discard(ch <-chan Outcome) {
	go func() {
		if o := <-ch; o.Conn != nil {
			_ = o.Conn.Close()
		}
	}()
}
