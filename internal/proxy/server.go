package proxy

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/die-net/socksrelay/internal/dialer"
)

// Server accepts SOCKS5 clients and runs a Session for each.
type Server struct {
	ctx       context.Context
	cfg       Config
	connector *dialer.Connector

	active atomic.Int64
	wg     sync.WaitGroup
}

// NewServer constructs a Server. Canceling ctx closes every open session.
func NewServer(ctx context.Context, cfg Config) *Server {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.withDefaults()
	return &Server{
		ctx:       ctx,
		cfg:       cfg,
		connector: dialer.NewConnector(cfg.Dialer),
	}
}

// Serve accepts connections on ln until ln is closed or the server's context
// ends. Other accept errors (such as running out of file descriptors) are
// logged and retried with backoff.
func (s *Server) Serve(ln net.Listener) error {
	var delay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			delay = acceptBackoff(delay)
			s.cfg.Log.Warn().Err(err).Dur("retry", delay).Msg("accept failed")
			select {
			case <-time.After(delay):
				continue
			case <-s.ctx.Done():
				return nil
			}
		}
		delay = 0

		s.wg.Go(func() {
			s.handle(c)
		})
	}
}

// ActiveSessions returns the number of sessions currently open.
func (s *Server) ActiveSessions() int64 {
	return s.active.Load()
}

// Wait blocks until every session started by Serve has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handle(c net.Conn) {
	s.active.Add(1)
	defer s.active.Add(-1)

	sess := newSession(s.ctx, &s.cfg, s.connector, c)
	sess.run()
	<-sess.Done()
}

func acceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	return min(2*prev, time.Second)
}
