package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/die-net/socksrelay/internal/dialer"
	"github.com/die-net/socksrelay/internal/flowlog"
	"github.com/die-net/socksrelay/internal/idle"
	"github.com/die-net/socksrelay/internal/socks5"
	"github.com/die-net/socksrelay/internal/traffic"
)

// flushLinger bounds how long a session waits for the client to hang up after
// a final failure response has been sent.
const flushLinger = 500 * time.Millisecond

// Session owns one client connection from accept to close.
type Session struct {
	id        string
	cfg       *Config
	connector *dialer.Connector
	log       zerolog.Logger

	client  net.Conn // raw client socket
	conn    net.Conn // client socket with idle tracking
	counter *traffic.Counter
	idle    *idle.Supervisor

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	method   byte
	username string
	dest     net.Conn
	linger   bool
	err      error

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(ctx context.Context, cfg *Config, connector *dialer.Connector, client net.Conn) *Session {
	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		connector: connector,
		client:    client,
		counter:   traffic.NewCounter(),
		username:  traffic.Unauthenticated,
		closed:    make(chan struct{}),
	}
	s.log = cfg.Log.With().
		Str("session", s.id).
		Stringer("client", client.RemoteAddr()).
		Logger()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.idle = idle.New(cfg.Idle, func(k idle.Kind) {
		s.closeWith(fmt.Errorf("%w: %s", ErrIdleTimeout, k))
	})
	s.conn = s.idle.Wrap(client)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current handshake state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Username returns the authenticated user, or traffic.Unauthenticated.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Err returns the cause of the session's close, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session has fully closed.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// Close tears the session down. It is safe to call more than once and from
// any goroutine; only the first call has any effect.
func (s *Session) Close() {
	s.closeWith(nil)
}

// run drives the handshake until the session closes.
func (s *Session) run() {
	s.cfg.Observer.SessionOpened(s.id, s.client.RemoteAddr())
	s.log.Debug().Msg("session opened")

	stop := context.AfterFunc(s.ctx, func() { s.closeWith(context.Cause(s.ctx)) })
	defer stop()

	s.idle.Start()

	for {
		cur := s.State()
		h, ok := handlers[cur]
		if !ok {
			break
		}
		next, err := h(s)
		if err != nil {
			s.closeWith(err)
			return
		}
		if err := s.advance(cur, next); err != nil {
			s.closeWith(err)
			return
		}
	}
	s.Close()
}

// advance moves from cur to next. It refuses to move backwards or to leave
// Closed.
func (s *Session) advance(cur, next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if next <= cur {
		return fmt.Errorf("invalid transition %s -> %s", cur, next)
	}
	s.trace().Stringer("from", cur).Stringer("to", next).Msg("state")
	s.state = next
	return nil
}

func (s *Session) awaitMethods() (State, error) {
	neg, err := socks5.ReadNegotiation(s.conn)
	if err != nil {
		return 0, err
	}
	s.trace().Hex("methods", neg.Methods).Msg("initial request")

	method := socks5.SelectMethod(neg.Methods, s.cfg.RequireAuth)
	if err := socks5.WriteMethod(s.conn, method); err != nil {
		return 0, err
	}
	s.trace().Str("method", socks5.MethodName(method)).Msg("initial response")

	if method == socks5.MethodNoAcceptable {
		return 0, s.lingerOn(ErrNoAcceptableMethod)
	}

	s.mu.Lock()
	s.method = method
	s.mu.Unlock()
	return StateMethodChosen, nil
}

func (s *Session) methodChosen() (State, error) {
	s.mu.Lock()
	method := s.method
	s.mu.Unlock()

	if method == socks5.MethodUsernamePassword {
		return StateAwaitingAuth, nil
	}
	return StateAwaitingCommand, nil
}

func (s *Session) awaitAuth() (State, error) {
	urq, err := socks5.ReadUserPass(s.conn)
	if err != nil {
		return 0, err
	}
	username := string(urq.Uname)
	s.trace().Str("user", username).Msg("password auth request")

	ok := s.cfg.Authenticator.Authenticate(username, string(urq.Passwd))
	s.cfg.Observer.AuthChecked(ok)

	if !ok {
		s.counter.SetUsername(traffic.Unauthorized)
		s.log.Warn().Str("user", username).Msg("authentication failed")
		if err := socks5.WriteUserPassStatus(s.conn, false); err != nil {
			return 0, err
		}
		return 0, s.lingerOn(fmt.Errorf("%w: %s", ErrAuthFailed, username))
	}

	s.mu.Lock()
	s.username = username
	s.mu.Unlock()
	s.counter.SetUsername(username)

	if err := socks5.WriteUserPassStatus(s.conn, true); err != nil {
		return 0, err
	}
	s.trace().Str("user", username).Msg("password auth success")
	return StateAuthenticated, nil
}

func (s *Session) authenticated() (State, error) {
	return StateAwaitingCommand, nil
}

func (s *Session) awaitCommand() (State, error) {
	req, err := socks5.ReadRequest(s.conn)
	if err != nil {
		return 0, err
	}
	addr := req.Address()
	s.trace().Str("cmd", socks5.CommandName(req.Cmd)).Str("dst", addr).Msg("command request")

	if req.Cmd != socks5.CmdConnect {
		if err := socks5.WriteFailureReply(s.conn); err != nil {
			return 0, err
		}
		return 0, s.lingerOn(fmt.Errorf("%w: %s", ErrCommandNotSupported, socks5.CommandName(req.Cmd)))
	}

	outcome := s.connector.Connect(s.ctx, addr)
	var o dialer.Outcome
	select {
	case o = <-outcome:
	case <-s.ctx.Done():
		dialer.Discard(outcome)
		return 0, ErrSessionClosed
	}
	s.cfg.Observer.Connected(o.Err == nil)

	if o.Err != nil {
		s.log.Debug().Err(o.Err).Str("dst", addr).Msg("connect failed")
		if err := socks5.WriteFailureReply(s.conn); err != nil {
			return 0, err
		}
		return 0, s.lingerOn(o.Err)
	}

	if err := s.setDest(o.Conn); err != nil {
		_ = o.Conn.Close()
		return 0, err
	}

	// The reply goes out before either relay pipe starts, so no destination
	// byte can overtake it.
	if err := socks5.WriteSuccessReply(s.conn); err != nil {
		return 0, err
	}
	s.trace().Str("dst", addr).Stringer("bound", o.Conn.LocalAddr()).Msg("command response success")
	return StateRelaying, nil
}

func (s *Session) relay() (State, error) {
	s.mu.Lock()
	dest := s.dest
	s.mu.Unlock()

	if err := Relay(s.ctx, s.conn, dest, s.counter); err != nil {
		return 0, fmt.Errorf("relay: %w", err)
	}
	return StateClosed, nil
}

// setDest records the destination socket. It can be set only once and not
// after the session has closed.
func (s *Session) setDest(c net.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.dest != nil {
		return errors.New("destination already set")
	}
	s.dest = c
	return nil
}

// lingerOn marks that a final response was just written, so close must let
// it reach the client before tearing the socket down.
func (s *Session) lingerOn(err error) error {
	s.mu.Lock()
	s.linger = true
	s.mu.Unlock()
	return err
}

func (s *Session) closeWith(cause error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		if s.err == nil {
			s.err = cause
		}
		dest, linger, err := s.dest, s.linger, s.err
		s.mu.Unlock()

		s.cancel()
		s.idle.Stop()

		if linger {
			lingerClose(s.client)
		} else {
			_ = s.client.Close()
		}
		if dest != nil {
			_ = dest.Close()
		}

		snap := s.counter.Finalize()
		s.cfg.FlowLog.Record(flowlog.Record{
			Session:    s.id,
			Username:   snap.Username,
			Begin:      snap.Begin,
			End:        snap.End,
			LocalAddr:  s.client.LocalAddr(),
			RemoteAddr: s.client.RemoteAddr(),
			Read:       snap.Read,
			Written:    snap.Written,
		})
		s.cfg.Observer.SessionClosed(s.id, snap)

		ev := s.log.Debug()
		if err != nil && !errors.Is(err, context.Canceled) {
			ev = ev.Err(err)
		}
		ev.Str("user", snap.Username).Int64("read", snap.Read).Int64("written", snap.Written).Msg("session closed")

		close(s.closed)
	})
}

// trace returns a debug event when protocol logging is on, nil otherwise.
// Methods on a nil *zerolog.Event are no-ops.
func (s *Session) trace() *zerolog.Event {
	if !s.cfg.Debug {
		return nil
	}
	return s.log.Debug()
}

// lingerClose half-closes c so queued response bytes are delivered ahead of
// the FIN, waits briefly for the client to hang up, then closes. Closing with
// unread input pending would send a RST that can discard the response.
func lingerClose(c net.Conn) {
	defer c.Close()

	tc, ok := c.(*net.TCPConn)
	if !ok {
		return
	}
	if err := tc.CloseWrite(); err != nil {
		return
	}
	_ = tc.SetReadDeadline(time.Now().Add(flushLinger))
	_, _ = io.Copy(io.Discard, tc)
}
