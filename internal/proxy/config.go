package proxy

import (
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/die-net/socksrelay/internal/auth"
	"github.com/die-net/socksrelay/internal/dialer"
	"github.com/die-net/socksrelay/internal/flowlog"
	"github.com/die-net/socksrelay/internal/idle"
)

// DefaultIdle matches the relay's stock reader/writer idle thresholds.
var DefaultIdle = idle.Config{
	ReaderIdle: 3 * time.Second,
	WriterIdle: 30 * time.Second,
}

type Config struct {
	// RequireAuth makes the server negotiate username/password.
	RequireAuth bool
	// Debug logs every decoded SOCKS5 message and every response.
	Debug bool

	Idle      idle.Config
	KeepAlive net.KeepAliveConfig

	Dialer        dialer.Dialer
	Authenticator auth.Authenticator
	FlowLog       flowlog.Sink
	Observer      Observer

	Log zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.Dialer == nil {
		c.Dialer = dialer.NewDirectDialer(dialer.Config{KeepAlive: c.KeepAlive})
	}
	if c.Authenticator == nil {
		c.Authenticator = auth.NewStore(nil)
	}
	if c.FlowLog == nil {
		c.FlowLog = flowlog.NewLogSink(c.Log)
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return c
}
