package dialer

import (
	"net"
	"time"
)

// DefaultDialTimeout bounds connects to unreachable destinations.
const DefaultDialTimeout = time.Second

type Config struct {
	// DialTimeout bounds name resolution plus TCP connect. Zero means
	// DefaultDialTimeout.
	DialTimeout time.Duration
	KeepAlive   net.KeepAliveConfig

	// Resolver, if set, resolves domain-name destinations instead of the
	// system resolver.
	Resolver Resolver
}

func (c Config) dialTimeout() time.Duration {
	if c.DialTimeout > 0 {
		return c.DialTimeout
	}
	return DefaultDialTimeout
}
