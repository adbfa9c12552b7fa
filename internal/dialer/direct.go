package dialer

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

type directDialer struct {
	cfg Config
}

// NewDirectDialer returns a Dialer that connects straight to the destination.
func NewDirectDialer(cfg Config) Dialer {
	return &directDialer{cfg: cfg}
}

func (f *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.dialTimeout())
	defer cancel()

	target, err := f.resolve(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}

	dd := net.Dialer{KeepAliveConfig: f.cfg.KeepAlive}
	if !f.cfg.KeepAlive.Enable {
		dd.KeepAlive = -1
	}

	conn, err := dd.DialContext(ctx, network, target)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	return conn, nil
}

// resolve swaps a domain name for an address from the configured Resolver.
// Without a Resolver, or for IP literals, address is returned unchanged.
func (f *directDialer) resolve(ctx context.Context, address string) (string, error) {
	if f.cfg.Resolver == nil {
		return address, nil
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "", err
	}
	if net.ParseIP(host) != nil {
		return address, nil
	}

	ips, err := f.cfg.Resolver.LookupIP(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("%s: %w", host, ErrNoAddress)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return net.JoinHostPort(ips[0].String(), port), nil
}
