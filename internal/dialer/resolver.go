package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// ErrNoAddress is returned when a name resolves to no usable address.
var ErrNoAddress = errors.New("no address records")

// Resolver resolves a host name to IP addresses.
type Resolver interface {
	LookupIP(ctx context.Context, host string) ([]net.IP, error)
}

// DNSResolver queries one DNS server directly, A records first and AAAA if
// there are none.
type DNSResolver struct {
	server string
	client *dns.Client
}

// NewDNSResolver returns a resolver for server ("host" or "host:port"; port 53
// is assumed when missing).
func NewDNSResolver(server string, timeout time.Duration) (*DNSResolver, error) {
	if server == "" {
		return nil, errors.New("empty dns server")
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &DNSResolver{
		server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
	}, nil
}

func (r *DNSResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	ips, err := r.query(ctx, host, dns.TypeA)
	if err != nil {
		return nil, err
	}
	if len(ips) > 0 {
		return ips, nil
	}
	return r.query(ctx, host, dns.TypeAAAA)
}

func (r *DNSResolver) query(ctx context.Context, host string, qtype uint16) ([]net.IP, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return nil, fmt.Errorf("dns %s %s: %w", dns.TypeToString[qtype], host, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("dns %s %s: %s", dns.TypeToString[qtype], host, dns.RcodeToString[resp.Rcode])
	}

	var ips []net.IP
	for _, ans := range resp.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			ips = append(ips, rr.A)
		case *dns.AAAA:
			ips = append(ips, rr.AAAA)
		}
	}
	return ips, nil
}
