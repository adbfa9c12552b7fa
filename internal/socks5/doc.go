// Package socks5 provides the SOCKS5 message codec used by the relay.
//
// It wraps the low-level protocol types in github.com/txthinking/socks5 so
// that method selection, username/password sub-negotiation, and CONNECT
// request/reply framing live in one place. Every decode function reads exactly
// one message and never over-reads, so the caller can hand the raw connection
// to the relay as soon as the handshake completes.
//
// Replies always report a bound address of IPv4 0.0.0.0:0; the relay is
// transparent and clients do not use the bound endpoint.
package socks5
