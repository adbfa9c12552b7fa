// Package dialer opens outbound connections for the relay.
//
// A Dialer establishes one TCP connection with a bounded connect timeout. The
// Connector runs a Dialer in the background and reports the single outcome on
// a channel so a session can keep watching its own close signal while the
// connect is in flight. Domain names are resolved by the system resolver
// unless a Resolver is configured.
package dialer
