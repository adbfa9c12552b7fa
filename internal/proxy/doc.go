// Package proxy implements the SOCKS5 relay server.
//
// Server accepts client connections and runs one Session per connection. A
// Session walks the SOCKS5 handshake through a forward-only sequence of
// states, each handled by one entry of a state-to-handler table, then hands
// the client and destination sockets to the relay. Closing a Session closes
// both sockets, finalizes its traffic counter and emits exactly one flow-log
// record.
package proxy
