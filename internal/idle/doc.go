// Package idle detects inactive connections.
//
// A Supervisor watches the last read and write times of one connection and
// invokes a callback once when a configured threshold passes with no
// qualifying activity. Thresholds mirror the usual reader/writer/all split:
// reader idle is time since the last successful read, writer idle time since
// the last successful write, and all idle time since either.
package idle
