// Package traffic accumulates per-session byte counts and timing.
//
// A Counter belongs to exactly one session. Byte counts are taken from the
// perspective of the client-facing socket: bytes arriving from the client are
// "read", bytes sent back to the client are "written". Once a Counter is
// finalized its values are frozen and every later Snapshot returns the same
// data.
package traffic
