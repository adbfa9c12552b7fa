// Package flowlog records one summary per finished relay session.
package flowlog

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Record summarizes a closed session. Read and Written are counted at the
// client-facing socket.
type Record struct {
	Session    string
	Username   string
	Begin      time.Time
	End        time.Time
	LocalAddr  net.Addr
	RemoteAddr net.Addr
	Read       int64
	Written    int64
}

// Total returns Read+Written.
func (r Record) Total() int64 {
	return r.Read + r.Written
}

// Line renders the record as
// "user,begin,end,localip:port,remoteip:port,read,written,total" with
// millisecond Unix timestamps.
func (r Record) Line() string {
	return fmt.Sprintf("%s,%d,%d,%s,%s,%d,%d,%d",
		r.Username,
		r.Begin.UnixMilli(),
		r.End.UnixMilli(),
		addrString(r.LocalAddr),
		addrString(r.RemoteAddr),
		r.Read,
		r.Written,
		r.Total(),
	)
}

// Sink receives exactly one Record per session. Implementations must be safe
// for concurrent use.
type Sink interface {
	Record(r Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(r Record)

func (f SinkFunc) Record(r Record) { f(r) }

// LogSink writes each record as a structured info-level log line.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Record(r Record) {
	s.log.Info().
		Str("session", r.Session).
		Str("user", r.Username).
		Time("begin", r.Begin).
		Time("end", r.End).
		Dur("duration", r.End.Sub(r.Begin)).
		Str("local", addrString(r.LocalAddr)).
		Str("remote", addrString(r.RemoteAddr)).
		Int64("read", r.Read).
		Int64("written", r.Written).
		Int64("total", r.Total()).
		Str("line", r.Line()).
		Msg("flow")
}

func addrString(a net.Addr) string {
	if a == nil {
		return "-"
	}
	if ta, ok := a.(*net.TCPAddr); ok {
		return net.JoinHostPort(ta.IP.String(), fmt.Sprint(ta.Port))
	}
	return a.String()
}
