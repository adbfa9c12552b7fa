package proxy

import (
	"net"

	"github.com/die-net/socksrelay/internal/traffic"
)

// Observer is notified of session lifecycle and handshake outcomes. It is
// shared by all sessions and must be safe for concurrent use.
type Observer interface {
	SessionOpened(id string, remote net.Addr)
	SessionClosed(id string, snap traffic.Snapshot)
	AuthChecked(ok bool)
	Connected(ok bool)
}

type nopObserver struct{}

func (nopObserver) SessionOpened(string, net.Addr) {}
func (nopObserver) SessionClosed(string, traffic.Snapshot) {}
func (nopObserver) AuthChecked(bool) {}
func (nopObserver) Connected(bool) {}
