package socks5

import (
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

const (
	// Version is the SOCKS protocol version byte.
	Version = txsocks5.Ver

	MethodNone             = txsocks5.MethodNone
	MethodUsernamePassword = txsocks5.MethodUsernamePassword
	// MethodNoAcceptable tells the client none of its methods were accepted
	// (RFC 1928).
	MethodNoAcceptable byte = 0xff

	CmdConnect = txsocks5.CmdConnect
	CmdBind    = txsocks5.CmdBind
	CmdUDP     = txsocks5.CmdUDP

	ATYPIPv4   = txsocks5.ATYPIPv4
	ATYPDomain = txsocks5.ATYPDomain
	ATYPIPv6   = txsocks5.ATYPIPv6

	RepSuccess = txsocks5.RepSuccess
	// RepFailure is the general SOCKS server failure reply. All connect
	// failures and rejected commands collapse to it.
	RepFailure = txsocks5.RepServerFailure

	UserPassStatusSuccess = txsocks5.UserPassStatusSuccess
	UserPassStatusFailure = txsocks5.UserPassStatusFailure
)

type (
	NegotiationRequest         = txsocks5.NegotiationRequest
	UserPassNegotiationRequest = txsocks5.UserPassNegotiationRequest
	Request                    = txsocks5.Request
)

// Auth configures optional username/password authentication for SOCKS5
// negotiation.
type Auth struct {
	Username string
	Password string
}

// SelectMethod picks the authentication method for the offered methods.
//
// When auth is required the server answers username/password to any client
// that offered it or offered no-auth; a client offering no-auth is asked to
// authenticate rather than being let through. Without required auth only
// no-auth is acceptable. MethodNoAcceptable is returned otherwise.
func SelectMethod(offered []byte, requireAuth bool) byte {
	if requireAuth {
		if containsMethod(offered, MethodUsernamePassword) || containsMethod(offered, MethodNone) {
			return MethodUsernamePassword
		}
		return MethodNoAcceptable
	}
	if containsMethod(offered, MethodNone) {
		return MethodNone
	}
	return MethodNoAcceptable
}

// MethodName returns a human readable name for an authentication method.
func MethodName(m byte) string {
	switch m {
	case MethodNone:
		return "no-auth"
	case MethodUsernamePassword:
		return "username/password"
	case 0x01:
		return "gssapi"
	case MethodNoAcceptable:
		return "no-acceptable-methods"
	default:
		return fmt.Sprintf("method(0x%02x)", m)
	}
}

// CommandName returns a human readable name for a request command.
func CommandName(cmd byte) string {
	switch cmd {
	case CmdConnect:
		return "CONNECT"
	case CmdBind:
		return "BIND"
	case CmdUDP:
		return "UDP ASSOCIATE"
	default:
		return fmt.Sprintf("command(0x%02x)", cmd)
	}
}

func containsMethod(methods []byte, want byte) bool {
	for _, m := range methods {
		if m == want {
			return true
		}
	}
	return false
}

func writeTo(w io.Writer, wt io.WriterTo, what string) error {
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	return nil
}
