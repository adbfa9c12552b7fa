package socks5

import (
	"errors"
	"fmt"
	"net"

	txsocks5 "github.com/txthinking/socks5"
)

var (
	// ErrAuthRejected is returned by ClientNegotiate when the server answered
	// the username/password sub-negotiation with a failure status.
	ErrAuthRejected = errors.New("socks5: authentication rejected")
	// ErrNoAcceptableMethod is returned by ClientNegotiate when the server
	// accepted none of the offered methods.
	ErrNoAcceptableMethod = errors.New("socks5: no acceptable method")
)

// ReplyError reports a non-success CONNECT reply.
type ReplyError struct {
	Rep byte
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("socks5: connect failed with reply 0x%02x", e.Rep)
}

// ClientDial negotiates and issues a CONNECT for address over conn.
func ClientDial(conn net.Conn, auth Auth, address string) error {
	if err := ClientNegotiate(conn, auth); err != nil {
		return err
	}
	return ClientConnect(conn, address)
}

// ClientNegotiate offers no-auth, plus username/password when auth carries a
// username, and completes the sub-negotiation the server picks.
func ClientNegotiate(conn net.Conn, auth Auth) error {
	methods := []byte{MethodNone}
	if auth.Username != "" {
		methods = append(methods, MethodUsernamePassword)
	}

	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(conn); err != nil {
		return fmt.Errorf("write negotiation: %w", err)
	}

	neg, err := txsocks5.NewNegotiationReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}

	switch neg.Method {
	case MethodNone:
		return nil
	case MethodUsernamePassword:
		if _, err := txsocks5.NewUserPassNegotiationRequest([]byte(auth.Username), []byte(auth.Password)).WriteTo(conn); err != nil {
			return fmt.Errorf("write userpass: %w", err)
		}
		rep, err := txsocks5.NewUserPassNegotiationReplyFrom(conn)
		if err != nil {
			return fmt.Errorf("read userpass: %w", err)
		}
		if rep.Status != UserPassStatusSuccess {
			return ErrAuthRejected
		}
		return nil
	case MethodNoAcceptable:
		return ErrNoAcceptableMethod
	default:
		return fmt.Errorf("unsupported negotiation method: %d", neg.Method)
	}
}

// ClientConnect sends a CONNECT request for address and waits for the reply.
func ClientConnect(conn net.Conn, address string) error {
	atyp, dstAddr, dstPort, err := txsocks5.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}
	if atyp == ATYPDomain {
		dstAddr = dstAddr[1:]
	}

	if _, err := txsocks5.NewRequest(CmdConnect, atyp, dstAddr, dstPort).WriteTo(conn); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	rep, err := txsocks5.NewReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if rep.Rep != RepSuccess {
		return &ReplyError{Rep: rep.Rep}
	}
	return nil
}
