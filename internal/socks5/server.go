package socks5

import (
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

// ReadNegotiation decodes the client's initial method offer.
func ReadNegotiation(r io.Reader) (*NegotiationRequest, error) {
	neg, err := txsocks5.NewNegotiationRequestFrom(r)
	if err != nil {
		return nil, fmt.Errorf("negotiation request: %w", err)
	}
	return neg, nil
}

// WriteMethod sends the initial response carrying the chosen method.
func WriteMethod(w io.Writer, method byte) error {
	return writeTo(w, txsocks5.NewNegotiationReply(method), "negotiation reply")
}

// ReadUserPass decodes a username/password sub-negotiation request.
func ReadUserPass(r io.Reader) (*UserPassNegotiationRequest, error) {
	urq, err := txsocks5.NewUserPassNegotiationRequestFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read userpass: %w", err)
	}
	return urq, nil
}

// WriteUserPassStatus sends the sub-negotiation status.
func WriteUserPassStatus(w io.Writer, ok bool) error {
	status := UserPassStatusFailure
	if ok {
		status = UserPassStatusSuccess
	}
	return writeTo(w, txsocks5.NewUserPassNegotiationReply(status), "userpass reply")
}

// ReadRequest decodes a command request. Unsupported address types and a bad
// version byte are decode errors.
func ReadRequest(r io.Reader) (*Request, error) {
	req, err := txsocks5.NewRequestFrom(r)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	return req, nil
}
