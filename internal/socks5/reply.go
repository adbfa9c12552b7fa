package socks5

import (
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

// WriteSuccessReply writes a success reply with the placeholder bound address.
func WriteSuccessReply(w io.Writer) error {
	return writeTo(w, newZeroAddrReply(RepSuccess), "success reply")
}

// WriteFailureReply writes a general failure reply with the placeholder bound
// address.
func WriteFailureReply(w io.Writer) error {
	return writeTo(w, newZeroAddrReply(RepFailure), "failure reply")
}

func newZeroAddrReply(rep byte) *txsocks5.Reply {
	return txsocks5.NewReply(rep, ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00})
}
