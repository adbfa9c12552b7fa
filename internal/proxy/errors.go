package proxy

import "errors"

var (
	ErrNoAcceptableMethod  = errors.New("no acceptable authentication method")
	ErrAuthFailed          = errors.New("authentication failed")
	ErrCommandNotSupported = errors.New("command not supported")
	ErrIdleTimeout         = errors.New("idle timeout")
	ErrSessionClosed       = errors.New("session closed")
)
