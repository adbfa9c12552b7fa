package proxy

// State is a Session's position in the SOCKS5 handshake. States only move
// forward; Closed is reachable from any state.
type State int

const (
	StateAwaitingMethods State = iota
	StateMethodChosen
	StateAwaitingAuth
	StateAuthenticated
	StateAwaitingCommand
	StateRelaying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingMethods:
		return "awaiting-methods"
	case StateMethodChosen:
		return "method-chosen"
	case StateAwaitingAuth:
		return "awaiting-auth"
	case StateAuthenticated:
		return "authenticated"
	case StateAwaitingCommand:
		return "awaiting-command"
	case StateRelaying:
		return "relaying"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// stateFunc handles one state and returns the next. A non-nil error closes
// the session.
type stateFunc func(*Session) (State, error)

var handlers = map[State]stateFunc{
	StateAwaitingMethods: (*Session).awaitMethods,
	StateMethodChosen:    (*Session).methodChosen,
	StateAwaitingAuth:    (*Session).awaitAuth,
	StateAuthenticated:   (*Session).authenticated,
	StateAwaitingCommand: (*Session).awaitCommand,
	StateRelaying:        (*Session).relay,
}
