package irc

import "fmt"

// Kind discriminates the taxonomy of errors a Client can return, per the
// library's "single catch site" contract: every error produced by this
// package can be inspected through Kind without string matching.
type Kind int

const (
	// KindConnection is a failure to establish the underlying transport.
	KindConnection Kind = iota
	// KindAuthentication is a login NOTICE reporting bad credentials.
	KindAuthentication
	// KindNotConnected is a command issued while readyState != OPEN.
	KindNotConnected
	// KindAnonymous is a restricted command issued by a justinfan identity.
	KindAnonymous
	// KindCommandTimeout is a command with no correlated NOTICE in time.
	KindCommandTimeout
	// KindCommandFailed is a command that received a failure NOTICE.
	KindCommandFailed
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindAuthentication:
		return "authentication"
	case KindNotConnected:
		return "not-connected"
	case KindAnonymous:
		return "anonymous"
	case KindCommandTimeout:
		return "command-timeout"
	case KindCommandFailed:
		return "command-failed"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by this package. Channel and
// Command are populated when relevant (command-kind failures); MsgID
// carries the raw Twitch NOTICE msg-id for KindCommandFailed.
type Error struct {
	Kind    Kind
	Channel string
	Command string
	MsgID   string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindCommandFailed:
		return fmt.Sprintf("irc: %s %s failed: %s", e.Command, e.Channel, e.MsgID)
	case KindCommandTimeout:
		return fmt.Sprintf("irc: %s %s timed out", e.Command, e.Channel)
	default:
		if e.Err != nil {
			return fmt.Sprintf("irc: %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("irc: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func errNotConnected(command, channel string) *Error {
	return &Error{Kind: KindNotConnected, Command: command, Channel: channel}
}

func errAnonymous(command, channel string) *Error {
	return &Error{Kind: KindAnonymous, Command: command, Channel: channel}
}

func errCommandTimeout(command, channel string) *Error {
	return &Error{Kind: KindCommandTimeout, Command: command, Channel: channel}
}

func errCommandFailed(command, channel, msgID string) *Error {
	return &Error{Kind: KindCommandFailed, Command: command, Channel: channel, MsgID: msgID}
}

func errConnection(err error) *Error {
	return &Error{Kind: KindConnection, Err: err}
}

func errAuthentication(err error) *Error {
	return &Error{Kind: KindAuthentication, Err: err}
}
