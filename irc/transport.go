package irc

import (
	"context"
	"errors"
)

// ErrTransportClosed is returned by writeLine when the transport holds no
// connection (dial has not succeeded). After close, readLine and writeLine
// return the underlying connection's error instead.
var ErrTransportClosed = errors.New("irc: transport closed")

// transport is ConnectionIO's dependency on the underlying byte stream: a
// line-oriented, UTF-8, CRLF-framed duplex connection. Both the default
// TLS implementation and the alternate WebSocket implementation satisfy
// it, so the Parser, Dispatcher, MessageQueue and CommandAPI above this
// layer never know which one is in use.
type transport interface {
	// dial establishes the connection. It must block until the transport
	// is ready to read/write.
	dial(ctx context.Context, cfg Connection) error
	// readLine blocks until one full line (sans CRLF) is available.
	readLine() (string, error)
	// writeLine sends one line, appending CRLF framing itself.
	writeLine(line string) error
	// close tears down the connection; safe to call more than once.
	close() error
}

func newTransport(cfg Connection) transport {
	switch cfg.Transport {
	case TransportWebSocket:
		return &websocketTransport{}
	default:
		return &tlsTransport{}
	}
}
