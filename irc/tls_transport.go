package irc

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
)

// tlsTransport is the default ConnectionIO implementation from spec.md
// §4.2: a raw, line-framed socket, upgraded to TLS unless Connection.Secure
// is false. Grounded on girc/conn.go's ircConn (bufio.ReadWriter over a
// net.Conn, with a dedicated write mutex) generalized from girc's
// dial-then-maybe-TLS-handshake shape — the teacher itself never opens a
// raw socket, only a WebSocket, so this file adapts girc's non-teacher
// but same-domain pattern rather than the teacher's.
type tlsTransport struct {
	conn net.Conn
	r    *bufio.Reader

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

func (t *tlsTransport) dial(ctx context.Context, cfg Connection) error {
	addr := fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	if cfg.Secure {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: cfg.Server})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return err
		}
		conn = tlsConn
	}

	t.conn = conn
	t.r = bufio.NewReader(conn)
	return nil
}

func (t *tlsTransport) readLine() (string, error) {
	line, err := t.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimCRLF(line), nil
}

func (t *tlsTransport) writeLine(line string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.conn == nil {
		return ErrTransportClosed
	}
	_, err := t.conn.Write([]byte(line + "\r\n"))
	return err
}

func (t *tlsTransport) close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

func trimCRLF(s string) string {
	n := len(s)
	for n > 0 && (s[n-1] == '\n' || s[n-1] == '\r') {
		n--
	}
	return s[:n]
}
