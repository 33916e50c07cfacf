package irc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// TwitchWebSocketURL is the alternate Twitch TMI endpoint: IRC-over-
// WebSocket. Both irc/client.go and helix/irc.go in the teacher dial this
// exact URL by default.
const TwitchWebSocketURL = "wss://irc-ws.chat.twitch.tv:443"

// websocketTransport adapts gorilla/websocket to the transport interface,
// grounded directly on the teacher's Connect/readLoop/send
// (irc/client.go) and the hardened variant in helix/irc.go (stopOnce,
// line-splitting on "\r\n" since a single WebSocket text frame may carry
// more than one IRC line).
type websocketTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending []string
	closed  bool
}

func (t *websocketTransport) dial(ctx context.Context, cfg Connection) error {
	url := cfg.wsURL()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

// wsURL lets a Connection override the default Twitch WebSocket endpoint
// (for tests, via a custom Server/Port/Secure combination), falling back
// to TwitchWebSocketURL when Server is left at the TLS default.
func (cfg Connection) wsURL() string {
	if cfg.Server == "" || cfg.Server == "irc.chat.twitch.tv" {
		return TwitchWebSocketURL
	}
	scheme := "ws"
	if cfg.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/", scheme, cfg.Server, cfg.Port)
}

func (t *websocketTransport) readLine() (string, error) {
	t.mu.Lock()
	if len(t.pending) > 0 {
		line := t.pending[0]
		t.pending = t.pending[1:]
		t.mu.Unlock()
		return line, nil
	}
	t.mu.Unlock()

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\r\n")
		var out []string
		for _, l := range lines {
			if l != "" {
				out = append(out, l)
			}
		}
		if len(out) == 0 {
			continue
		}
		t.mu.Lock()
		t.pending = append(t.pending, out[1:]...)
		t.mu.Unlock()
		return out[0], nil
	}
}

func (t *websocketTransport) writeLine(line string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.conn == nil {
		return ErrTransportClosed
	}
	return t.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n"))
}

func (t *websocketTransport) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
