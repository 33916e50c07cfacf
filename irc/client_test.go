package irc

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Mock TMI server over WebSocket, grounded on the teacher's own
// createMockIRCServer (irc/client_test.go): an httptest.Server upgrading
// every request, letting the test drive the handshake by hand.
var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newMockTMIServer(t *testing.T, handler func(*websocket.Conn)) (*httptest.Server, Connection) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()
		handler(conn)
	}))

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	return srv, Connection{
		Server:               host,
		Port:                 port,
		Secure:               false,
		Transport:            TransportWebSocket,
		Timeout:              2 * time.Second,
		CommandTimeout:       2 * time.Second,
		ReconnectInterval:    10 * time.Millisecond,
		ReconnectDecay:       1.5,
		MaxReconnectInterval: 50 * time.Millisecond,
		MaxReconnectAttempts: -1,
	}
}

func readHandshake(t *testing.T, conn *websocket.Conn) {
	for i := 0; i < 3; i++ {
		_, _, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading handshake line %d: %v", i, err)
		}
	}
}

func sendLine(t *testing.T, conn *websocket.Conn, line string) {
	if err := conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestClientConnectHandshake(t *testing.T) {
	srv, connCfg := newMockTMIServer(t, func(conn *websocket.Conn) {
		readHandshake(t, conn)
		sendLine(t, conn, ":tmi.twitch.tv 001 testuser :Welcome, GLHF!")
		sendLine(t, conn, "@user-id=1 :tmi.twitch.tv GLOBALUSERSTATE")
		time.Sleep(200 * time.Millisecond)
	})
	defer srv.Close()

	c := NewClient(
		WithIdentity("testuser", "token123"),
		WithTransport(TransportWebSocket),
	)
	c.cfg.Connection = connCfg

	var connected bool
	c.On("connected", func(args ...any) error { connected = true; return nil })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Disconnect()

	if c.ReadyState() != StateOpen {
		t.Errorf("readyState = %v, want OPEN", c.ReadyState())
	}
	time.Sleep(20 * time.Millisecond)
	if !connected {
		t.Error("expected connected event to fire")
	}
}

func TestClientJoinsConfiguredChannels(t *testing.T) {
	joined := make(chan string, 1)
	srv, connCfg := newMockTMIServer(t, func(conn *websocket.Conn) {
		readHandshake(t, conn)
		sendLine(t, conn, ":tmi.twitch.tv 001 testuser :Welcome, GLHF!")
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			line := strings.TrimRight(string(data), "\r\n")
			if strings.HasPrefix(line, "JOIN") {
				select {
				case joined <- line:
				default:
				}
			}
		}
	})
	defer srv.Close()

	c := NewClient(WithIdentity("testuser", "token"), WithChannels("#ronni"))
	c.cfg.Connection = connCfg
	c.cfg.Options.JoinInterval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Disconnect()

	select {
	case line := <-joined:
		if !strings.Contains(line, "#ronni") {
			t.Errorf("join line = %q", line)
		}
	case <-time.After(time.Second):
		t.Fatal("never observed JOIN")
	}
}

func TestClientDisconnectSuppressesReconnect(t *testing.T) {
	srv, connCfg := newMockTMIServer(t, func(conn *websocket.Conn) {
		readHandshake(t, conn)
		sendLine(t, conn, ":tmi.twitch.tv 001 testuser :Welcome, GLHF!")
		time.Sleep(time.Second)
	})
	defer srv.Close()

	c := NewClient(WithIdentity("testuser", "token"))
	c.cfg.Connection = connCfg

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if c.ReadyState() != StateClosed {
		t.Errorf("readyState = %v, want CLOSED", c.ReadyState())
	}
}
