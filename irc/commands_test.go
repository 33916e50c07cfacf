package irc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func newOpenTestClient() *Client {
	c := NewClient(WithIdentity("testuser", "oauth:abc"), WithCommandTimeout(200*time.Millisecond))
	c.state.setReadyState(StateOpen)
	c.joinQueue = NewMessageQueue(time.Millisecond)
	c.privmsgQueue = NewMessageQueue(time.Millisecond)
	c.modQueue = NewMessageQueue(time.Millisecond)
	return c
}

// capturingTransport records every line written to it, letting a test play
// server without a real socket or mock HTTP server.
type capturingTransport struct {
	mu    sync.Mutex
	lines []string
}

func (f *capturingTransport) dial(ctx context.Context, cfg Connection) error { return nil }
func (f *capturingTransport) readLine() (string, error)                     { select {} }
func (f *capturingTransport) close() error                                  { return nil }
func (f *capturingTransport) writeLine(line string) error {
	f.mu.Lock()
	f.lines = append(f.lines, line)
	f.mu.Unlock()
	return nil
}
func (f *capturingTransport) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lines) == 0 {
		return ""
	}
	return f.lines[len(f.lines)-1]
}

func TestPingMeasuresLatencyOnMatchingPong(t *testing.T) {
	c := newOpenTestClient()
	defer c.joinQueue.Stop()
	defer c.privmsgQueue.Stop()
	defer c.modQueue.Stop()

	ft := &capturingTransport{}
	c.transport = ft

	go func() {
		for i := 0; i < 50; i++ {
			time.Sleep(2 * time.Millisecond)
			if line := ft.last(); strings.HasPrefix(line, "PING :") {
				token := strings.TrimPrefix(line, "PING :")
				c.Emit("pong", token)
				return
			}
		}
	}()

	latency, err := c.Ping(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latency < 0 {
		t.Errorf("latency = %v, want >= 0", latency)
	}
	if c.Latency() != latency {
		t.Errorf("Latency() = %v, want %v", c.Latency(), latency)
	}
}

func TestBanResolvesOnSuccessNotice(t *testing.T) {
	c := newOpenTestClient()
	defer c.modQueue.Stop()

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Emit("_promiseResolve", "#ronni", "ban_success", "ronni2 is now banned.")
	}()

	if err := c.Ban(context.Background(), "#ronni", "ronni2", "spam"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBanRejectsOnFailureNotice(t *testing.T) {
	c := newOpenTestClient()
	defer c.modQueue.Stop()

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Emit("_promiseReject", "#ronni", "bad_ban_admin", "You cannot ban an admin.")
	}()

	err := c.Ban(context.Background(), "#ronni", "admin2", "spam")
	if err == nil {
		t.Fatal("expected an error")
	}
	var ircErr *Error
	if !errors.As(err, &ircErr) || ircErr.Kind != KindCommandFailed {
		t.Errorf("err = %v, want KindCommandFailed", err)
	}
}

func TestBanTimesOutWithoutNotice(t *testing.T) {
	c := newOpenTestClient()
	defer c.modQueue.Stop()

	err := c.Ban(context.Background(), "#ronni", "ronni2", "")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var ircErr *Error
	if !errors.As(err, &ircErr) || ircErr.Kind != KindCommandTimeout {
		t.Errorf("err = %v, want KindCommandTimeout", err)
	}
}

func TestCommandsRejectedWhenNotConnected(t *testing.T) {
	c := NewClient(WithIdentity("testuser", "oauth:abc"))
	c.joinQueue = NewMessageQueue(time.Millisecond)
	c.privmsgQueue = NewMessageQueue(time.Millisecond)
	c.modQueue = NewMessageQueue(time.Millisecond)
	defer c.joinQueue.Stop()
	defer c.privmsgQueue.Stop()
	defer c.modQueue.Stop()

	err := c.Say(context.Background(), "#ronni", "hi")
	var ircErr *Error
	if !errors.As(err, &ircErr) || ircErr.Kind != KindNotConnected {
		t.Errorf("err = %v, want KindNotConnected", err)
	}
}

func TestRestrictedCommandsRejectedForAnonymous(t *testing.T) {
	c := NewClient()
	c.state.setReadyState(StateOpen)
	c.joinQueue = NewMessageQueue(time.Millisecond)
	c.privmsgQueue = NewMessageQueue(time.Millisecond)
	c.modQueue = NewMessageQueue(time.Millisecond)
	defer c.joinQueue.Stop()
	defer c.privmsgQueue.Stop()
	defer c.modQueue.Stop()

	if !c.Identity().IsAnonymous() {
		t.Fatal("expected a justinfan identity when none is configured")
	}

	err := c.Say(context.Background(), "#ronni", "hi")
	var ircErr *Error
	if !errors.As(err, &ircErr) || ircErr.Kind != KindAnonymous {
		t.Errorf("err = %v, want KindAnonymous", err)
	}

	// join/part are explicitly not restricted, per spec.md §3.
	if err := c.Join(context.Background(), "#ronni"); err != nil {
		t.Errorf("unexpected error joining anonymously: %v", err)
	}
}

func TestSayChunksLongMessages(t *testing.T) {
	long := make([]byte, maxMessageBytes*2+10)
	for i := range long {
		long[i] = 'a'
	}
	chunks := chunkMessage(string(long))
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for _, c := range chunks[:len(chunks)-1] {
		if len(c) != maxMessageBytes {
			t.Errorf("chunk length = %d, want %d", len(c), maxMessageBytes)
		}
	}
}

func TestModsParsesNamesNotice(t *testing.T) {
	c := newOpenTestClient()
	defer c.modQueue.Stop()

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Emit("_promiseResolve", "#ronni", "room_mods", "The moderators of this channel are: alice, bob.")
	}()

	mods, err := c.Mods(context.Background(), "#ronni")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mods) != 2 || mods[0] != "alice" || mods[1] != "bob" {
		t.Errorf("mods = %v", mods)
	}
}
