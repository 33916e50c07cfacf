package irc

import (
	"context"
	"fmt"
	"sync"
)

// Client owns one connection to Twitch chat: the transport, the three
// rate-limited outbound queues, the event emitter, and the reconnection
// supervisor. Two Clients in one process never share a queue or any
// state — each instance fully owns its subcomponents, per spec.md §9.
//
// Grounded on the teacher's Client (irc/client.go): functional-options
// construction, a dedicated write path, a readLoop goroutine, and a
// reconnect loop — generalized from a WebSocket-only, callback-only shape
// to the spec's transport-agnostic, event-emitter, promise-correlated
// shape.
type Client struct {
	*EventEmitter

	cfg    Config
	logger *Logger
	state  *clientState

	mu        sync.Mutex
	transport transport
	cancel    context.CancelFunc
	readerWG  sync.WaitGroup

	joinQueue    *MessageQueue
	privmsgQueue *MessageQueue
	modQueue     *MessageQueue

	pendingMu     sync.Mutex
	pendingByChan map[string][]*Message
}

// NewClient builds a Client from the given options, applying spec.md §6's
// defaults first (defaultConfig) the way the teacher applies its own
// defaults before running Option funcs over them.
func NewClient(opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Identity = cfg.Identity.normalize()

	logger := cfg.Logger
	if logger == nil {
		logger = NewLogger()
	}
	logger.SetLevel(cfg.Options.LogLevel)

	normalizedChannels := make([]string, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		normalizedChannels[i] = normalizeChannel(ch)
	}
	cfg.Channels = normalizedChannels

	return &Client{
		EventEmitter:  NewEventEmitter(logger),
		cfg:           cfg,
		logger:        logger,
		state:         newClientState(),
		pendingByChan: map[string][]*Message{},
	}
}

// ReadyState returns the client's current connection lifecycle state.
func (c *Client) ReadyState() ReadyState { return c.state.getReadyState() }

// Identity returns the normalized identity this client authenticates as.
func (c *Client) Identity() Identity { return c.cfg.Identity }

// Latency returns the most recently measured PING/PONG round-trip time.
func (c *Client) Latency() float64 { return c.state.getLatency() }

// GlobalUserState returns the last GLOBALUSERSTATE tag map, or nil if the
// client has not authenticated (anonymous connections never receive one).
func (c *Client) GlobalUserState() map[string]string { return c.state.getGlobalUserState() }

// ChannelState returns the client's live per-channel state (later
// dispatches keep updating it), or nil if the client has not joined channel.
func (c *Client) ChannelState(channel string) *ChannelState {
	return c.state.channel(normalizeChannel(channel), false)
}

// Channels returns the canonical names of every channel currently joined.
func (c *Client) Channels() []string { return c.state.channelNames() }

// Connect dials the configured transport, completes the CAP/PASS/NICK
// handshake, and — once the server's welcome reply (001) or an
// authentication-failure NOTICE has been observed — starts the background
// reader loop and enqueues JOINs for the channels to rejoin: the
// configured channel list on a first connect, or the live set recorded in
// state on a reconnect (so channels joined at runtime via Join survive a
// drop). It returns once the handshake concludes (or the
// connection.timeout elapses), not once every channel has joined.
//
// Grounded on irc/client.go's Connect/waitForAuth: the teacher blocks on
// synchronous reads until 001/auth-NOTICE before spawning its readLoop
// goroutine; this keeps that structure, generalized over transport.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.transport != nil {
		c.mu.Unlock()
		return errConnection(fmt.Errorf("already connected"))
	}
	c.mu.Unlock()

	c.state.setReadyState(StateConnecting)

	handshakeCtx, cancelHandshake := context.WithTimeout(ctx, c.cfg.Connection.Timeout)
	defer cancelHandshake()

	t := newTransport(c.cfg.Connection)
	if err := t.dial(handshakeCtx, c.cfg.Connection); err != nil {
		c.state.setReadyState(StateClosed)
		return errConnection(err)
	}

	if err := c.handshake(t); err != nil {
		_ = t.close()
		c.state.setReadyState(StateClosed)
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.transport = t
	c.cancel = cancel
	c.mu.Unlock()

	c.state.wasCloseCalled0()

	c.joinQueue = NewMessageQueue(c.cfg.Options.JoinInterval)
	c.privmsgQueue = NewMessageQueue(c.cfg.Options.MessageInterval)
	c.modQueue = NewMessageQueue(c.cfg.Options.CommandInterval)

	// Closing the transport when the handshake timeout fires unblocks the
	// synchronous readLine inside waitWelcome.
	stopWatch := context.AfterFunc(handshakeCtx, func() { _ = t.close() })
	err := c.waitWelcome(handshakeCtx, t)
	if !stopWatch() && err == nil {
		err = errConnection(handshakeCtx.Err())
	}
	if err != nil {
		c.teardown(t, cancel)
		c.state.setReadyState(StateClosed)
		return err
	}

	isReconnect := c.state.reconnectAttempts > 0

	c.state.setReadyState(StateOpen)
	c.Emit("connected", c.cfg.Connection.Server, c.cfg.Connection.Port)
	if isReconnect {
		c.Emit("reconnected", c.cfg.Connection.Server, c.cfg.Connection.Port)
	}
	c.state.reconnectAttempts = 0

	c.readerWG.Add(1)
	go c.readLoop(runCtx, t)

	// On a fresh connect, join the configured channel list. On a
	// reconnect, rejoin from the live channels recorded in state instead,
	// per spec.md §4.7 — that set includes channels Join added at
	// runtime, which the static config never reflects.
	joinTargets := c.cfg.Channels
	if isReconnect {
		if recorded := c.state.channelNames(); len(recorded) > 0 {
			joinTargets = recorded
		}
	}

	for _, ch := range joinTargets {
		channel := ch
		c.joinQueue.Add(func() { c.writeLine(fmt.Sprintf("JOIN %s", channel)) }, 0)
	}

	return nil
}

func (s *clientState) wasCloseCalled0() {
	s.mu.Lock()
	s.wasCloseCalled = false
	s.mu.Unlock()
}

// handshake sends the capability request, optional PASS, and NICK, per
// spec.md §4.2 steps 1-3.
func (c *Client) handshake(t transport) error {
	caps := "CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership"
	if err := t.writeLine(caps); err != nil {
		return errConnection(err)
	}
	if !c.cfg.Identity.IsAnonymous() {
		if err := t.writeLine("PASS " + c.cfg.Identity.Password); err != nil {
			return errConnection(err)
		}
	}
	if err := t.writeLine("NICK " + c.cfg.Identity.Username); err != nil {
		return errConnection(err)
	}
	return nil
}

// waitWelcome reads lines synchronously until the 001 welcome numeric or an
// authentication-failure NOTICE arrives, per spec.md §4.2/§7.
func (c *Client) waitWelcome(ctx context.Context, t transport) error {
	for {
		if err := ctx.Err(); err != nil {
			return errConnection(err)
		}
		line, err := t.readLine()
		if err != nil {
			return errConnection(err)
		}
		msg := ParseMessage(line)
		if msg == nil {
			continue
		}
		switch msg.Command {
		case "001":
			return nil
		case "NOTICE":
			if containsAuthFailure(msg.Trailing) {
				return errAuthentication(fmt.Errorf("%s", msg.Trailing))
			}
		case "GLOBALUSERSTATE":
			c.dispatch(msg)
		case "PING":
			_ = t.writeLine("PONG :" + msg.Trailing)
		}
	}
}

func containsAuthFailure(text string) bool {
	return containsFold(text, "login authentication failed") ||
		containsFold(text, "improperly formatted auth")
}

// readLoop is ConnectionIO's always-on reader: one line in, one parsed
// message dispatched, until the transport errors or Disconnect is called.
func (c *Client) readLoop(ctx context.Context, t transport) {
	defer c.readerWG.Done()
	for {
		line, err := t.readLine()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			c.handleDrop(err)
			return
		}

		msg := ParseMessage(line)
		if msg == nil {
			continue
		}
		c.logger.Trace("<- %s", line)

		if msg.Command == "PING" {
			c.writeLineDirect(t, "PONG :"+msg.Trailing)
			continue
		}

		c.dispatch(msg)
	}
}

// writeLine writes line straight to the current transport, without any
// queue; CommandAPI primitives get rate limiting by calling it from inside
// one of the three queues.
func (c *Client) writeLine(line string) {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return
	}
	c.writeLineDirect(t, line)
}

func (c *Client) writeLineDirect(t transport, line string) {
	c.logger.Trace("-> %s", line)
	if err := t.writeLine(line); err != nil {
		c.logger.Warn("write failed: %v", err)
	}
}

// Disconnect closes the connection deliberately: it marks wasCloseCalled
// (suppressing reconnect), cancels the reader and queue workers, and
// closes the transport, per spec.md §5.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	t := c.transport
	cancel := c.cancel
	c.mu.Unlock()
	if t == nil {
		return errNotConnected("disconnect", "")
	}

	c.state.mu.Lock()
	c.state.wasCloseCalled = true
	c.state.mu.Unlock()

	c.teardown(t, cancel)
	c.state.setReadyState(StateClosed)
	c.Emit("disconnected", "Connection closed.")
	return nil
}

func (c *Client) teardown(t transport, cancel context.CancelFunc) {
	c.state.setReadyState(StateClosing)
	if cancel != nil {
		cancel()
	}
	_ = t.close()
	c.readerWG.Wait()
	if c.joinQueue != nil {
		c.joinQueue.Stop()
	}
	if c.privmsgQueue != nil {
		c.privmsgQueue.Stop()
	}
	if c.modQueue != nil {
		c.modQueue.Stop()
	}
	c.mu.Lock()
	c.transport = nil
	c.cancel = nil
	c.mu.Unlock()
}

func containsFold(haystack, needle string) bool {
	h, n := []rune(haystack), []rune(needle)
	if len(n) == 0 || len(n) > len(h) {
		return len(n) == 0
	}
	toLower := func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			if toLower(h[i+j]) != toLower(n[j]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
