package irc

import "time"

// Transport selects which ConnectionIO implementation a Client dials with.
// TransportTLS is the spec default (a raw, line-framed TLS socket);
// TransportWebSocket is the alternate real Twitch TMI endpoint the teacher
// dials (wss://irc-ws.chat.twitch.tv:443).
type Transport int

const (
	TransportTLS Transport = iota
	TransportWebSocket
)

// Connection groups the options from spec.md §6's connection.* namespace.
type Connection struct {
	Server    string
	Port      int
	Secure    bool
	Transport Transport

	Reconnect            bool
	ReconnectInterval     time.Duration
	ReconnectDecay        float64
	MaxReconnectInterval  time.Duration
	MaxReconnectAttempts  int

	Timeout        time.Duration
	CommandTimeout time.Duration
}

// Options groups rate-limit tuning and logging knobs from spec.md §6.
type Options struct {
	JoinInterval    time.Duration
	MessageInterval time.Duration
	CommandInterval time.Duration

	LogLevel         Level
	MessagesLogLevel Level
}

// Config is the full configuration for a Client, grouped to match
// spec.md §6's option namespaces (identity.*, connection.*, channels,
// logging.*) — adopted from tmigo's ClientOptions{Options, Connection,
// Identity, Channels, Logger} grouping (other_examples's
// Ktnuity-tmigo__types.go.go), applied through the teacher's own
// functional-options mechanism (irc/client.go's Option func(*Client)).
type Config struct {
	Identity   Identity
	Connection Connection
	Options    Options
	Channels   []string
	Logger     *Logger
}

// Option configures a Config. Applied in NewClient, mirroring the
// teacher's WithURL/WithAutoReconnect/... pattern.
type Option func(*Config)

// WithIdentity sets the authenticated (or anonymous, if empty) identity.
func WithIdentity(username, password string) Option {
	return func(c *Config) {
		c.Identity.Username = username
		c.Identity.Password = password
	}
}

// WithClientID records the identity's client_id (unused by the core, per
// spec.md §6, but carried for downstream consumers such as Helix callers).
func WithClientID(clientID string) Option {
	return func(c *Config) { c.Identity.ClientID = clientID }
}

// WithServer overrides the server address and port.
func WithServer(server string, port int) Option {
	return func(c *Config) {
		c.Connection.Server = server
		c.Connection.Port = port
	}
}

// WithSecure toggles TLS.
func WithSecure(secure bool) Option {
	return func(c *Config) { c.Connection.Secure = secure }
}

// WithTransport selects the ConnectionIO implementation.
func WithTransport(t Transport) Option {
	return func(c *Config) { c.Connection.Transport = t }
}

// WithReconnect toggles automatic reconnection; WithReconnectBackoff sets
// the backoff parameters.
func WithReconnect(enabled bool) Option {
	return func(c *Config) { c.Connection.Reconnect = enabled }
}

// WithReconnectBackoff overrides the backoff schedule.
func WithReconnectBackoff(interval time.Duration, decay float64, max time.Duration, maxAttempts int) Option {
	return func(c *Config) {
		c.Connection.ReconnectInterval = interval
		c.Connection.ReconnectDecay = decay
		c.Connection.MaxReconnectInterval = max
		c.Connection.MaxReconnectAttempts = maxAttempts
	}
}

// WithTimeout overrides the handshake timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Connection.Timeout = d }
}

// WithCommandTimeout overrides the CommandAPI correlation timeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Config) { c.Connection.CommandTimeout = d }
}

// WithChannels sets the channels to join on connect.
func WithChannels(channels ...string) Option {
	return func(c *Config) { c.Channels = channels }
}

// WithRateLimits overrides the three queue spacing intervals.
func WithRateLimits(join, message, command time.Duration) Option {
	return func(c *Config) {
		c.Options.JoinInterval = join
		c.Options.MessageInterval = message
		c.Options.CommandInterval = command
	}
}

// WithLogLevel sets the logging threshold, which NewClient applies to the
// Logger, and stores messagesLevel in Options.MessagesLogLevel. Nothing in
// the client reads MessagesLogLevel: raw line traffic is logged at trace
// level under the general threshold.
func WithLogLevel(level, messagesLevel Level) Option {
	return func(c *Config) {
		c.Options.LogLevel = level
		c.Options.MessagesLogLevel = messagesLevel
	}
}

// WithLogger replaces the default Logger.
func WithLogger(l *Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// defaultConfig returns the spec.md §6 defaults.
func defaultConfig() Config {
	return Config{
		Connection: Connection{
			Server:               "irc.chat.twitch.tv",
			Port:                 6697,
			Secure:               true,
			Transport:            TransportTLS,
			Reconnect:            true,
			ReconnectInterval:    1200 * time.Millisecond,
			ReconnectDecay:       1.5,
			MaxReconnectInterval: 30000 * time.Millisecond,
			MaxReconnectAttempts: -1, // unbounded
			Timeout:              9999 * time.Millisecond,
			CommandTimeout:       10000 * time.Millisecond,
		},
		Options: Options{
			JoinInterval:     2000 * time.Millisecond,
			MessageInterval:  1500 * time.Millisecond / 30,
			CommandInterval:  150 * time.Millisecond,
			LogLevel:         LevelInfo,
			MessagesLogLevel: LevelInfo,
		},
	}
}
