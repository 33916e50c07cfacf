package irc

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// maxMessageBytes is Twitch's practical PRIVMSG length ceiling; say/action
// chunk on a UTF-8 boundary at or below it, per spec.md §4.6's pagination
// note, grounded on tmigo's Say() chunking (other_examples's
// Ktnuity-tmigo__client.go.go).
const maxMessageBytes = 500

// commandAliases maps twitch-js-style aliases to their canonical primitive,
// per spec.md §4.6's alias table.
var commandAliases = map[string]string{
	"followersmode": "followersonly", "followersmodeoff": "followersonlyoff",
	"slowmode": "slow", "slowmodeoff": "slowoff",
	"r9kmode": "r9kbeta", "r9kmodeoff": "r9kbetaoff",
	"uniquechat": "r9kbeta", "uniquechatoff": "r9kbetaoff",
	"leave": "part",
}

func canonicalCommand(name string) string {
	if canon, ok := commandAliases[name]; ok {
		return canon
	}
	return name
}

// checkSendable enforces spec.md §4.6's preconditions common to every
// CommandAPI primitive: readyState must be OPEN, and an anonymous identity
// may not issue a restricted command.
func (c *Client) checkSendable(command, channel string) error {
	canon := canonicalCommand(command)
	if c.state.getReadyState() != StateOpen {
		return errNotConnected(command, channel)
	}
	if restrictedCommands[canon] && c.cfg.Identity.IsAnonymous() {
		return errAnonymous(command, channel)
	}
	return nil
}

// commandCtx derives a context bounded by Connection.CommandTimeout when
// the caller's context carries no earlier deadline.
func (c *Client) commandCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.Connection.CommandTimeout)
}

// sendFireAndForget enqueues line on queue and resolves once it has been
// written, without waiting for any correlated NOTICE. Used by primitives
// Twitch does not ack on success (say, action, reply, whisper, join, part).
func (c *Client) sendFireAndForget(ctx context.Context, queue *MessageQueue, command, channel, line string) error {
	if err := c.checkSendable(command, channel); err != nil {
		return err
	}
	ctx, cancel := c.commandCtx(ctx)
	defer cancel()

	done := queue.Add(func() { c.writeLine(line) }, 0)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errCommandTimeout(command, channel)
	}
}

// promiseResult is one correlated NOTICE outcome for sendAndConfirm.
type promiseResult struct {
	ok     bool
	msgID  string
	notice string
}

// sendAndConfirm enqueues line on the moderation queue and blocks until a
// NOTICE correlated to channel resolves or rejects the command, per
// spec.md §4.3.2/§4.6. It is the CommandAPI template for every primitive
// that expects a server acknowledgement.
func (c *Client) sendAndConfirm(ctx context.Context, command, channel, line string) (*promiseResult, error) {
	if err := c.checkSendable(command, channel); err != nil {
		return nil, err
	}
	ctx, cancel := c.commandCtx(ctx)
	defer cancel()

	resultCh := make(chan *promiseResult, 1)
	var resolveID, rejectID, unknownID string
	deregisterAll := func() {
		c.Off("_promiseResolve", resolveID)
		c.Off("_promiseReject", rejectID)
		c.Off("_unknownCommand", unknownID)
	}
	resolveID = c.On("_promiseResolve", func(args ...any) error {
		ch, msgID, notice := args[0].(string), args[1].(string), args[2].(string)
		if ch != channel {
			return nil
		}
		select {
		case resultCh <- &promiseResult{ok: true, msgID: msgID, notice: notice}:
			deregisterAll()
		default:
		}
		return nil
	})
	rejectID = c.On("_promiseReject", func(args ...any) error {
		ch, msgID, notice := args[0].(string), args[1].(string), args[2].(string)
		if ch != channel {
			return nil
		}
		select {
		case resultCh <- &promiseResult{ok: false, msgID: msgID, notice: notice}:
			deregisterAll()
		default:
		}
		return nil
	})
	// A 421 ERR_UNKNOWNCOMMAND carries no channel (spec.md §4.3's numeric
	// replies are connection-scoped, not channel-scoped), so it fails
	// whichever command is currently awaiting confirmation rather than
	// being matched by channel, per spec.md §4.3's "resolve corresponding
	// pending command as failure."
	unknownID = c.On("_unknownCommand", func(args ...any) error {
		notice := args[1].(string)
		select {
		case resultCh <- &promiseResult{ok: false, msgID: "unknown_command", notice: notice}:
			deregisterAll()
		default:
		}
		return nil
	})

	c.modQueue.Add(func() { c.writeLine(line) }, 0)

	select {
	case result := <-resultCh:
		if !result.ok {
			return result, errCommandFailed(command, channel, result.msgID)
		}
		return result, nil
	case <-ctx.Done():
		deregisterAll()
		return nil, errCommandTimeout(command, channel)
	}
}

func chunkMessage(text string) []string {
	if len(text) <= maxMessageBytes {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxMessageBytes {
			chunks = append(chunks, text)
			break
		}
		cut := maxMessageBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return chunks
}

// Say sends a channel chat message, paginating at maxMessageBytes on a
// UTF-8 boundary.
func (c *Client) Say(ctx context.Context, channel, message string) error {
	channel = normalizeChannel(channel)
	for _, chunk := range chunkMessage(message) {
		line := fmt.Sprintf("PRIVMSG %s :%s", channel, chunk)
		if err := c.sendFireAndForget(ctx, c.privmsgQueue, "say", channel, line); err != nil {
			return err
		}
	}
	return nil
}

// Action sends a /me-style action message, paginated like Say.
func (c *Client) Action(ctx context.Context, channel, message string) error {
	channel = normalizeChannel(channel)
	for _, chunk := range chunkMessage(message) {
		line := fmt.Sprintf("PRIVMSG %s :\x01ACTION %s\x01", channel, chunk)
		if err := c.sendFireAndForget(ctx, c.privmsgQueue, "action", channel, line); err != nil {
			return err
		}
	}
	return nil
}

// Reply sends a threaded reply to parentMsgID.
func (c *Client) Reply(ctx context.Context, channel, parentMsgID, message string) error {
	channel = normalizeChannel(channel)
	line := fmt.Sprintf("@reply-parent-msg-id=%s PRIVMSG %s :%s", parentMsgID, channel, message)
	return c.sendFireAndForget(ctx, c.privmsgQueue, "reply", channel, line)
}

// Whisper sends a private message to username via PRIVMSG #jtv.
func (c *Client) Whisper(ctx context.Context, username, message string) error {
	line := fmt.Sprintf("PRIVMSG #jtv :/w %s %s", strings.ToLower(username), message)
	return c.sendFireAndForget(ctx, c.privmsgQueue, "whisper", "", line)
}

// Join enqueues a channel join and waits for the queue to process it; it
// does not block for ROOMSTATE/USERSTATE since Twitch never NOTICEs a
// successful JOIN.
func (c *Client) Join(ctx context.Context, channel string) error {
	channel = normalizeChannel(channel)
	return c.sendFireAndForget(ctx, c.joinQueue, "join", channel, "JOIN "+channel)
}

// Part leaves channel.
func (c *Client) Part(ctx context.Context, channel string) error {
	channel = normalizeChannel(channel)
	err := c.sendFireAndForget(ctx, c.joinQueue, "part", channel, "PART "+channel)
	if err == nil {
		c.state.removeChannel(channel)
	}
	return err
}

// Ping round-trips a PING/PONG pair and reports the measured latency.
func (c *Client) Ping(ctx context.Context) (float64, error) {
	if c.state.getReadyState() != StateOpen {
		return 0, errNotConnected("ping", "")
	}
	ctx, cancel := c.commandCtx(ctx)
	defer cancel()

	token := newListenerID()
	start := time.Now()
	c.writeLine("PING :" + token)

	_, err := c.WaitFor(ctx, "pong", func(args []any) bool {
		got, ok := args[0].(string)
		return ok && got == token
	})
	if err != nil {
		return 0, errCommandTimeout("ping", "")
	}

	latency := time.Since(start).Seconds()
	c.state.setLatency(latency)
	return latency, nil
}

// Raw sends an unmodified line, bypassing every queue. Use with care: it
// bypasses rate limiting entirely, per spec.md §4.6.
func (c *Client) Raw(line string) error {
	if c.state.getReadyState() != StateOpen {
		return errNotConnected("raw", "")
	}
	c.writeLine(line)
	return nil
}

func (c *Client) modCommand(ctx context.Context, command, channel, line string) error {
	channel = normalizeChannel(channel)
	_, err := c.sendAndConfirm(ctx, command, channel, line)
	return err
}

// Ban permanently bans username from channel.
func (c *Client) Ban(ctx context.Context, channel, username, reason string) error {
	line := fmt.Sprintf("PRIVMSG %s :/ban %s %s", normalizeChannel(channel), username, reason)
	return c.modCommand(ctx, "ban", channel, line)
}

// Unban lifts a ban on username in channel.
func (c *Client) Unban(ctx context.Context, channel, username string) error {
	line := fmt.Sprintf("PRIVMSG %s :/unban %s", normalizeChannel(channel), username)
	return c.modCommand(ctx, "unban", channel, line)
}

// Timeout suspends username from channel for duration (seconds).
func (c *Client) Timeout(ctx context.Context, channel, username string, seconds int, reason string) error {
	line := fmt.Sprintf("PRIVMSG %s :/timeout %s %d %s", normalizeChannel(channel), username, seconds, reason)
	return c.modCommand(ctx, "timeout", channel, line)
}

// Untimeout lifts an active timeout on username.
func (c *Client) Untimeout(ctx context.Context, channel, username string) error {
	line := fmt.Sprintf("PRIVMSG %s :/untimeout %s", normalizeChannel(channel), username)
	return c.modCommand(ctx, "untimeout", channel, line)
}

// Slow enables slow mode with the given minimum interval in seconds.
func (c *Client) Slow(ctx context.Context, channel string, seconds int) error {
	line := fmt.Sprintf("PRIVMSG %s :/slow %d", normalizeChannel(channel), seconds)
	return c.modCommand(ctx, "slow", channel, line)
}

// SlowOff disables slow mode.
func (c *Client) SlowOff(ctx context.Context, channel string) error {
	line := fmt.Sprintf("PRIVMSG %s :/slowoff", normalizeChannel(channel))
	return c.modCommand(ctx, "slowoff", channel, line)
}

// FollowersOnly restricts chat to followers of at least minutes' standing
// (0 for any follower).
func (c *Client) FollowersOnly(ctx context.Context, channel string, minutes int) error {
	line := fmt.Sprintf("PRIVMSG %s :/followers %d", normalizeChannel(channel), minutes)
	return c.modCommand(ctx, "followersonly", channel, line)
}

// FollowersOnlyOff disables followers-only mode.
func (c *Client) FollowersOnlyOff(ctx context.Context, channel string) error {
	line := fmt.Sprintf("PRIVMSG %s :/followersoff", normalizeChannel(channel))
	return c.modCommand(ctx, "followersonlyoff", channel, line)
}

// EmoteOnly restricts chat to emotes only.
func (c *Client) EmoteOnly(ctx context.Context, channel string) error {
	line := fmt.Sprintf("PRIVMSG %s :/emoteonly", normalizeChannel(channel))
	return c.modCommand(ctx, "emoteonly", channel, line)
}

// EmoteOnlyOff disables emote-only mode.
func (c *Client) EmoteOnlyOff(ctx context.Context, channel string) error {
	line := fmt.Sprintf("PRIVMSG %s :/emoteonlyoff", normalizeChannel(channel))
	return c.modCommand(ctx, "emoteonlyoff", channel, line)
}

// Subscribers restricts chat to subscribers only.
func (c *Client) Subscribers(ctx context.Context, channel string) error {
	line := fmt.Sprintf("PRIVMSG %s :/subscribers", normalizeChannel(channel))
	return c.modCommand(ctx, "subscribers", channel, line)
}

// SubscribersOff disables subscribers-only mode.
func (c *Client) SubscribersOff(ctx context.Context, channel string) error {
	line := fmt.Sprintf("PRIVMSG %s :/subscribersoff", normalizeChannel(channel))
	return c.modCommand(ctx, "subscribersoff", channel, line)
}

// R9kBeta enables unique-message (r9k) mode.
func (c *Client) R9kBeta(ctx context.Context, channel string) error {
	line := fmt.Sprintf("PRIVMSG %s :/r9kbeta", normalizeChannel(channel))
	return c.modCommand(ctx, "r9kbeta", channel, line)
}

// R9kBetaOff disables r9k mode.
func (c *Client) R9kBetaOff(ctx context.Context, channel string) error {
	line := fmt.Sprintf("PRIVMSG %s :/r9kbetaoff", normalizeChannel(channel))
	return c.modCommand(ctx, "r9kbetaoff", channel, line)
}

// Clear clears a channel's chat history from view.
func (c *Client) Clear(ctx context.Context, channel string) error {
	line := fmt.Sprintf("PRIVMSG %s :/clear", normalizeChannel(channel))
	return c.modCommand(ctx, "clear", channel, line)
}

// DeleteMessage deletes a single message by its msg-id.
func (c *Client) DeleteMessage(ctx context.Context, channel, msgID string) error {
	line := fmt.Sprintf("PRIVMSG %s :/delete %s", normalizeChannel(channel), msgID)
	return c.modCommand(ctx, "deletemessage", channel, line)
}

// Mod grants username moderator status in channel.
func (c *Client) Mod(ctx context.Context, channel, username string) error {
	line := fmt.Sprintf("PRIVMSG %s :/mod %s", normalizeChannel(channel), username)
	return c.modCommand(ctx, "mod", channel, line)
}

// Unmod revokes username's moderator status.
func (c *Client) Unmod(ctx context.Context, channel, username string) error {
	line := fmt.Sprintf("PRIVMSG %s :/unmod %s", normalizeChannel(channel), username)
	return c.modCommand(ctx, "unmod", channel, line)
}

// Vip grants username VIP status.
func (c *Client) Vip(ctx context.Context, channel, username string) error {
	line := fmt.Sprintf("PRIVMSG %s :/vip %s", normalizeChannel(channel), username)
	return c.modCommand(ctx, "vip", channel, line)
}

// Unvip revokes username's VIP status.
func (c *Client) Unvip(ctx context.Context, channel, username string) error {
	line := fmt.Sprintf("PRIVMSG %s :/unvip %s", normalizeChannel(channel), username)
	return c.modCommand(ctx, "unvip", channel, line)
}

// Mods returns the channel's moderators, parsed from the room_mods NOTICE.
// Twitch's wording is not a stable contract, so parsing is best-effort
// (see DESIGN.md's Open Question decisions); callers should prefer the
// jtv MODE-derived ChannelState.Moderators when availability matters more
// than freshness.
func (c *Client) Mods(ctx context.Context, channel string) ([]string, error) {
	line := fmt.Sprintf("PRIVMSG %s :/mods", normalizeChannel(channel))
	result, err := c.sendAndConfirm(ctx, "mods", normalizeChannel(channel), line)
	if err != nil {
		return nil, err
	}
	return parseNamesNotice(result.notice), nil
}

// Vips returns the channel's VIPs, parsed from the vips_success NOTICE.
func (c *Client) Vips(ctx context.Context, channel string) ([]string, error) {
	line := fmt.Sprintf("PRIVMSG %s :/vips", normalizeChannel(channel))
	result, err := c.sendAndConfirm(ctx, "vips", normalizeChannel(channel), line)
	if err != nil {
		return nil, err
	}
	return parseNamesNotice(result.notice), nil
}

// parseNamesNotice extracts a comma-separated name list from a
// "The moderators of this channel are: a, b, c" / similarly shaped vips
// NOTICE body.
func parseNamesNotice(notice string) []string {
	_, rest := splitOnce(notice, ':')
	if rest == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(rest, ",") {
		name := strings.TrimSpace(part)
		name = strings.TrimSuffix(name, ".")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Host makes channel host target.
func (c *Client) Host(ctx context.Context, channel, target string) error {
	line := fmt.Sprintf("PRIVMSG %s :/host %s", normalizeChannel(channel), target)
	return c.modCommand(ctx, "host", channel, line)
}

// Unhost stops channel's current host.
func (c *Client) Unhost(ctx context.Context, channel string) error {
	line := fmt.Sprintf("PRIVMSG %s :/unhost", normalizeChannel(channel))
	return c.modCommand(ctx, "unhost", channel, line)
}

// Commercial runs a commercial break of the given length in seconds.
func (c *Client) Commercial(ctx context.Context, channel string, seconds int) error {
	line := fmt.Sprintf("PRIVMSG %s :/commercial %d", normalizeChannel(channel), seconds)
	return c.modCommand(ctx, "commercial", channel, line)
}

// The following are pure renamings of the primitives above, kept for
// parity with the naming twitch-js and tmigo users expect (spec.md §4.6's
// alias table; commandAliases records the mapping).

// FollowersMode is an alias for FollowersOnly.
func (c *Client) FollowersMode(ctx context.Context, channel string, minutes int) error {
	return c.FollowersOnly(ctx, channel, minutes)
}

// FollowersModeOff is an alias for FollowersOnlyOff.
func (c *Client) FollowersModeOff(ctx context.Context, channel string) error {
	return c.FollowersOnlyOff(ctx, channel)
}

// SlowMode is an alias for Slow.
func (c *Client) SlowMode(ctx context.Context, channel string, seconds int) error {
	return c.Slow(ctx, channel, seconds)
}

// SlowModeOff is an alias for SlowOff.
func (c *Client) SlowModeOff(ctx context.Context, channel string) error {
	return c.SlowOff(ctx, channel)
}

// R9kMode is an alias for R9kBeta.
func (c *Client) R9kMode(ctx context.Context, channel string) error {
	return c.R9kBeta(ctx, channel)
}

// R9kModeOff is an alias for R9kBetaOff.
func (c *Client) R9kModeOff(ctx context.Context, channel string) error {
	return c.R9kBetaOff(ctx, channel)
}

// UniqueChat is an alias for R9kBeta: Twitch renamed r9k mode to "unique
// chat" in its UI without changing the IRC command.
func (c *Client) UniqueChat(ctx context.Context, channel string) error {
	return c.R9kBeta(ctx, channel)
}

// UniqueChatOff is an alias for R9kBetaOff.
func (c *Client) UniqueChatOff(ctx context.Context, channel string) error {
	return c.R9kBetaOff(ctx, channel)
}

// Leave is an alias for Part.
func (c *Client) Leave(ctx context.Context, channel string) error {
	return c.Part(ctx, channel)
}
