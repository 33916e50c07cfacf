package irc

import (
	"strconv"
	"strings"
	"time"
)

// channelScopedCommands emit data tied to a specific channel's state and
// must not fire before that channel's roomstate snapshot exists, per
// spec.md §3's ordering invariant. JOIN/PART/ROOMSTATE itself are exempt:
// JOIN precedes ROOMSTATE by protocol, and ROOMSTATE is what establishes
// the snapshot in the first place.
var channelScopedCommands = map[string]bool{
	"PRIVMSG": true, "USERNOTICE": true, "USERSTATE": true,
	"CLEARCHAT": true, "CLEARMSG": true, "HOSTTARGET": true, "MODE": true,
}

// dispatch is the Dispatcher component: tag post-processing followed by
// command routing, per spec.md §4.3. It runs on the reader goroutine, so
// listeners that block delay all further message processing — the same
// contract the teacher's own onMessage switch carries (irc/client.go).
func (c *Client) dispatch(msg *Message) {
	c.enrichTags(msg)

	if channelScopedCommands[msg.Command] {
		channel := msg.Channel()
		if channel != "" && !c.state.hasRoomState(channel) {
			c.bufferUntilRoomstate(channel, msg)
			return
		}
	}

	switch msg.Command {
	case "001":
		// handled synchronously in waitWelcome; nothing further to do here.
	case "PING":
		// handled in readLoop before dispatch is ever reached.
	case "PONG":
		c.Emit("pong", msg.Trailing)
	case "JOIN":
		c.onJoin(msg)
	case "PART":
		c.onPart(msg)
	case "PRIVMSG":
		c.onPrivmsg(msg)
	case "WHISPER":
		c.onWhisper(msg)
	case "NOTICE":
		c.onNotice(msg)
	case "USERNOTICE":
		c.onUsernotice(msg)
	case "ROOMSTATE":
		c.onRoomstate(msg)
	case "USERSTATE":
		c.onUserstate(msg)
	case "GLOBALUSERSTATE":
		c.onGlobalUserstate(msg)
	case "CLEARCHAT":
		c.onClearchat(msg)
	case "CLEARMSG":
		c.onClearmsg(msg)
	case "HOSTTARGET":
		c.onHosttarget(msg)
	case "RECONNECT":
		// Twitch is about to cycle this connection; close the transport
		// without setting wasCloseCalled so handleDrop runs the normal
		// supervisor backoff instead of staying down.
		c.Emit("reconnect")
		c.mu.Lock()
		t := c.transport
		c.mu.Unlock()
		if t != nil {
			go func() { _ = t.close() }()
		}
	case "421":
		c.Emit("_unknownCommand", msg.Param(1), msg.Trailing)
	case "MODE":
		c.onMode(msg)
	default:
		c.Emit("raw_message", msg)
	}
}

// bufferUntilRoomstate holds a channel-scoped message that arrived ahead of
// that channel's first ROOMSTATE, to be replayed once onRoomstate
// establishes the snapshot. This only happens transiently right after JOIN,
// since Twitch sends ROOMSTATE immediately on joining a channel.
func (c *Client) bufferUntilRoomstate(channel string, msg *Message) {
	c.pendingMu.Lock()
	c.pendingByChan[channel] = append(c.pendingByChan[channel], msg)
	c.pendingMu.Unlock()
}

// flushPending replays, in arrival order, any messages bufferUntilRoomstate
// held back for channel now that its roomstate snapshot exists.
func (c *Client) flushPending(channel string) {
	c.pendingMu.Lock()
	pending := c.pendingByChan[channel]
	delete(c.pendingByChan, channel)
	c.pendingMu.Unlock()

	for _, msg := range pending {
		c.dispatch(msg)
	}
}

// enrichTags applies spec.md §4.1's tag post-processors, populating msg's
// structured badges/badge-info/emotes fields (exposed via Message.Badges,
// BadgeInfo, EmoteRanges) without touching the raw Tags map, so listeners
// can use either representation.
func (c *Client) enrichTags(msg *Message) {
	if msg.Tags == nil {
		return
	}
	if raw, ok := msg.Tags["badges"]; ok {
		msg.badges = Badges(raw)
	}
	if raw, ok := msg.Tags["badge-info"]; ok {
		msg.badgeInfo = Badges(raw)
	}
	if raw, ok := msg.Tags["emotes"]; ok {
		msg.emotes = Emotes(raw)
	}
}

func (c *Client) onJoin(msg *Message) {
	channel := msg.Channel()
	nick := Nick(msg.Prefix)
	if strings.EqualFold(nick, c.cfg.Identity.Username) {
		c.state.channel(channel, true)
	}
	c.Emit("join", channel, nick, nick == c.cfg.Identity.Username)
}

func (c *Client) onPart(msg *Message) {
	channel := msg.Channel()
	nick := Nick(msg.Prefix)
	self := strings.EqualFold(nick, c.cfg.Identity.Username)
	if self {
		c.state.removeChannel(channel)
		c.pendingMu.Lock()
		delete(c.pendingByChan, channel)
		c.pendingMu.Unlock()
	}
	c.Emit("part", channel, nick, self)
}

func (c *Client) onPrivmsg(msg *Message) {
	channel := msg.Channel()
	nick := Nick(msg.Prefix)
	text := msg.Trailing
	self := strings.EqualFold(nick, c.cfg.Identity.Username)

	// badges/emotes are passed alongside the raw tag map rather than folded
	// into it, per spec.md §3's "consumers can choose their fidelity."
	badges := msg.Badges()
	emotes := msg.EmoteRanges()

	if strings.HasPrefix(text, "\x01ACTION ") && strings.HasSuffix(text, "\x01") {
		action := text[8 : len(text)-1]
		c.Emit("action", channel, msg.Tags, action, self, badges, emotes)
		return
	}

	if bits := TagInt(msg.Tags, "bits"); bits > 0 {
		c.Emit("cheer", channel, msg.Tags, text, badges)
	}

	if customRewardID, ok := msg.Tags["custom-reward-id"]; ok && customRewardID != "" {
		c.Emit("redeem", channel, msg.Tags, text)
	}

	c.Emit("message", channel, msg.Tags, text, self, badges, emotes)
	c.Emit("chat", channel, msg.Tags, text, self, badges, emotes)
}

func (c *Client) onWhisper(msg *Message) {
	from := Nick(msg.Prefix)
	self := strings.EqualFold(from, c.cfg.Identity.Username)
	c.Emit("whisper", from, msg.Tags, msg.Trailing, self)
}

// noticeSuccessIDs classifies a NOTICE msg-id into a promise resolution
// outcome, per spec.md §4.3.2's correlation table. Unknown msg-ids are
// treated as command-failed verbatim (see DESIGN.md's Open Question
// decisions).
var noticeSuccessIDs = map[string]bool{
	"ban_success": true, "unban_success": true, "timeout_success": true,
	"untimeout_success": true, "delete_message_success": true,
	"host_on": true, "host_off": true, "host_target_went_offline": true,
	"slow_on": true, "slow_off": true, "followers_on": true,
	"followers_on_zero": true, "followers_off": true,
	"emote_only_on": true, "emote_only_off": true,
	"subs_on": true, "subs_off": true, "r9k_on": true, "r9k_off": true,
	"room_mods": true, "no_mods": true, "vips_success": true, "no_vips": true,
	"mod_success": true, "unmod_success": true, "vip_success": true,
	"unvip_success": true, "commercial_success": true, "clear_chat": true,
	"unique_chat_on": true, "unique_chat_off": true,
}

func (c *Client) onNotice(msg *Message) {
	msgID := msg.Tags["msg-id"]
	channel := msg.Channel()

	if msgID != "" {
		if noticeSuccessIDs[msgID] {
			c.Emit("_promiseResolve", channel, msgID, msg.Trailing)
		} else {
			c.Emit("_promiseReject", channel, msgID, msg.Trailing)
		}
	}

	c.Emit("notice", channel, msgID, msg.Trailing)
}

func (c *Client) onUsernotice(msg *Message) {
	channel := msg.Channel()
	subType := msg.Tags["msg-id"]
	c.Emit("usernotice", channel, msg.Tags, msg.Trailing)

	switch subType {
	case "sub", "resub":
		c.Emit("subscription", channel, msg.Tags, msg.Trailing, msg.BadgeInfo())
	case "subgift", "anonsubgift":
		c.Emit("subgift", channel, msg.Tags, msg.Trailing)
	case "submysterygift":
		c.Emit("submysterygift", channel, msg.Tags)
	case "raid":
		c.Emit("raided", channel, msg.Tags["msg-param-displayName"], TagInt(msg.Tags, "msg-param-viewerCount"))
	case "unraid":
		c.Emit("unraid", channel, msg.Tags)
	case "ritual":
		c.Emit("ritual", channel, msg.Tags, msg.Trailing)
	case "announcement":
		c.Emit("announcement", channel, msg.Tags, msg.Trailing)
	case "bitsbadgetier":
		c.Emit("bitsbadgetier", channel, msg.Tags, msg.Trailing)
	}
}

func (c *Client) onRoomstate(msg *Message) {
	channel := msg.Channel()
	ch := c.state.channel(channel, true)

	c.state.mu.Lock()
	prev := ch.RoomState
	next := make(map[string]string, len(prev)+len(msg.Tags))
	for k, v := range prev {
		next[k] = v
	}
	for k, v := range msg.Tags {
		next[k] = v
	}
	ch.RoomState = next
	c.state.mu.Unlock()

	c.Emit("roomstate", channel, msg.Tags)
	c.flushPending(channel)

	for _, field := range []string{"slow", "followers-only", "emote-only", "subs-only", "r9k"} {
		if val, ok := msg.Tags[field]; ok {
			if prevVal, existed := prev[field]; !existed || prevVal != val {
				c.emitRoomstateField(channel, field, val)
			}
		}
	}
}

func (c *Client) emitRoomstateField(channel, field, val string) {
	switch field {
	case "slow":
		seconds, _ := strconv.Atoi(val)
		if seconds > 0 {
			c.Emit("slowmode", channel, true, seconds)
		} else {
			c.Emit("slowmode", channel, false, 0)
		}
	case "followers-only":
		minutes, _ := strconv.Atoi(val)
		c.Emit("followersonly", channel, minutes >= 0, minutes)
	case "emote-only":
		c.Emit("emoteonly", channel, val == "1")
	case "subs-only":
		c.Emit("subscribers", channel, val == "1")
	case "r9k":
		c.Emit("r9kbeta", channel, val == "1")
	}
}

func (c *Client) onUserstate(msg *Message) {
	channel := msg.Channel()
	ch := c.state.channel(channel, true)
	c.state.mu.Lock()
	ch.UserState = msg.Tags
	c.state.mu.Unlock()

	if sets, ok := msg.Tags["emote-sets"]; ok {
		c.state.mu.RLock()
		changed := c.state.emoteSets != sets
		c.state.mu.RUnlock()
		if changed {
			c.state.mu.Lock()
			c.state.emoteSets = sets
			c.state.mu.Unlock()
			c.Emit("emotesets", sets)
		}
	}

	c.Emit("userstate", channel, msg.Tags)
}

func (c *Client) onGlobalUserstate(msg *Message) {
	c.state.setGlobalUserState(msg.Tags)
	c.Emit("globaluserstate", msg.Tags)
}

func (c *Client) onClearchat(msg *Message) {
	channel := msg.Channel()
	target := msg.Trailing

	if target == "" {
		c.Emit("clearchat", channel)
		return
	}

	if duration := TagInt(msg.Tags, "ban-duration"); duration > 0 {
		c.Emit("timeout", channel, target, msg.Tags, time.Duration(duration)*time.Second)
		return
	}
	c.Emit("ban", channel, target, msg.Tags)
}

func (c *Client) onClearmsg(msg *Message) {
	channel := msg.Channel()
	c.Emit("messagedeleted", channel, msg.Tags["login"], msg.Trailing, msg.Tags["target-msg-id"])
}

func (c *Client) onHosttarget(msg *Message) {
	channel := msg.Channel()
	fields := splitNonEmpty(msg.Trailing, ' ')
	if len(fields) == 0 {
		return
	}
	target := fields[0]
	viewers := 0
	if len(fields) > 1 {
		viewers, _ = strconv.Atoi(fields[1])
	}
	if target == "-" {
		c.Emit("unhost", channel, viewers)
		return
	}
	c.Emit("hosting", channel, target, viewers)
}

// onMode tracks jtv's legacy MODE +o/-o moderator announcements, per
// spec.md §4's supplemented-features note (best-effort, since Twitch no
// longer reliably emits these for all channels).
func (c *Client) onMode(msg *Message) {
	if len(msg.Params) < 3 {
		return
	}
	channel := normalizeChannel(msg.Params[0])
	modeFlag := msg.Params[1]
	nick := msg.Params[2]
	ch := c.state.channel(channel, true)

	c.state.mu.Lock()
	switch modeFlag {
	case "+o":
		ch.Moderators[nick] = true
	case "-o":
		delete(ch.Moderators, nick)
	}
	c.state.mu.Unlock()

	switch modeFlag {
	case "+o":
		c.Emit("mod", channel, nick)
	case "-o":
		c.Emit("unmod", channel, nick)
	}
}
