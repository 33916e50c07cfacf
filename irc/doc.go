// Package irc implements a client for Twitch's IRCv3-derived chat protocol
// ("TMI"). It maintains a persistent, authenticated connection to a Twitch
// chat server, parses incoming IRC lines into typed events, and exposes a
// command API whose calls behave like request/response transactions despite
// the underlying notice-based protocol.
package irc
