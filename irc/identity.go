package irc

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

var justinfanPattern = regexp.MustCompile(`^justinfan\d+$`)

// Identity is a normalized Twitch login used for one connection.
type Identity struct {
	Username string
	Password string
	ClientID string
}

// normalize lowercases the username and generates an anonymous justinfan
// identity when none is configured, mirroring the teacher's own
// lower-casing in irc.NewClient and tmigo's Justinfan() fallback.
func (id Identity) normalize() Identity {
	id.Username = strings.ToLower(strings.TrimSpace(id.Username))
	if id.Username == "" {
		id.Username = fmt.Sprintf("justinfan%d", rand.Intn(80000)+1000)
	}
	if id.Password != "" && !strings.HasPrefix(id.Password, "oauth:") {
		id.Password = "oauth:" + id.Password
	}
	return id
}

// IsAnonymous reports whether the identity is an unauthenticated justinfan
// login, per spec.md §3.
func (id Identity) IsAnonymous() bool {
	return justinfanPattern.MatchString(id.Username)
}

// normalizeChannel canonicalizes a channel name: lowercase, exactly one
// leading '#'.
func normalizeChannel(channel string) string {
	channel = strings.ToLower(strings.TrimSpace(channel))
	channel = strings.TrimPrefix(channel, "#")
	return "#" + channel
}

// restrictedCommands is the set of CommandAPI primitives forbidden to an
// anonymous (justinfan) identity: any speech, whisper, or moderation
// command, per spec.md §3/§4.6. join and part are not in the set, so an
// anonymous identity may join and leave channels.
var restrictedCommands = map[string]bool{
	"say": true, "action": true, "reply": true, "whisper": true,
	"ban": true, "unban": true, "timeout": true, "untimeout": true,
	"slow": true, "slowoff": true, "followersonly": true, "followersonlyoff": true,
	"emoteonly": true, "emoteonlyoff": true, "subscribers": true, "subscribersoff": true,
	"r9kbeta": true, "r9kbetaoff": true, "clear": true, "deletemessage": true,
	"mod": true, "unmod": true, "vip": true, "unvip": true, "mods": true, "vips": true,
	"host": true, "unhost": true, "commercial": true,
}
