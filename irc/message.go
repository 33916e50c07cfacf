package irc

import "time"

// Message is the result of parsing a single wire line, per spec.md §3.
// It is created only by the parser. The Dispatcher derives structured
// badges/badge-info/emotes fields from the raw tags before events
// referencing it are emitted, alongside the original tag strings rather
// than replacing them, so listeners can choose either representation.
type Message struct {
	Raw      string
	Tags     map[string]string
	Prefix   string
	Command  string
	Params   []string
	Trailing string
	hasTrailing bool

	badges    map[string]string
	badgeInfo map[string]string
	emotes    map[string][]EmotePosition
}

// Param returns the i-th positional parameter, or "" if absent.
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// Channel returns the first parameter canonicalized as a channel name, or
// "" if there are no parameters.
func (m *Message) Channel() string {
	if len(m.Params) == 0 {
		return ""
	}
	return normalizeChannel(m.Params[0])
}

// Badges returns the parsed "badges" tag, or an empty map before
// enrichTags has run.
func (m *Message) Badges() map[string]string {
	if m.badges == nil {
		return map[string]string{}
	}
	return m.badges
}

// BadgeInfo returns the parsed "badge-info" tag (e.g. sub-months).
func (m *Message) BadgeInfo() map[string]string {
	if m.badgeInfo == nil {
		return map[string]string{}
	}
	return m.badgeInfo
}

// EmoteRanges returns the parsed "emotes" tag.
func (m *Message) EmoteRanges() map[string][]EmotePosition {
	if m.emotes == nil {
		return map[string][]EmotePosition{}
	}
	return m.emotes
}

// Nick extracts the nickname from an IRC prefix of the form nick!user@host.
func Nick(prefix string) string {
	for i := 0; i < len(prefix); i++ {
		if prefix[i] == '!' {
			return prefix[:i]
		}
	}
	return prefix
}

// Badges splits a "badges" or "badge-info" tag value ("admin/1,bits/100")
// into a key->version map, per spec.md §4.1's tag post-processors.
func Badges(raw string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}
	for _, entry := range splitNonEmpty(raw, ',') {
		key, value := splitOnce(entry, '/')
		out[key] = value
	}
	return out
}

// EmotePosition is one occurrence of an emote within a message's text.
type EmotePosition struct {
	Start int
	End   int
}

// Emotes parses an "emotes" tag value ("25:0-4,6-10/1902:12-16") into a
// mapping from emote id to the list of [start,end] ranges it occupies.
func Emotes(raw string) map[string][]EmotePosition {
	out := map[string][]EmotePosition{}
	if raw == "" {
		return out
	}
	for _, part := range splitNonEmpty(raw, '/') {
		id, positions := splitOnce(part, ':')
		if id == "" {
			continue
		}
		var ranges []EmotePosition
		for _, p := range splitNonEmpty(positions, ',') {
			startStr, endStr := splitOnce(p, '-')
			start, ok1 := parseIntStrict(startStr)
			end, ok2 := parseIntStrict(endStr)
			if !ok1 || !ok2 {
				continue
			}
			ranges = append(ranges, EmotePosition{Start: start, End: end})
		}
		if len(ranges) > 0 {
			out[id] = ranges
		}
	}
	return out
}

// TagBool coerces a "0"/"1" tag value to bool, per spec.md §4.1.
func TagBool(tags map[string]string, key string) bool {
	return tags[key] == "1"
}

// TagInt coerces a numeric tag value to int, returning 0 on absence or
// malformed input.
func TagInt(tags map[string]string, key string) int {
	n, _ := parseIntStrict(tags[key])
	return n
}

// TagTime parses a tmi-sent-ts millisecond-epoch tag into a time.Time.
func TagTime(tags map[string]string, key string) time.Time {
	ms, ok := parseIntStrict(tags[key])
	if !ok {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}
