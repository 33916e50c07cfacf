package irc

import (
	"testing"
)

func newTestClient() *Client {
	c := NewClient(WithIdentity("testuser", "oauth:abc"))
	c.state.setReadyState(StateOpen)
	return c
}

// joinedTestClient returns a client that has already seen a ROOMSTATE for
// #ronni, satisfying the roomstate-before-channel-events invariant that
// dispatch() otherwise enforces by buffering.
func joinedTestClient() *Client {
	c := newTestClient()
	c.dispatch(ParseMessage("ROOMSTATE #ronni"))
	return c
}

func TestDispatchPrivmsgEmitsMessageAndChat(t *testing.T) {
	c := joinedTestClient()
	var gotMessage, gotChat bool
	c.On("message", func(args ...any) error { gotMessage = true; return nil })
	c.On("chat", func(args ...any) error { gotChat = true; return nil })

	msg := ParseMessage(`@display-name=Ronni PRIVMSG #ronni :Kappa`)
	c.dispatch(msg)

	if !gotMessage || !gotChat {
		t.Errorf("message=%v chat=%v", gotMessage, gotChat)
	}
}

func TestDispatchActionIsNotMessage(t *testing.T) {
	c := joinedTestClient()
	var gotAction bool
	var gotMessage bool
	c.On("action", func(args ...any) error { gotAction = true; return nil })
	c.On("message", func(args ...any) error { gotMessage = true; return nil })

	msg := ParseMessage("PRIVMSG #ronni :\x01ACTION waves\x01")
	c.dispatch(msg)

	if !gotAction {
		t.Error("expected action event")
	}
	if gotMessage {
		t.Error("did not expect message event for an ACTION")
	}
}

func TestDispatchClearchatBanVsTimeout(t *testing.T) {
	c := joinedTestClient()
	var banned, timedOut bool
	c.On("ban", func(args ...any) error { banned = true; return nil })
	c.On("timeout", func(args ...any) error { timedOut = true; return nil })

	c.dispatch(ParseMessage("@room-id=1337 CLEARCHAT #ronni :weirdchamp"))
	if !banned {
		t.Error("expected ban event for a CLEARCHAT with no ban-duration")
	}

	banned = false
	c.dispatch(ParseMessage("@room-id=1337;ban-duration=600 CLEARCHAT #ronni :weirdchamp"))
	if !timedOut || banned {
		t.Errorf("timedOut=%v banned=%v, want timedOut only", timedOut, banned)
	}
}

func TestDispatchUsernoticeSubRouting(t *testing.T) {
	c := joinedTestClient()
	var sawSub, sawRaid bool
	c.On("subscription", func(args ...any) error { sawSub = true; return nil })
	c.On("raided", func(args ...any) error { sawRaid = true; return nil })

	c.dispatch(ParseMessage("@msg-id=sub USERNOTICE #ronni :just subbed"))
	if !sawSub {
		t.Error("expected subscription event for msg-id=sub")
	}

	c.dispatch(ParseMessage(`@msg-id=raid;msg-param-displayName=Raider;msg-param-viewerCount=12 USERNOTICE #ronni`))
	if !sawRaid {
		t.Error("expected raided event for msg-id=raid")
	}
}

func TestDispatchNoticeCorrelatesPromise(t *testing.T) {
	c := newTestClient()
	resolved, rejected := false, false
	c.On("_promiseResolve", func(args ...any) error { resolved = true; return nil })
	c.On("_promiseReject", func(args ...any) error { rejected = true; return nil })

	c.dispatch(ParseMessage("@msg-id=ban_success NOTICE #ronni :ronni2 is now banned."))
	if !resolved || rejected {
		t.Errorf("resolved=%v rejected=%v, want resolved only", resolved, rejected)
	}

	resolved, rejected = false, false
	c.dispatch(ParseMessage("@msg-id=bad_ban_admin NOTICE #ronni :you cannot ban an admin."))
	if resolved || !rejected {
		t.Errorf("resolved=%v rejected=%v, want rejected only", resolved, rejected)
	}
}

func TestDispatchRoomstateFieldChange(t *testing.T) {
	c := newTestClient()
	var sawSlow bool
	var seconds int
	c.On("slowmode", func(args ...any) error {
		sawSlow = true
		seconds = args[2].(int)
		return nil
	})

	c.dispatch(ParseMessage("@slow=30;subs-only=0 ROOMSTATE #ronni"))
	if !sawSlow || seconds != 30 {
		t.Errorf("sawSlow=%v seconds=%d", sawSlow, seconds)
	}

	sawSlow = false
	c.dispatch(ParseMessage("@slow=30;subs-only=0 ROOMSTATE #ronni"))
	if sawSlow {
		t.Error("did not expect a second slowmode event when the field is unchanged")
	}
}

func TestDispatchBuffersChannelEventsUntilRoomstate(t *testing.T) {
	c := newTestClient()
	var gotMessage bool
	var order []string
	c.On("message", func(args ...any) error { gotMessage = true; order = append(order, "message"); return nil })
	c.On("roomstate", func(args ...any) error { order = append(order, "roomstate"); return nil })

	c.dispatch(ParseMessage(`PRIVMSG #ronni :Kappa`))
	if gotMessage {
		t.Fatal("did not expect message event before roomstate exists for #ronni")
	}

	c.dispatch(ParseMessage("ROOMSTATE #ronni"))
	if !gotMessage {
		t.Fatal("expected the buffered message event to be replayed once roomstate arrives")
	}
	if len(order) != 2 || order[0] != "roomstate" || order[1] != "message" {
		t.Errorf("order = %v, want [roomstate message]", order)
	}
}

func TestDispatchModeTracksModerators(t *testing.T) {
	c := joinedTestClient()
	c.dispatch(ParseMessage(":jtv MODE #ronni +o wizebot"))
	ch := c.ChannelState("#ronni")
	if ch == nil || !ch.Moderators["wizebot"] {
		t.Fatalf("expected wizebot tracked as moderator, got %+v", ch)
	}

	c.dispatch(ParseMessage(":jtv MODE #ronni -o wizebot"))
	if ch.Moderators["wizebot"] {
		t.Error("expected wizebot removed from moderators")
	}
}
