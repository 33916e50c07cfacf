package irc

import "sync"

// ReadyState is the connection lifecycle state from spec.md §3.
type ReadyState int

const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ChannelState is the per-channel state tracked by a Client: the bot's own
// tags for that channel (userstate) and the channel's broadcast tags
// (roomstate), plus the moderator set derived from jtv MODE notices.
// RoomState is nil until the channel's first ROOMSTATE has been handled.
type ChannelState struct {
	UserState map[string]string
	RoomState map[string]string
	Moderators map[string]bool
}

// clientState is the process-wide mutable state of one connection,
// spec.md §3. Fields are guarded by mu.
type clientState struct {
	mu sync.RWMutex

	readyState ReadyState

	globalUserState map[string]string
	channels        map[string]*ChannelState

	reconnectAttempts int
	currentLatency    float64
	wasCloseCalled    bool

	emoteSets string
	lastJoined string
}

func newClientState() *clientState {
	return &clientState{
		readyState: StateClosed,
		channels:   map[string]*ChannelState{},
	}
}

func (s *clientState) setReadyState(state ReadyState) {
	s.mu.Lock()
	s.readyState = state
	s.mu.Unlock()
}

func (s *clientState) getReadyState() ReadyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readyState
}

func (s *clientState) channel(name string, create bool) *ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[name]
	if !ok {
		if !create {
			return nil
		}
		ch = &ChannelState{UserState: map[string]string{}, Moderators: map[string]bool{}}
		s.channels[name] = ch
	}
	return ch
}

// hasRoomState reports whether a roomstate snapshot exists for channel, the
// invariant spec.md §3 requires before any channel-scoped event fires. A
// ROOMSTATE that carries no tags still establishes the snapshot.
func (s *clientState) hasRoomState(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[name]
	return ok && ch.RoomState != nil
}

func (s *clientState) channelNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for name := range s.channels {
		out = append(out, name)
	}
	return out
}

func (s *clientState) removeChannel(name string) {
	s.mu.Lock()
	delete(s.channels, name)
	s.mu.Unlock()
}

func (s *clientState) setGlobalUserState(tags map[string]string) {
	s.mu.Lock()
	s.globalUserState = tags
	s.mu.Unlock()
}

func (s *clientState) getGlobalUserState() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalUserState
}

func (s *clientState) setLatency(seconds float64) {
	s.mu.Lock()
	s.currentLatency = seconds
	s.mu.Unlock()
}

func (s *clientState) getLatency() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLatency
}
