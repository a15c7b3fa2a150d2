package coordinator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelar/parley/internal/monitor"
	"github.com/avelar/parley/internal/protocol"
)

// fakePeer records every envelope the coordinator fans out to it.
type fakePeer struct {
	mu        sync.Mutex
	envelopes []protocol.Envelope
	kicked    bool
}

func (p *fakePeer) Enqueue(env protocol.Envelope) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, env)
	return true
}

func (p *fakePeer) Kick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kicked = true
}

func (p *fakePeer) received() []protocol.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]protocol.Envelope, len(p.envelopes))
	copy(out, p.envelopes)
	return out
}

func (p *fakePeer) receivedKinds() []protocol.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]protocol.Kind, 0, len(p.envelopes))
	for _, env := range p.envelopes {
		out = append(out, env.Kind)
	}
	return out
}

func (p *fakePeer) wasKicked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kicked
}

func countKind(envs []protocol.Envelope, kind protocol.Kind) int {
	n := 0
	for _, env := range envs {
		if env.Kind == kind {
			n++
		}
	}
	return n
}

// recordingSink captures what the coordinator pushes to the event sink.
type recordingSink struct {
	mu    sync.Mutex
	lines []string
	rooms [][]protocol.RoomSummary
}

func (s *recordingSink) Log(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *recordingSink) UpdateRoomList(rooms []protocol.RoomSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append(s.rooms, rooms)
}

func (s *recordingSink) logLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *recordingSink) roomUpdates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

func TestRegisterIdentity_Duplicate(t *testing.T) {
	c := New(monitor.NopSink{})
	first := &fakePeer{}
	second := &fakePeer{}

	require.NoError(t, c.RegisterIdentity("alice", first))
	err := c.RegisterIdentity("alice", second)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	// The rejected session must never appear in the active table; releasing
	// the name makes it reusable.
	c.DeregisterIdentity("alice")
	require.NoError(t, c.RegisterIdentity("alice", second))
}

func TestRegisterIdentity_ConcurrentSameName(t *testing.T) {
	c := New(monitor.NopSink{})

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.RegisterIdentity("alice", &fakePeer{})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateIdentity)
		}
	}
	assert.Equal(t, 1, successes)
}

func TestCreateRoom_CapacityBoundary(t *testing.T) {
	c := New(monitor.NopSink{}, WithMaxRooms(3))

	for i := 0; i < 3; i++ {
		require.NoError(t, c.CreateRoom(fmt.Sprintf("room-%d", i)))
	}
	err := c.CreateRoom("overflow")
	assert.ErrorIs(t, err, ErrRoomCapacity)

	// The existing rooms are unaffected.
	rooms := c.ListRooms()
	assert.Len(t, rooms, 3)
	for _, r := range rooms {
		assert.NotEqual(t, "overflow", r.Name)
	}
}

func TestCreateRoom_DuplicateName(t *testing.T) {
	c := New(monitor.NopSink{})
	require.NoError(t, c.CreateRoom("general"))
	assert.ErrorIs(t, c.CreateRoom("general"), ErrRoomExists)
}

func TestCreateRoom_PushesRoomList(t *testing.T) {
	sink := &recordingSink{}
	c := New(sink)
	peer := &fakePeer{}
	require.NoError(t, c.RegisterIdentity("alice", peer))

	require.NoError(t, c.CreateRoom("general"))

	assert.Equal(t, 1, sink.roomUpdates())
	assert.Equal(t, 1, countKind(peer.received(), protocol.KindRoomsList))
}

func TestJoinRoom_SingleRoomInvariant(t *testing.T) {
	c := New(monitor.NopSink{})
	alice, bob := &fakePeer{}, &fakePeer{}
	require.NoError(t, c.RegisterIdentity("alice", alice))
	require.NoError(t, c.RegisterIdentity("bob", bob))
	require.NoError(t, c.CreateRoom("x"))
	require.NoError(t, c.CreateRoom("y"))

	require.NoError(t, c.JoinRoom("bob", "x"))
	require.NoError(t, c.JoinRoom("alice", "x"))

	bobNoticesBefore := countKind(bob.received(), protocol.KindUserLeft)

	// Switching rooms drops the old membership silently: bob gets no
	// USER_LEFT for alice's implicit departure from "x".
	require.NoError(t, c.JoinRoom("alice", "y"))

	assert.Equal(t, bobNoticesBefore, countKind(bob.received(), protocol.KindUserLeft))
	for _, r := range c.ListRooms() {
		switch r.Name {
		case "x":
			assert.Equal(t, []string{"bob"}, r.Users)
		case "y":
			assert.Equal(t, []string{"alice"}, r.Users)
		}
	}

	// An explicit leave does notify the remaining members.
	require.NoError(t, c.JoinRoom("alice", "x"))
	c.LeaveRoom("alice", "x")
	assert.Equal(t, bobNoticesBefore+1, countKind(bob.received(), protocol.KindUserLeft))
}

func TestJoinRoom_UnknownRoom(t *testing.T) {
	c := New(monitor.NopSink{})
	require.NoError(t, c.RegisterIdentity("alice", &fakePeer{}))
	assert.ErrorIs(t, c.JoinRoom("alice", "nowhere"), ErrUnknownRoom)
}

func TestJoinRoom_DeregisteredIdentity(t *testing.T) {
	c := New(monitor.NopSink{})
	require.NoError(t, c.CreateRoom("general"))
	require.NoError(t, c.RegisterIdentity("alice", &fakePeer{}))
	c.DeregisterIdentity("alice")

	// A join landing after the session deregistered must not leave a member
	// no session can ever remove.
	assert.ErrorIs(t, c.JoinRoom("alice", "general"), ErrUnknownIdentity)
	rooms := c.ListRooms()
	require.Len(t, rooms, 1)
	assert.Empty(t, rooms[0].Users)
}

func TestJoinRoom_RejoinIsHarmless(t *testing.T) {
	c := New(monitor.NopSink{})
	require.NoError(t, c.RegisterIdentity("alice", &fakePeer{}))
	require.NoError(t, c.CreateRoom("general"))

	require.NoError(t, c.JoinRoom("alice", "general"))
	require.NoError(t, c.JoinRoom("alice", "general"))

	rooms := c.ListRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, []string{"alice"}, rooms[0].Users)
}

func TestBroadcastChat_SelfDeliveryAndIsolation(t *testing.T) {
	c := New(monitor.NopSink{})
	alice, bob, carol := &fakePeer{}, &fakePeer{}, &fakePeer{}
	require.NoError(t, c.RegisterIdentity("alice", alice))
	require.NoError(t, c.RegisterIdentity("bob", bob))
	require.NoError(t, c.RegisterIdentity("carol", carol))
	require.NoError(t, c.CreateRoom("general"))
	require.NoError(t, c.CreateRoom("other"))
	require.NoError(t, c.JoinRoom("alice", "general"))
	require.NoError(t, c.JoinRoom("bob", "general"))
	require.NoError(t, c.JoinRoom("carol", "other"))

	c.BroadcastChat("general", "alice", "hi", "#FFFFFF")

	want := protocol.Envelope{
		Kind:     protocol.KindChatMessage,
		Username: "alice",
		RoomName: "general",
		Content:  "hi",
		Color:    "#FFFFFF",
	}
	// The sender is included in the fan-out; there is no echo suppression.
	assert.Contains(t, alice.received(), want)
	assert.Contains(t, bob.received(), want)
	assert.Zero(t, countKind(carol.received(), protocol.KindChatMessage))
}

func TestBroadcastChat_UnknownRoomIsNoop(t *testing.T) {
	c := New(monitor.NopSink{})
	alice := &fakePeer{}
	require.NoError(t, c.RegisterIdentity("alice", alice))

	c.BroadcastChat("nowhere", "alice", "hi", "")
	assert.Zero(t, countKind(alice.received(), protocol.KindChatMessage))
}

func TestDeregisterIdentity_Cleanup(t *testing.T) {
	c := New(monitor.NopSink{})
	alice, bob := &fakePeer{}, &fakePeer{}
	require.NoError(t, c.RegisterIdentity("alice", alice))
	require.NoError(t, c.RegisterIdentity("bob", bob))
	require.NoError(t, c.CreateRoom("general"))
	require.NoError(t, c.JoinRoom("alice", "general"))
	require.NoError(t, c.JoinRoom("bob", "general"))

	c.DeregisterIdentity("bob")

	rooms := c.ListRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, []string{"alice"}, rooms[0].Users)
	assert.Equal(t, 1, countKind(alice.received(), protocol.KindUserLeft))

	// A later broadcast no longer reaches the departed session.
	before := countKind(bob.received(), protocol.KindChatMessage)
	c.BroadcastChat("general", "alice", "anyone?", "")
	assert.Equal(t, before, countKind(bob.received(), protocol.KindChatMessage))

	// Presence moved from active to inactive.
	for _, e := range c.ActivePresence() {
		assert.NotEqual(t, "bob", e.Username)
	}
	inactive := c.InactivePresence()
	require.Len(t, inactive, 1)
	assert.Equal(t, "bob", inactive[0].Username)
}

func TestDeregisterIdentity_Idempotent(t *testing.T) {
	sink := &recordingSink{}
	c := New(sink)
	require.NoError(t, c.RegisterIdentity("alice", &fakePeer{}))

	c.DeregisterIdentity("alice")
	updates := sink.roomUpdates()
	c.DeregisterIdentity("alice")
	c.DeregisterIdentity("alice")

	assert.Equal(t, updates, sink.roomUpdates())
	assert.Len(t, c.InactivePresence(), 1)
}

func TestDeleteRoom_NotifiesMembersFirst(t *testing.T) {
	c := New(monitor.NopSink{})
	alice, bob := &fakePeer{}, &fakePeer{}
	require.NoError(t, c.RegisterIdentity("alice", alice))
	require.NoError(t, c.RegisterIdentity("bob", bob))
	require.NoError(t, c.CreateRoom("general"))
	require.NoError(t, c.JoinRoom("alice", "general"))
	require.NoError(t, c.JoinRoom("bob", "general"))

	require.NoError(t, c.DeleteRoom("general"))

	assert.Empty(t, c.ListRooms())
	for _, peer := range []*fakePeer{alice, bob} {
		kinds := peer.receivedKinds()
		deletedAt, listAt := -1, -1
		for i, k := range kinds {
			if k == protocol.KindRoomDeleted {
				deletedAt = i
			}
			// The final ROOMS_LIST reflects the removal.
			if k == protocol.KindRoomsList {
				listAt = i
			}
		}
		require.GreaterOrEqual(t, deletedAt, 0, "member missed ROOM_DELETED")
		assert.Less(t, deletedAt, listAt, "ROOM_DELETED must precede the room-list update")
	}

	assert.ErrorIs(t, c.DeleteRoom("general"), ErrUnknownRoom)
}

func TestKickIdentity(t *testing.T) {
	c := New(monitor.NopSink{})
	alice := &fakePeer{}
	require.NoError(t, c.RegisterIdentity("alice", alice))

	require.NoError(t, c.KickIdentity("alice"))
	kinds := alice.receivedKinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, protocol.KindUserKicked, kinds[len(kinds)-1])
	assert.True(t, alice.wasKicked())

	err := c.KickIdentity("nobody")
	assert.ErrorIs(t, err, ErrUnknownIdentity)
}

func TestNotifyActivity_MapsKinds(t *testing.T) {
	c := New(monitor.NopSink{})
	alice, bob := &fakePeer{}, &fakePeer{}
	require.NoError(t, c.RegisterIdentity("alice", alice))
	require.NoError(t, c.RegisterIdentity("bob", bob))
	require.NoError(t, c.CreateRoom("general"))
	require.NoError(t, c.JoinRoom("alice", "general"))
	require.NoError(t, c.JoinRoom("bob", "general"))

	tests := []struct {
		request protocol.Kind
		want    protocol.Kind
	}{
		{protocol.KindTyping, protocol.KindUserTyping},
		{protocol.KindStopTyping, protocol.KindUserStoppedTyping},
		{protocol.KindErasing, protocol.KindUserErasing},
		{protocol.KindStopErasing, protocol.KindUserStoppedErasing},
	}
	for _, tt := range tests {
		c.NotifyActivity("general", "alice", tt.request)
		want := protocol.Envelope{Kind: tt.want, RoomName: "general", Content: "alice"}
		assert.Contains(t, bob.received(), want)
		// The actor hears its own activity too.
		assert.Contains(t, alice.received(), want)
	}

	// Kinds with no broadcast counterpart are dropped.
	before := len(bob.received())
	c.NotifyActivity("general", "alice", protocol.KindChatMessage)
	assert.Len(t, bob.received(), before)
}

func TestReportMessage_ForwardsToTarget(t *testing.T) {
	sink := &recordingSink{}
	c := New(sink)
	bob := &fakePeer{}
	require.NoError(t, c.RegisterIdentity("bob", bob))

	c.ReportMessage("alice", "bob", "rude message")

	require.Equal(t, 1, countKind(bob.received(), protocol.KindReportNotification))
	lines := sink.logLines()
	assert.Contains(t, lines[len(lines)-1], "alice reported bob")

	// Reporting an offline user only logs.
	c.ReportMessage("alice", "ghost", "spam")
	assert.Equal(t, 1, countKind(bob.received(), protocol.KindReportNotification))
}

func TestDisconnectAll(t *testing.T) {
	c := New(monitor.NopSink{})
	peers := []*fakePeer{{}, {}, {}}
	for i, p := range peers {
		require.NoError(t, c.RegisterIdentity(fmt.Sprintf("user-%d", i), p))
	}

	c.DisconnectAll()
	for _, p := range peers {
		assert.True(t, p.wasKicked())
	}
}
