// Package coordinator owns all shared chat state: the identity table, the room
// table, and the presence registry. Every mutating operation runs start to
// finish inside one exclusive critical section, including the outbound fan-out
// enqueue, so room members always observe broadcasts in the order the
// corresponding calls entered the section. Connection sessions (see session.go)
// are the only callers that mutate state, and they do so one request at a time.
package coordinator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/avelar/parley/internal/monitor"
	"github.com/avelar/parley/internal/presence"
	"github.com/avelar/parley/internal/protocol"
	"github.com/avelar/parley/internal/room"
)

// DefaultMaxRooms bounds the room table when no explicit limit is configured.
const DefaultMaxRooms = 15

var (
	// ErrDuplicateIdentity means the display name already has a live session.
	ErrDuplicateIdentity = errors.New("display name already in use")
	// ErrRoomExists means a room with that name already exists.
	ErrRoomExists = errors.New("room already exists")
	// ErrRoomCapacity means the room table is at its configured maximum.
	ErrRoomCapacity = errors.New("room limit reached")
	// ErrUnknownRoom means the named room does not exist.
	ErrUnknownRoom = errors.New("unknown room")
	// ErrUnknownIdentity means no live session holds that display name.
	ErrUnknownIdentity = errors.New("unknown identity")
)

// Peer is the coordinator's handle on one live session. Enqueue must never
// block: implementations buffer outbound envelopes and drop when the buffer is
// full. Kick must trigger the session's teardown without re-entering the
// coordinator synchronously.
type Peer interface {
	Enqueue(env protocol.Envelope) bool
	Kick()
}

// Coordinator is the single serialization point for all chat state.
type Coordinator struct {
	mu       sync.Mutex
	maxRooms int
	sink     monitor.Sink
	peers    map[string]Peer
	rooms    map[string]*room.Room
	registry *presence.Registry
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMaxRooms overrides the room table capacity.
func WithMaxRooms(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxRooms = n
		}
	}
}

// New creates a Coordinator pushing operator events to sink.
func New(sink monitor.Sink, opts ...Option) *Coordinator {
	if sink == nil {
		sink = monitor.NopSink{}
	}
	c := &Coordinator{
		maxRooms: DefaultMaxRooms,
		sink:     sink,
		peers:    make(map[string]Peer),
		rooms:    make(map[string]*room.Room),
		registry: presence.NewRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateRoom adds an empty room. It fails when the name is taken or the room
// table is full; on success every active session and the sink receive the
// updated room list.
func (c *Coordinator) CreateRoom(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.rooms) >= c.maxRooms {
		return ErrRoomCapacity
	}
	if _, ok := c.rooms[name]; ok {
		return ErrRoomExists
	}
	c.rooms[name] = room.New(name)
	c.pushRoomListLocked()
	return nil
}

// DeleteRoom removes a room, notifying its members with ROOM_DELETED before it
// disappears from the table. Rooms are never removed any other way; an empty
// room persists until deleted.
func (c *Coordinator) DeleteRoom(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[name]
	if !ok {
		return ErrUnknownRoom
	}
	notice := protocol.NewRoomDeleted(name)
	for _, member := range r.Members() {
		if peer, ok := c.peers[member]; ok {
			peer.Enqueue(notice)
		}
	}
	delete(c.rooms, name)
	c.pushRoomListLocked()
	c.sink.Log("room deleted: " + name)
	return nil
}

// RegisterIdentity binds a display name to a session. A name held by another
// live session is rejected outright; there is no session takeover.
func (c *Coordinator) RegisterIdentity(name string, p Peer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.peers[name]; ok {
		return ErrDuplicateIdentity
	}
	c.peers[name] = p
	c.registry.MarkActive(name)
	c.sink.Log("client connected: " + name)
	return nil
}

// DeregisterIdentity releases a display name: the identity leaves the active
// table, gains an inactive presence record, and is removed from its room with
// a USER_LEFT notice to the remaining members. Idempotent past the first call.
func (c *Coordinator) DeregisterIdentity(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.peers[name]; !ok {
		return
	}
	delete(c.peers, name)
	c.registry.MarkInactive(name)

	for _, r := range c.rooms {
		if r.Contains(name) {
			r.Remove(name)
			c.notifyRoomLocked(protocol.KindUserLeft, r.Name(), name+" left the room")
		}
	}
	c.pushRoomListLocked()
	c.sink.Log("client disconnected: " + name)
}

// JoinRoom moves an identity into a room. Membership in any other room is
// dropped silently first; only the destination's members get a USER_JOINED
// notice. Joining the current room again is a harmless re-add. The identity
// must hold a live session: a deregistration racing an in-flight join must
// not leave a member no session can remove.
func (c *Coordinator) JoinRoom(name, roomName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.peers[name]; !ok {
		return ErrUnknownIdentity
	}
	r, ok := c.rooms[roomName]
	if !ok {
		return ErrUnknownRoom
	}
	for _, other := range c.rooms {
		if other != r {
			other.Remove(name)
		}
	}
	r.Add(name)
	c.registry.SetLastRoom(name, roomName)
	c.pushRoomListLocked()
	c.sink.Log(fmt.Sprintf("%s joined room: %s", name, roomName))
	c.notifyRoomLocked(protocol.KindUserJoined, roomName, name+" joined the room")
	return nil
}

// LeaveRoom removes an identity from a room and tells the remaining members.
// Unknown rooms are a no-op.
func (c *Coordinator) LeaveRoom(name, roomName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[roomName]
	if !ok {
		return
	}
	r.Remove(name)
	c.pushRoomListLocked()
	c.sink.Log(fmt.Sprintf("%s left room: %s", name, roomName))
	c.notifyRoomLocked(protocol.KindUserLeft, roomName, name+" left the room")
}

// BroadcastChat fans a chat message out to every current member of the room,
// sender included; there is deliberately no echo suppression. Unknown rooms
// are a no-op.
func (c *Coordinator) BroadcastChat(roomName, sender, content, color string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[roomName]
	if !ok {
		return
	}
	env := protocol.NewChatMessage(roomName, sender, content, color)
	for _, member := range r.Members() {
		if peer, ok := c.peers[member]; ok {
			peer.Enqueue(env)
		}
	}
}

// NotifyActivity maps a typing/erasing request kind to its broadcast
// counterpart and fans it out to the room's members, actor included. Kinds
// with no counterpart are ignored.
func (c *Coordinator) NotifyActivity(roomName, actor string, kind protocol.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outKind, ok := protocol.ActivityBroadcastKind(kind)
	if !ok {
		return
	}
	r, ok := c.rooms[roomName]
	if !ok {
		return
	}
	env := protocol.NewActivityNotice(outKind, roomName, actor)
	for _, member := range r.Members() {
		if peer, ok := c.peers[member]; ok {
			peer.Enqueue(env)
		}
	}
}

// KickIdentity sends USER_KICKED to the named session and force-disconnects
// it. The deregistration itself happens through the session's teardown.
func (c *Coordinator) KickIdentity(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	peer, ok := c.peers[name]
	if !ok {
		return ErrUnknownIdentity
	}
	peer.Enqueue(protocol.NewUserKicked())
	peer.Kick()
	c.sink.Log("user kicked: " + name)
	return nil
}

// ReportMessage logs a report against a user's message and, when the target is
// connected, forwards a REPORT_NOTIFICATION to them.
func (c *Coordinator) ReportMessage(reporter, target, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sink.Log(fmt.Sprintf("report: %s reported %s: %s", reporter, target, content))
	if peer, ok := c.peers[target]; ok {
		peer.Enqueue(protocol.NewReportNotification(reporter, content))
	}
}

// ReportRoom logs a report against a room. Reports are operator-visible only.
func (c *Coordinator) ReportRoom(reporter, roomName, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sink.Log(fmt.Sprintf("room report from %s: %s - %s", reporter, roomName, reason))
}

// ListRooms snapshots every room for discovery responses and operator views.
func (c *Coordinator) ListRooms() []protocol.RoomSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomSummariesLocked()
}

// ActivePresence snapshots the online identities.
func (c *Coordinator) ActivePresence() []presence.ActiveEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Active()
}

// InactivePresence snapshots the departed identities.
func (c *Coordinator) InactivePresence() []presence.InactiveEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Inactive()
}

// DisconnectAll force-disconnects every live session. Used on server stop.
func (c *Coordinator) DisconnectAll() {
	c.mu.Lock()
	peers := make([]Peer, 0, len(c.peers))
	for _, p := range c.peers {
		peers = append(peers, p)
	}
	c.mu.Unlock()

	for _, p := range peers {
		p.Kick()
	}
}

// roomSummariesLocked builds the summary list. Callers hold c.mu.
func (c *Coordinator) roomSummariesLocked() []protocol.RoomSummary {
	out := make([]protocol.RoomSummary, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r.Summary())
	}
	return out
}

// pushRoomListLocked sends the current room list to every active session and
// the sink. Callers hold c.mu.
func (c *Coordinator) pushRoomListLocked() {
	summaries := c.roomSummariesLocked()
	c.sink.UpdateRoomList(summaries)
	env := protocol.NewRoomsList(summaries)
	for _, peer := range c.peers {
		peer.Enqueue(env)
	}
}

// notifyRoomLocked sends a membership notice to every current member of a
// room. Callers hold c.mu.
func (c *Coordinator) notifyRoomLocked(kind protocol.Kind, roomName, notice string) {
	r, ok := c.rooms[roomName]
	if !ok {
		return
	}
	env := protocol.NewMemberNotice(kind, roomName, notice)
	for _, member := range r.Members() {
		if peer, ok := c.peers[member]; ok {
			peer.Enqueue(env)
		}
	}
}
