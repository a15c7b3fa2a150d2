// Package room holds the membership set for a named chat room. It is a plain
// data structure: uniqueness, capacity, and single-room rules are enforced by
// the coordinator, not here.
package room

import "github.com/avelar/parley/internal/protocol"

// Room is a named container of member identities. Membership keeps insertion
// order so operator views render a stable list.
type Room struct {
	name    string
	members []string
	present map[string]struct{}
}

// New creates an empty room. The name is immutable for the room's lifetime.
func New(name string) *Room {
	return &Room{
		name:    name,
		present: make(map[string]struct{}),
	}
}

// Name returns the room's unique name.
func (r *Room) Name() string {
	return r.name
}

// Add inserts an identity into the membership set. Re-adding a current member
// is a no-op; membership is a set, not a multiset.
func (r *Room) Add(username string) {
	if _, ok := r.present[username]; ok {
		return
	}
	r.present[username] = struct{}{}
	r.members = append(r.members, username)
}

// Remove drops an identity from the membership set, if present.
func (r *Room) Remove(username string) {
	if _, ok := r.present[username]; !ok {
		return
	}
	delete(r.present, username)
	for i, m := range r.members {
		if m == username {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
}

// Contains reports whether an identity is currently a member.
func (r *Room) Contains(username string) bool {
	_, ok := r.present[username]
	return ok
}

// Members returns the current membership in insertion order. The returned
// slice is a copy; callers may hold it across later mutations.
func (r *Room) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// Count returns the number of current members.
func (r *Room) Count() int {
	return len(r.members)
}

// Summary snapshots the room for discovery responses and operator views.
func (r *Room) Summary() protocol.RoomSummary {
	return protocol.RoomSummary{
		Name:      r.name,
		Users:     r.Members(),
		UserCount: r.Count(),
	}
}
