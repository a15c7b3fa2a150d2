// Package presence tracks which identities are online and which have recently
// departed, for operator visibility. The registry is pure bookkeeping; the
// coordinator serializes access to it.
package presence

import "time"

// ActiveEntry is the operator view of one online identity. Elapsed time is
// computed when the snapshot is taken.
type ActiveEntry struct {
	Username      string `json:"username"`
	LastRoom      string `json:"lastRoom"`
	OnlineSeconds int64  `json:"onlineSeconds"`
}

// InactiveEntry is the operator view of one departed identity. Inactive
// records are retained indefinitely; unbounded growth is accepted here.
type InactiveEntry struct {
	Username       string `json:"username"`
	LastName       string `json:"lastName"`
	OfflineSeconds int64  `json:"offlineSeconds"`
}

type activeRecord struct {
	loginAt  time.Time
	lastRoom string
}

type inactiveRecord struct {
	lastSeen time.Time
	lastName string
}

// Registry records login timestamps for active identities and last-seen
// timestamps for inactive ones. It is not safe for concurrent use on its own.
type Registry struct {
	active   map[string]*activeRecord
	inactive map[string]*inactiveRecord
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active:   make(map[string]*activeRecord),
		inactive: make(map[string]*inactiveRecord),
		now:      time.Now,
	}
}

// MarkActive records a fresh login for an identity.
func (r *Registry) MarkActive(username string) {
	r.active[username] = &activeRecord{loginAt: r.now()}
}

// IsActive reports whether an identity currently holds an active record.
func (r *Registry) IsActive(username string) bool {
	_, ok := r.active[username]
	return ok
}

// SetLastRoom remembers the room an identity most recently joined.
func (r *Registry) SetLastRoom(username, room string) {
	if rec, ok := r.active[username]; ok {
		rec.lastRoom = room
	}
}

// MarkInactive moves an identity from the active table to the inactive one,
// stamping its departure time. Calling it for an identity with no active
// record still refreshes the inactive entry.
func (r *Registry) MarkInactive(username string) {
	delete(r.active, username)
	r.inactive[username] = &inactiveRecord{
		lastSeen: r.now(),
		lastName: username,
	}
}

// Active snapshots all online identities with their elapsed online time.
func (r *Registry) Active() []ActiveEntry {
	now := r.now()
	out := make([]ActiveEntry, 0, len(r.active))
	for name, rec := range r.active {
		lastRoom := rec.lastRoom
		if lastRoom == "" {
			lastRoom = "-"
		}
		out = append(out, ActiveEntry{
			Username:      name,
			LastRoom:      lastRoom,
			OnlineSeconds: int64(now.Sub(rec.loginAt).Seconds()),
		})
	}
	return out
}

// Inactive snapshots all departed identities with their elapsed offline time.
func (r *Registry) Inactive() []InactiveEntry {
	now := r.now()
	out := make([]InactiveEntry, 0, len(r.inactive))
	for name, rec := range r.inactive {
		out = append(out, InactiveEntry{
			Username:       name,
			LastName:       rec.lastName,
			OfflineSeconds: int64(now.Sub(rec.lastSeen).Seconds()),
		})
	}
	return out
}
