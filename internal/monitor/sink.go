// Package monitor is the event sink boundary consumed by the coordinator. The
// core pushes log lines and room-list snapshots through a Sink; what happens on
// the other side (an operator console, a dashboard, a test recorder) is the
// collaborator's business, including any thread marshaling it needs.
package monitor

import "github.com/avelar/parley/internal/protocol"

// Sink receives operator-facing events from the coordinator. Both methods are
// fire-and-forget and may be called concurrently from different coordinator
// paths; ordering is only guaranteed within a single room's event stream.
type Sink interface {
	// Log receives one diagnostic line.
	Log(line string)

	// UpdateRoomList receives the full room set whenever membership or the
	// set of rooms changes.
	UpdateRoomList(rooms []protocol.RoomSummary)
}

// NopSink discards everything. Useful as a default and in tests.
type NopSink struct{}

func (NopSink) Log(string)                            {}
func (NopSink) UpdateRoomList([]protocol.RoomSummary) {}
