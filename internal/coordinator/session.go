package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/avelar/parley/internal/protocol"
)

// State is a session's position in its protocol lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateInRoom
	StateDisconnected
)

const (
	// sendBuffer bounds each session's outbound queue. A full buffer drops the
	// envelope rather than stalling the coordinator's critical section.
	sendBuffer = 256

	writeTimeout = 10 * time.Second
)

// Session is the per-connection state machine. Its read loop processes one
// envelope at a time in arrival order, proxying every mutating request to the
// coordinator. A dedicated writer goroutine drains the outbound buffer, so the
// coordinator's fan-out never blocks on a slow connection.
type Session struct {
	id    string
	conn  *websocket.Conn
	coord *Coordinator

	// send buffers outbound envelopes until the writer picks them up. sendMu
	// guards it against concurrent enqueue and close, following the same
	// pattern for every other field below: the read loop owns the state, the
	// kick path only observes it.
	send   chan []byte
	sendMu sync.RWMutex

	mu          sync.Mutex
	state       State
	username    string
	currentRoom string

	closeOnce sync.Once
	done      chan struct{}

	logger *slog.Logger
}

// NewSession wraps an accepted WebSocket connection. Serve must be called to
// start processing.
func NewSession(coord *Coordinator, conn *websocket.Conn) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		coord:  coord,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: slog.Default().With("session", id),
	}
}

// Serve runs the session until the connection dies, the client logs out, or
// the session is kicked. It blocks; the server runs one goroutine per session.
func (s *Session) Serve(ctx context.Context) {
	go s.writePump()
	s.readLoop(ctx)
	s.teardown()
	<-s.done
}

// readLoop receives envelopes strictly in arrival order. Each request is fully
// processed, including its coordinator call, before the next read.
func (s *Session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.logger.Debug("connection closed by client")
			} else if s.getState() != StateDisconnected {
				s.logger.Debug("connection read failed", "error", err)
			}
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			// Invalid envelopes are discarded: no state change, no reply.
			s.logger.Debug("discarding invalid envelope", "error", err)
			continue
		}
		s.handle(env)
		if s.getState() == StateDisconnected {
			return
		}
	}
}

func (s *Session) handle(env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindLogin:
		s.handleLogin(env)
	case protocol.KindLogout:
		s.teardown()
	case protocol.KindGetRooms:
		s.Enqueue(protocol.NewRoomsList(s.coord.ListRooms()))
	case protocol.KindJoinRoom:
		s.handleJoinRoom(env)
	case protocol.KindLeaveRoom:
		s.handleLeaveRoom()
	case protocol.KindChatMessage:
		if room, user, ok := s.roomContext(); ok {
			s.coord.BroadcastChat(room, user, env.Content, env.Color)
		}
	case protocol.KindTyping, protocol.KindStopTyping, protocol.KindErasing, protocol.KindStopErasing:
		if room, user, ok := s.roomContext(); ok {
			s.coord.NotifyActivity(room, user, env.Kind)
		}
	case protocol.KindReportMessage:
		if user, ok := s.identity(); ok {
			s.coord.ReportMessage(user, env.Username, env.Content)
		}
	case protocol.KindReportRoom:
		if user, ok := s.identity(); ok {
			s.coord.ReportRoom(user, env.RoomName, env.Content)
		}
	default:
		// Server-to-client kinds arriving on the inbound path carry no
		// meaning; drop them.
		s.logger.Debug("ignoring envelope", "kind", env.Kind)
	}
}

func (s *Session) handleLogin(env protocol.Envelope) {
	s.mu.Lock()
	if s.state != StateUnauthenticated {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.coord.RegisterIdentity(env.Username, s); err != nil {
		s.Enqueue(protocol.NewError("display name already connected (one session per name)"))
		s.teardown()
		return
	}

	s.mu.Lock()
	if s.state == StateDisconnected {
		// Torn down (server stop) while the registration was in flight; the
		// teardown saw an unauthenticated session, so release the name here.
		s.mu.Unlock()
		s.coord.DeregisterIdentity(env.Username)
		return
	}
	s.username = env.Username
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.Enqueue(protocol.NewLoginAck())
}

func (s *Session) handleJoinRoom(env protocol.Envelope) {
	user, ok := s.identity()
	if !ok {
		return
	}
	if err := s.coord.JoinRoom(user, env.RoomName); err != nil {
		s.Enqueue(protocol.NewError("could not join room " + env.RoomName))
		return
	}
	s.mu.Lock()
	s.currentRoom = env.RoomName
	s.state = StateInRoom
	s.mu.Unlock()

	s.Enqueue(protocol.NewRoomJoined(env.RoomName))
}

func (s *Session) handleLeaveRoom() {
	s.mu.Lock()
	if s.state != StateInRoom {
		s.mu.Unlock()
		return
	}
	user, room := s.username, s.currentRoom
	s.currentRoom = ""
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.coord.LeaveRoom(user, room)
	s.Enqueue(protocol.NewRoomLeft())
}

// identity returns the bound display name once authenticated.
func (s *Session) identity() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated && s.state != StateInRoom {
		return "", false
	}
	return s.username, true
}

// roomContext returns the current room and identity while IN_ROOM.
func (s *Session) roomContext() (string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInRoom {
		return "", "", false
	}
	return s.currentRoom, s.username, true
}

func (s *Session) getState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enqueue implements Peer. It never blocks: a full buffer drops the envelope,
// which for a live connection only happens when the client has stopped
// draining its socket.
func (s *Session) Enqueue(env protocol.Envelope) bool {
	data, err := env.Encode()
	if err != nil {
		s.logger.Error("failed to encode envelope", "kind", env.Kind, "error", err)
		return false
	}

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.send == nil {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		s.logger.Warn("send buffer full, dropping envelope", "kind", env.Kind)
		return false
	}
}

// Kick implements Peer. The coordinator calls it while holding its lock, so
// the teardown runs on its own goroutine; deregistration happens there.
func (s *Session) Kick() {
	go s.teardown()
}

// teardown moves the session to DISCONNECTED exactly once, whatever the
// trigger: logout, transport failure, kick, or server stop. It deregisters the
// identity (when one was registered) and closes the outbound channel; the
// writer drains what is buffered, then closes the transport, which unblocks
// any pending read.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		user := s.username
		registered := s.state == StateAuthenticated || s.state == StateInRoom
		s.state = StateDisconnected
		s.currentRoom = ""
		s.mu.Unlock()

		if registered {
			s.coord.DeregisterIdentity(user)
		}
		s.closeSend()
	})
}

func (s *Session) closeSend() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.send != nil {
		close(s.send)
		s.send = nil
	}
}

// writePump is the single writer on the connection. It drains the outbound
// buffer and closes the transport once the buffer is closed, completing the
// disconnect handshake for every teardown path.
func (s *Session) writePump() {
	defer close(s.done)
	defer s.conn.Close(websocket.StatusNormalClosure, "session closed")

	s.sendMu.RLock()
	ch := s.send
	s.sendMu.RUnlock()
	if ch == nil {
		// Teardown already closed the buffer before this goroutine was
		// scheduled; nothing to drain.
		return
	}

	for data := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := s.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.logger.Debug("connection write failed", "error", err)
			return
		}
	}
}
