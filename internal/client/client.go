// Package client is the programmatic client shell: it dials the coordinator,
// issues the protocol's requests 1:1, and surfaces received envelopes through
// callbacks. It holds no protocol state beyond the connection itself; all
// invariants live on the server.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/avelar/parley/internal/protocol"
)

// Events are the callbacks invoked from the client's read loop, one at a time
// in arrival order. Nil callbacks are skipped. Any UI-thread marshaling is the
// consumer's responsibility.
type Events struct {
	OnLoginOK            func()
	OnError              func(reason string)
	OnRoomsList          func(rooms []protocol.RoomSummary)
	OnRoomJoined         func(room string)
	OnRoomLeft           func()
	OnRoomDeleted        func(room, notice string)
	OnChatMessage        func(username, content, color string)
	OnMemberNotice       func(kind protocol.Kind, room, notice string)
	OnActivity           func(kind protocol.Kind, room, actor string)
	OnKicked             func(notice string)
	OnReportNotification func(content string)
	// OnDisconnect fires once when the connection ends, with the read error
	// that ended it (nil after a clean close).
	OnDisconnect func(err error)
}

// Client is one live connection to the coordinator.
type Client struct {
	conn   *websocket.Conn
	events Events

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Connect dials the server, sends the LOGIN request for username, and starts
// the read loop. Login success or failure arrives through OnLoginOK / OnError.
func Connect(ctx context.Context, host string, port int, username string, events Events) (*Client, error) {
	url := fmt.Sprintf("ws://%s:%d/ws", host, port)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		conn:   conn,
		events: events,
		done:   make(chan struct{}),
	}
	go c.readLoop()

	if err := c.send(protocol.NewLogin(username)); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// RequestRooms asks for the current room list.
func (c *Client) RequestRooms() error {
	return c.send(protocol.NewGetRooms())
}

// JoinRoom requests membership in a named room.
func (c *Client) JoinRoom(name string) error {
	return c.send(protocol.NewJoinRoom(name))
}

// LeaveRoom requests leaving the current room.
func (c *Client) LeaveRoom() error {
	return c.send(protocol.NewLeaveRoom())
}

// SendChatMessage sends chat content to the current room. Color is optional
// display styling forwarded to every member.
func (c *Client) SendChatMessage(content, color string) error {
	return c.send(protocol.Envelope{
		Kind:    protocol.KindChatMessage,
		Content: content,
		Color:   color,
	})
}

// SendTyping signals typing started or stopped in a room.
func (c *Client) SendTyping(room string, typing bool) error {
	kind := protocol.KindStopTyping
	if typing {
		kind = protocol.KindTyping
	}
	return c.send(protocol.NewActivity(kind, room))
}

// SendErasing signals erasing started or stopped in a room.
func (c *Client) SendErasing(room string, erasing bool) error {
	kind := protocol.KindStopErasing
	if erasing {
		kind = protocol.KindErasing
	}
	return c.send(protocol.NewActivity(kind, room))
}

// ReportMessage reports another user's message to the operator.
func (c *Client) ReportMessage(targetUser, content string) error {
	return c.send(protocol.NewReportMessage(targetUser, content))
}

// ReportRoom reports a room to the operator.
func (c *Client) ReportRoom(room, reason string) error {
	return c.send(protocol.NewReportRoom(room, reason))
}

// Logout asks the server to end the session, then closes the connection.
func (c *Client) Logout() error {
	err := c.send(protocol.NewLogout())
	c.Close()
	return err
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

// Done is closed once the read loop has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) send(env protocol.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.Close()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
			if c.events.OnDisconnect != nil {
				c.events.OnDisconnect(err)
			}
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindLogin:
		if c.events.OnLoginOK != nil {
			c.events.OnLoginOK()
		}
	case protocol.KindError:
		if c.events.OnError != nil {
			c.events.OnError(env.Content)
		}
	case protocol.KindRoomsList:
		if c.events.OnRoomsList != nil {
			c.events.OnRoomsList(env.Payload)
		}
	case protocol.KindRoomJoined:
		if c.events.OnRoomJoined != nil {
			c.events.OnRoomJoined(env.RoomName)
		}
	case protocol.KindRoomLeft:
		if c.events.OnRoomLeft != nil {
			c.events.OnRoomLeft()
		}
	case protocol.KindRoomDeleted:
		if c.events.OnRoomDeleted != nil {
			c.events.OnRoomDeleted(env.RoomName, env.Content)
		}
	case protocol.KindChatMessage:
		if c.events.OnChatMessage != nil {
			c.events.OnChatMessage(env.Username, env.Content, env.Color)
		}
	case protocol.KindUserJoined, protocol.KindUserLeft:
		if c.events.OnMemberNotice != nil {
			c.events.OnMemberNotice(env.Kind, env.RoomName, env.Content)
		}
	case protocol.KindUserTyping, protocol.KindUserStoppedTyping,
		protocol.KindUserErasing, protocol.KindUserStoppedErasing:
		if c.events.OnActivity != nil {
			c.events.OnActivity(env.Kind, env.RoomName, env.Content)
		}
	case protocol.KindUserKicked:
		if c.events.OnKicked != nil {
			c.events.OnKicked(env.Content)
		}
	case protocol.KindReportNotification:
		if c.events.OnReportNotification != nil {
			c.events.OnReportNotification(env.Content)
		}
	}
}
