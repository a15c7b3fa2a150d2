package monitor

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/avelar/parley/internal/protocol"
)

// Topics the bridge publishes on. Operator frontends subscribe to these.
const (
	TopicLog   = "monitor.log"
	TopicRooms = "monitor.rooms"
)

// Bridge is a Sink backed by watermill's in-memory GoChannel pub/sub. It
// decouples the coordinator from however many operator views are attached:
// each view subscribes to the monitor topics and renders at its own pace.
type Bridge struct {
	pub message.Publisher
	sub message.Subscriber
}

// NewBridge initializes the in-memory pub/sub transport behind the sink.
func NewBridge() *Bridge {
	logger := watermill.NewStdLogger(false, false)
	goChannel := gochannel.NewGoChannel(gochannel.Config{}, logger)
	return &Bridge{pub: goChannel, sub: goChannel}
}

// Log publishes one diagnostic line on the log topic.
func (b *Bridge) Log(line string) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(line))
	if err := b.pub.Publish(TopicLog, msg); err != nil {
		slog.Error("failed to publish monitor log line", "error", err)
	}
}

// UpdateRoomList publishes the current room set on the rooms topic.
func (b *Bridge) UpdateRoomList(rooms []protocol.RoomSummary) {
	payload, err := json.Marshal(rooms)
	if err != nil {
		slog.Error("failed to marshal room list", "error", err)
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pub.Publish(TopicRooms, msg); err != nil {
		slog.Error("failed to publish room list update", "error", err)
	}
}

// SubscribeLogs delivers every log line to handler until ctx is canceled.
// Subscribe before the first publish; GoChannel does not replay.
func (b *Bridge) SubscribeLogs(ctx context.Context, handler func(line string)) error {
	messages, err := b.sub.Subscribe(ctx, TopicLog)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			handler(string(msg.Payload))
			msg.Ack()
		}
	}()
	return nil
}

// SubscribeRooms delivers every room-list snapshot to handler until ctx is
// canceled.
func (b *Bridge) SubscribeRooms(ctx context.Context, handler func(rooms []protocol.RoomSummary)) error {
	messages, err := b.sub.Subscribe(ctx, TopicRooms)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			var rooms []protocol.RoomSummary
			if err := json.Unmarshal(msg.Payload, &rooms); err != nil {
				slog.Error("failed to unmarshal room list update", "error", err)
				msg.Ack()
				continue
			}
			handler(rooms)
			msg.Ack()
		}
	}()
	return nil
}

// Close shuts the underlying pub/sub down, ending all subscriptions.
func (b *Bridge) Close() error {
	return b.sub.Close()
}

// AttachConsole subscribes a slog-backed operator console to the bridge. It is
// the default frontend wired by cmd/server.
func AttachConsole(ctx context.Context, b *Bridge) error {
	logger := slog.Default().With("component", "monitor")
	if err := b.SubscribeLogs(ctx, func(line string) {
		logger.Info(line)
	}); err != nil {
		return err
	}
	return b.SubscribeRooms(ctx, func(rooms []protocol.RoomSummary) {
		names := make([]string, 0, len(rooms))
		for _, r := range rooms {
			names = append(names, r.Name)
		}
		logger.Info("room list updated", "count", len(rooms), "rooms", names)
	})
}
