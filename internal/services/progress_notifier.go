package services

import (
	"context"

	"github.com/google/uuid"

	redisclient "github.com/pathbyte/pathbyte-backend/internal/clients/redis"
	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/sse"
)

// ProgressNotifier announces committed progress mutations. Publishing is
// best-effort: a failed publish is logged and never fails the mutation that
// triggered it.
type ProgressNotifier interface {
	ProgressUpdated(ctx context.Context, userID uuid.UUID, roleID, tierID string, percentage int)
	TierReset(ctx context.Context, userID uuid.UUID, roleID, tierID string)
	SnapshotImported(ctx context.Context, userID uuid.UUID)
}

type sseProgressNotifier struct {
	log *logger.Logger
	hub *sse.SSEHub
	bus redisclient.SSEBus
}

// NewSSEProgressNotifier publishes over the Redis bus when one is configured
// (the bus forwarder loops messages back into the local hub), and straight to
// the local hub otherwise.
func NewSSEProgressNotifier(log *logger.Logger, hub *sse.SSEHub, bus redisclient.SSEBus) ProgressNotifier {
	return &sseProgressNotifier{
		log: log.With("service", "ProgressNotifier"),
		hub: hub,
		bus: bus,
	}
}

func (n *sseProgressNotifier) publish(ctx context.Context, msg sse.SSEMessage) {
	if n.bus != nil {
		if err := n.bus.Publish(ctx, msg); err == nil {
			return
		} else {
			n.log.Warn("Bus publish failed, falling back to local hub", "event", msg.Event, "error", err)
		}
	}
	n.hub.Publish(msg)
}

func (n *sseProgressNotifier) ProgressUpdated(ctx context.Context, userID uuid.UUID, roleID, tierID string, percentage int) {
	n.publish(ctx, sse.SSEMessage{
		Channel: sse.UserChannel(userID),
		Event:   sse.SSEEventRoadmapProgressUpdated,
		Data: map[string]any{
			"roleId":     roleID,
			"tierId":     tierID,
			"percentage": percentage,
		},
	})
}

func (n *sseProgressNotifier) TierReset(ctx context.Context, userID uuid.UUID, roleID, tierID string) {
	n.publish(ctx, sse.SSEMessage{
		Channel: sse.UserChannel(userID),
		Event:   sse.SSEEventRoadmapTierReset,
		Data: map[string]any{
			"roleId": roleID,
			"tierId": tierID,
		},
	})
}

func (n *sseProgressNotifier) SnapshotImported(ctx context.Context, userID uuid.UUID) {
	n.publish(ctx, sse.SSEMessage{
		Channel: sse.UserChannel(userID),
		Event:   sse.SSEEventSnapshotImported,
	})
}

// NopProgressNotifier is used where realtime delivery is not wired, e.g. the
// local fallback store and tests.
type NopProgressNotifier struct{}

func (NopProgressNotifier) ProgressUpdated(context.Context, uuid.UUID, string, string, int) {}
func (NopProgressNotifier) TierReset(context.Context, uuid.UUID, string, string)            {}
func (NopProgressNotifier) SnapshotImported(context.Context, uuid.UUID)                     {}
