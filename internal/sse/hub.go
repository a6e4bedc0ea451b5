package sse

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
)

type SSEEvent string

const (
	SSEEventRoadmapProgressUpdated SSEEvent = "RoadmapProgressUpdated"
	SSEEventRoadmapTierReset       SSEEvent = "RoadmapTierReset"
	SSEEventSnapshotImported       SSEEvent = "SnapshotImported"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	closed   bool
}

func (c *SSEClient) Done() <-chan struct{} { return c.done }

type SSEHub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*SSEClient]bool
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		log:           log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*SSEClient]bool),
	}
}

// UserChannel is the per-owner channel progress events are published on.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	return &SSEClient{
		ID:       uuid.New(),
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, 16),
		done:     make(chan struct{}),
	}
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	client.Channels[channel] = true

	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*SSEClient]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true
	hub.log.Debug("SSE client subscribed", "clientID", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	delete(client.Channels, channel)
	if subMap, ok := hub.subscriptions[channel]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
	hub.log.Debug("SSE client unsubscribed", "clientID", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveClient(client *SSEClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for channel := range client.Channels {
		if subMap, ok := hub.subscriptions[channel]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, channel)
			}
		}
	}
	if !client.closed {
		client.closed = true
		close(client.done)
	}
}

// Publish fans a message out to every subscriber of its channel. Slow
// clients are skipped rather than blocking the publisher.
func (hub *SSEHub) Publish(msg SSEMessage) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	clients := hub.subscriptions[msg.Channel]
	for client := range clients {
		select {
		case client.Outbound <- msg:
		default:
			hub.log.Warn("SSE client outbound full, dropping message", "clientID", client.ID, "channel", msg.Channel, "event", msg.Event)
		}
	}
}
