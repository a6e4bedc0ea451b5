package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
	"github.com/pathbyte/pathbyte-backend/internal/requestdata"
	"github.com/pathbyte/pathbyte-backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub

	mu      sync.Mutex
	clients map[uuid.UUID]map[*sse.SSEClient]bool
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{
		log:     log.With("handler", "SSEHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]map[*sse.SSEClient]bool),
	}
}

func (sh *SSEHandler) track(userID uuid.UUID, client *sse.SSEClient) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	set, ok := sh.clients[userID]
	if !ok {
		set = make(map[*sse.SSEClient]bool)
		sh.clients[userID] = set
	}
	set[client] = true
}

func (sh *SSEHandler) untrack(userID uuid.UUID, client *sse.SSEClient) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if set, ok := sh.clients[userID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(sh.clients, userID)
		}
	}
}

// SSEStream holds the connection open and writes progress events as they are
// published on the caller's channel. Every stream is subscribed to the user
// channel, so a toggle from any device updates every open session.
func (sh *SSEHandler) SSEStream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, apierr.Unauthorized("not authenticated"))
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		RespondError(c, fmt.Errorf("streaming unsupported"))
		return
	}

	client := sh.hub.NewSSEClient(rd.UserID)
	sh.hub.AddChannel(client, sse.UserChannel(rd.UserID))
	sh.track(rd.UserID, client)
	defer func() {
		sh.untrack(rd.UserID, client)
		sh.hub.RemoveClient(client)
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	sh.log.Debug("SSE stream open", "clientID", client.ID, "userID", rd.UserID)
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-client.Done():
			return
		case msg := <-client.Outbound:
			payload, err := json.Marshal(msg.Data)
			if err != nil {
				sh.log.Warn("Dropping unencodable SSE message", "event", msg.Event, "error", err)
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", msg.Event, payload)
			flusher.Flush()
		}
	}
}

// SSESubscribe adds all of the caller's open streams to an extra channel.
func (sh *SSEHandler) SSESubscribe(c *gin.Context) {
	sh.updateSubscription(c, sh.hub.AddChannel)
}

func (sh *SSEHandler) SSEUnsubscribe(c *gin.Context) {
	sh.updateSubscription(c, sh.hub.RemoveChannel)
}

func (sh *SSEHandler) updateSubscription(c *gin.Context, apply func(*sse.SSEClient, string)) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, apierr.Unauthorized("not authenticated"))
		return
	}
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
		RespondError(c, apierr.InvalidArgument("channel required"))
		return
	}

	sh.mu.Lock()
	for client := range sh.clients[rd.UserID] {
		apply(client, req.Channel)
	}
	sh.mu.Unlock()
	RespondOK(c, gin.H{"success": true})
}
