package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Fantasim/crowdfund/internal/config"
)

// Event represents an SSE event to broadcast to connected clients.
type Event struct {
	Type string      `json:"type"` // "campaign_updated", "sync_complete"
	Data interface{} `json:"data"`
}

// CampaignUpdatedData is the payload for campaign_updated events.
type CampaignUpdatedData struct {
	CampaignID        string `json:"campaignId"`
	RaisedAmount      string `json:"raisedAmount"`
	TargetAmount      string `json:"targetAmount"`
	Active            bool   `json:"active"`
	Withdrawn         bool   `json:"withdrawn"`
	ContributionCount int    `json:"contributionCount"`
	SyncID            string `json:"syncId"`
}

// SyncCompleteData is the payload for sync_complete events.
type SyncCompleteData struct {
	SyncID    string `json:"syncId"`
	Campaigns int    `json:"campaigns"`
	Failures  int    `json:"failures"`
	Duration  string `json:"duration"`
}

// Hub manages fan-out broadcasting of events to connected SSE clients.
type Hub struct {
	clients map[chan Event]struct{}
	closed  bool
	mu      sync.RWMutex
}

// NewHub creates a new SSE event hub.
func NewHub() *Hub {
	slog.Info("SSE hub created")
	return &Hub{
		clients: make(map[chan Event]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes every client channel.
func (h *Hub) Run(ctx context.Context) {
	slog.Info("SSE hub running")
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.clients {
		close(ch)
		delete(h.clients, ch)
	}

	slog.Info("SSE hub stopped", "reason", ctx.Err())
}

// Subscribe registers a new client and returns a channel to receive events.
// Once the hub has stopped the returned channel is already closed.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, config.SSEHubChannelBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		slog.Debug("SSE subscribe after hub stopped")
		return ch
	}
	h.clients[ch] = struct{}{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	slog.Info("SSE client subscribed", "totalClients", clientCount)
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	clientCount := len(h.clients)
	h.mu.Unlock()

	slog.Info("SSE client unsubscribed", "totalClients", clientCount)
}

// Broadcast sends an event to all connected clients.
// A client whose buffer is full misses the event.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- event:
		default:
			slog.Warn("SSE event dropped for slow client",
				"eventType", event.Type,
			)
		}
	}

	slog.Debug("SSE event broadcast",
		"type", event.Type,
		"clients", len(h.clients),
	)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
