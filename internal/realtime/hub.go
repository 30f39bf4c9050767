package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"portfolio-site-api/internal/cache"
	"portfolio-site-api/internal/logger"
	"portfolio-site-api/internal/metrics"
)

// Channel groups websocket clients that receive the same broadcasts.
type Channel string

const (
	ChannelPublic Channel = "public"
	ChannelAdmin  Channel = "admin"
)

// Client represents a single websocket client connection.
// The network conn itself is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Message is the envelope written to every client.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	TypeCache        = "cache"
	TypeNotification = "notification"
)

// Notification levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notification is a transient message for the admin UI.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Hub maintains active connections per channel and broadcasts to them.
type Hub struct {
	mu       sync.RWMutex
	channels map[Channel]map[Client]struct{}
	log      *zap.Logger
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[Channel]map[Client]struct{}),
		log:      logger.WithModule("realtime"),
	}
}

// Register adds a client to a channel.
func (h *Hub) Register(channel Channel, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[Client]struct{})
	}
	h.channels[channel][client] = struct{}{}
	metrics.RealtimeClients.WithLabelValues(string(channel)).Set(float64(len(h.channels[channel])))
}

// Unregister removes a client; an empty channel is dropped from the map.
func (h *Hub) Unregister(channel Channel, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(clients, client)
	metrics.RealtimeClients.WithLabelValues(string(channel)).Set(float64(len(clients)))
	if len(clients) == 0 {
		delete(h.channels, channel)
	}
}

// Count returns the number of clients on channel.
func (h *Hub) Count(channel Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Broadcast sends a raw message to every client of a channel.
func (h *Hub) Broadcast(channel Channel, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.channels[channel] {
		if ok := c.Send(message); !ok {
			// write failed; the handler unregisters it when its reader exits
			h.log.Debug("dropping message for client", zap.String("channel", string(channel)))
		}
	}
}

// Publish encodes msg once and broadcasts it to each channel.
func (h *Hub) Publish(msg Message, channels ...Channel) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encoding realtime message", zap.Error(err), zap.String("type", msg.Type))
		return
	}
	for _, ch := range channels {
		h.Broadcast(ch, data)
	}
}

// NotifySuccess sends a success notification to admin clients.
func (h *Hub) NotifySuccess(message string) {
	h.Publish(Message{Type: TypeNotification, Payload: Notification{Level: LevelSuccess, Message: message}}, ChannelAdmin)
}

// NotifyError sends an error notification to admin clients.
func (h *Hub) NotifyError(message string) {
	h.Publish(Message{Type: TypeNotification, Payload: Notification{Level: LevelError, Message: message}}, ChannelAdmin)
}

// Bridge forwards cache events to the public and admin channels until ctx is
// done or every source closes.
func (h *Hub) Bridge(ctx context.Context, sources ...<-chan cache.Event) {
	h.bridge(ctx, []Channel{ChannelPublic, ChannelAdmin}, sources)
}

// BridgeAdmin is Bridge for events that may name unpublished content.
func (h *Hub) BridgeAdmin(ctx context.Context, sources ...<-chan cache.Event) {
	h.bridge(ctx, []Channel{ChannelAdmin}, sources)
}

func (h *Hub) bridge(ctx context.Context, channels []Channel, sources []<-chan cache.Event) {
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src <-chan cache.Event) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case evt, ok := <-src:
					if !ok {
						return
					}
					h.Publish(Message{Type: TypeCache, Payload: evt}, channels...)
				}
			}
		}(src)
	}
	wg.Wait()
}
