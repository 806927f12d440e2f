// Package delivery is the single entry point for sending a message. Every
// path (websocket inbound, REST fallback) routes through Coordinator.Send,
// which persists first and broadcasts strictly after persistence succeeds.
package delivery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rackup-app/messaging/internal/domain"
	"github.com/rackup-app/messaging/internal/observability"
	"github.com/rackup-app/messaging/internal/store"
	"github.com/rackup-app/messaging/internal/ws"
)

type Coordinator struct {
	store       store.ConversationStore
	hub         *ws.Hub
	relay       *Relay
	events      *EventPublisher
	serviceName string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCoordinator(s store.ConversationStore, hub *ws.Hub, relay *Relay, events *EventPublisher, serviceName string) *Coordinator {
	return &Coordinator{
		store:       s,
		hub:         hub,
		relay:       relay,
		events:      events,
		serviceName: serviceName,
		locks:       make(map[string]*sync.Mutex),
	}
}

// convLock serializes append+broadcast per conversation so every subscriber
// observes the store's append order. Appends to different conversations do
// not contend.
func (c *Coordinator) convLock(conversationID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[conversationID] = lock
	}
	return lock
}

// Send appends the message to the durable log and fans it out to every open
// handle of the conversation, including the sender's own. A failed broadcast
// never fails the send: durability lives in the store and clients recover by
// refetching history.
func (c *Coordinator) Send(ctx context.Context, conversationID, senderID, text string) (*domain.Message, error) {
	log := observability.GetLogger(ctx)

	lock := c.convLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	msg, err := c.store.AppendMessage(ctx, conversationID, senderID, text)
	if err != nil {
		return nil, err
	}
	observability.MessagesAppendedTotal.WithLabelValues(c.serviceName, "coordinator").Inc()

	payload, err := ws.MessageFrame(msg)
	if err != nil {
		log.Error("frame encode failed", zap.String("message_id", msg.ID), zap.Error(err))
		return msg, nil
	}

	delivered := c.hub.Broadcast(conversationID, payload)
	observability.MessageBroadcastLatency.WithLabelValues(c.serviceName).Observe(time.Since(start).Seconds())

	log.Debug("message broadcast",
		zap.String("conversation_id", conversationID),
		zap.String("message_id", msg.ID),
		zap.Int("local_sessions", delivered),
	)

	if c.relay != nil {
		if err := c.relay.Publish(ctx, conversationID, payload); err != nil {
			log.Warn("cross-instance relay failed", zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}

	if c.events != nil {
		c.events.Emit(msg)
	}

	return msg, nil
}
