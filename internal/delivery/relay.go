package delivery

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rackup-app/messaging/internal/observability"
	"github.com/rackup-app/messaging/internal/ws"
)

const relayChannel = "chat:deliveries"

type relayEnvelope struct {
	InstanceID     string          `json:"instanceId"`
	ConversationID string          `json:"conversationId"`
	Payload        json.RawMessage `json:"payload"`
}

// Relay fans broadcasts out to sibling instances over redis pubsub, so a
// participant connected to another instance still gets the push. Envelopes
// carry the origin instance id; an instance never re-delivers its own.
type Relay struct {
	client     *redis.Client
	hub        *ws.Hub
	instanceID string
}

func NewRelay(client *redis.Client, hub *ws.Hub, instanceID string) *Relay {
	return &Relay{client: client, hub: hub, instanceID: instanceID}
}

func (r *Relay) Publish(ctx context.Context, conversationID string, payload []byte) error {
	env, err := json.Marshal(relayEnvelope{
		InstanceID:     r.instanceID,
		ConversationID: conversationID,
		Payload:        payload,
	})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, relayChannel, env).Err()
}

func (r *Relay) Subscribe(ctx context.Context) {
	pubsub := r.client.Subscribe(ctx, relayChannel)

	go func() {
		log := observability.GetLogger(ctx)
		log.Info("relay subscribed", zap.String("channel", relayChannel))
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Info("relay subscription stopping: context canceled")
				return
			case msg, ok := <-ch:
				if !ok {
					log.Warn("relay pubsub channel closed")
					return
				}
				r.deliver([]byte(msg.Payload))
			}
		}
	}()
}

func (r *Relay) deliver(raw []byte) {
	log := observability.GetLogger(context.Background())

	var env relayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Error("relay: bad envelope", zap.Error(err))
		return
	}
	if env.InstanceID == r.instanceID {
		return
	}

	delivered := r.hub.Broadcast(env.ConversationID, env.Payload)
	if delivered > 0 {
		log.Debug("relay delivery",
			zap.String("conversation_id", env.ConversationID),
			zap.Int("local_sessions", delivered),
		)
	}
}
