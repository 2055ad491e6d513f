package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

// RedisRelay fans events out across server instances over Redis pub/sub.
// Delivery stays best-effort: messages published while an instance is not
// subscribed are lost.
type RedisRelay struct {
	client   *redis.Client
	channel  string
	instance string
	hub      *Hub
	logger   *logging.Logger
	ready    chan struct{}
}

type relayMessage struct {
	Origin  string `json:"origin"`
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub, logger *logging.Logger) *RedisRelay {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisRelay{
		client:   client,
		channel:  channel,
		instance: uuid.NewString(),
		hub:      hub,
		logger:   logger,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once Run holds an active subscription.
func (r *RedisRelay) Ready() <-chan struct{} { return r.ready }

// Forward publishes ev for the other instances.
func (r *RedisRelay) Forward(ctx context.Context, channel string, ev Event) error {
	data, err := json.Marshal(relayMessage{Origin: r.instance, Channel: channel, Event: ev})
	if err != nil {
		return fmt.Errorf("realtime: marshal relay message: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("realtime: relay publish: %w", err)
	}
	return nil
}

// Run re-publishes events from other instances into the local hub until ctx
// is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("realtime: relay subscribe: %w", err)
	}
	close(r.ready)
	r.logger.Info("realtime relay subscribed", "channel", r.channel, "instance", r.instance)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var m relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				r.logger.Warn("realtime relay message discarded", "error", err)
				continue
			}
			if m.Origin == r.instance {
				continue
			}
			r.hub.Publish(m.Channel, m.Event, nil)
		}
	}
}
