package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const realtimeChannelPrefix = "realtime:"

// Event is the message published for every realtime event.
type Event struct {
	Name      string                 `json:"event"`
	Payload   map[string]interface{} `json:"payload"`
	EmittedAt time.Time              `json:"emitted_at"`
}

// EventPublisher publishes realtime events on Redis pub/sub channels.
type EventPublisher struct {
	client *redis.Client
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// Emit publishes payload on the channel "realtime:<name>".
func (p *EventPublisher) Emit(ctx context.Context, name string, payload map[string]interface{}) error {
	data, err := json.Marshal(Event{Name: name, Payload: payload, EmittedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Channel(name), data).Err()
}

// Channel returns the pub/sub channel of an event name.
func Channel(name string) string {
	return realtimeChannelPrefix + name
}
