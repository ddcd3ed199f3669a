// Package auxredis wires a Redis pub/sub channel into the hook bus as an
// auxiliary transport, so every emitted event is also published to a
// fan-out-capable channel that processes outside the mesh (a log shipper, a
// dashboard) can subscribe to independently. Redis pub/sub keeps nothing:
// a message published while no subscriber is listening is lost.
package auxredis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/hookbus/pkg/hook"
)

// TypeName is the Options.Transports[].Type value that selects this driver.
const TypeName = "redis"

func init() {
	hook.RegisterAuxTransport(TypeName, New)
}

// Transport publishes every event it is handed to a single Redis channel as
// a JSON envelope of {topic, data}.
type Transport struct {
	client  *redis.Client
	channel string
}

type envelope struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// New builds a Transport from opts: "addr" (default "127.0.0.1:6379"),
// "channel" (default "hookbus"), and optionally "password"/"db".
func New(opts map[string]any) (hook.AuxTransport, error) {
	addr, _ := opts["addr"].(string)
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	channel, _ := opts["channel"].(string)
	if channel == "" {
		channel = "hookbus"
	}
	password, _ := opts["password"].(string)
	db := 0
	if v, ok := opts["db"].(int); ok {
		db = v
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Transport{client: client, channel: channel}, nil
}

// Message publishes topic and data to the configured Redis channel.
func (t *Transport) Message(ctx context.Context, topic string, data any) error {
	raw, err := json.Marshal(envelope{Topic: topic, Data: data})
	if err != nil {
		return fmt.Errorf("auxredis: marshal: %w", err)
	}
	if err := t.client.Publish(ctx, t.channel, raw).Err(); err != nil {
		return fmt.Errorf("auxredis: publish: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client connection.
func (t *Transport) Close() error {
	return t.client.Close()
}
