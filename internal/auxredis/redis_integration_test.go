//go:build integration
// +build integration

package auxredis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a real Redis container for testing against an
// actual server instead of miniredis's in-memory approximation.
func setupRedisContainer(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	cleanup := func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	}

	return fmt.Sprintf("%s:%s", host, port.Port()), cleanup
}

func TestTransportAgainstRealRedis(t *testing.T) {
	addr, cleanup := setupRedisContainer(t)
	defer cleanup()

	transport, err := New(map[string]any{"addr": addr, "channel": "hookbus-integration"})
	if err != nil {
		t.Fatalf("failed to build transport: %v", err)
	}
	defer transport.(*Transport).Close()

	sub := redis.NewClient(&redis.Options{Addr: addr})
	defer sub.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pubsub := sub.Subscribe(ctx, "hookbus-integration")
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	if err := transport.Message(ctx, "alpha::one", map[string]int{"v": 1}); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	select {
	case msg := <-pubsub.Channel():
		if msg.Payload == "" {
			t.Fatal("expected non-empty payload")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message received from real redis")
	}
}
