package hook

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition not met before timeout")
}

func TestHookFirstStarterBecomesServer(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h1 := New(Options{Name: "h1", Port: port})
	require.NoError(t, h1.Start(ctx))
	defer h1.Stop(context.Background())
	assert.Equal(t, RoleServer, h1.Role())

	h2 := New(Options{Name: "h2", Port: port})
	require.NoError(t, h2.Start(ctx))
	defer h2.Stop(context.Background())
	assert.Equal(t, RoleClient, h2.Role())
}

func TestHookNameUniquification(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h1 := New(Options{Name: "dup", Port: port})
	require.NoError(t, h1.Start(ctx))
	defer h1.Stop(context.Background())

	h2 := New(Options{Name: "dup", Port: port})
	require.NoError(t, h2.Start(ctx))
	defer h2.Stop(context.Background())

	assert.Equal(t, "dup-0", h2.Name())
}

func TestHookEmitReachesRemoteListener(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h1 := New(Options{Name: "h1", Port: port})
	require.NoError(t, h1.Start(ctx))
	defer h1.Stop(context.Background())

	h2 := New(Options{Name: "h2", Port: port})
	received := make(chan any, 1)
	h2.On("alpha::*", func(data any, reply ReplyFunc) { received <- data })
	require.NoError(t, h2.Start(ctx))
	defer h2.Stop(context.Background())

	// Give h2's report handshake (with its initial topic list) time to land
	// at the broker before h1 emits.
	waitFor(t, time.Second, func() bool {
		_, ok := h1.registry.ByName("h2")
		return ok
	})

	h1.Emit("alpha::one", map[string]int{"v": 1}, nil)

	select {
	case data := <-received:
		// The payload crosses the wire as JSON, so numeric fields come back
		// as float64 rather than the original int.
		assert.Equal(t, map[string]interface{}{"v": float64(1)}, data)
	case <-time.After(2 * time.Second):
		t.Fatal("remote listener was never invoked")
	}
}

func TestHookRegistryMirrorsPostConnectSubscriptionChanges(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	broker := New(Options{Name: "broker", Port: port})
	require.NoError(t, broker.Start(ctx))
	defer broker.Stop(context.Background())

	peer := New(Options{Name: "peer", Port: port})
	require.NoError(t, peer.Start(ctx))
	defer peer.Stop(context.Background())

	waitFor(t, time.Second, func() bool {
		_, ok := broker.registry.ByName("peer")
		return ok
	})

	handle := func(data any, reply ReplyFunc) {}
	peer.On("alpha::*", handle)

	waitFor(t, time.Second, func() bool {
		rec, ok := broker.registry.ByName("peer")
		return ok && rec.Subscriptions()["alpha::*"] == 1
	})
	rec, ok := broker.registry.ByName("peer")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Subscriptions()["alpha::*"])

	peer.Off("alpha::*", handle)

	waitFor(t, time.Second, func() bool {
		rec, ok := broker.registry.ByName("peer")
		return ok && rec.Subscriptions()["alpha::*"] == 0
	})
	assert.NotContains(t, rec.Subscriptions(), "alpha::*")
}

func TestHookRegistrySeedsAndMirrorsBrokerSelfSubscriptions(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	broker := New(Options{Name: "broker", Port: port})
	broker.On("boot::*", func(data any, reply ReplyFunc) {})
	require.NoError(t, broker.Start(ctx))
	defer broker.Stop(context.Background())

	self, ok := broker.registry.ByName("broker")
	require.True(t, ok)
	assert.Equal(t, 1, self.Subscriptions()["boot::*"])

	broker.On("alpha::*", func(data any, reply ReplyFunc) {})
	waitFor(t, time.Second, func() bool {
		return self.Subscriptions()["alpha::*"] == 1
	})
}

func TestHookKillUnknownChild(t *testing.T) {
	h := New(Options{Name: "solo"})
	err := h.Kill(context.Background(), "nope")
	var nk *NothingToKillError
	require.ErrorAs(t, err, &nk)
}

func TestHookStopBeforeStart(t *testing.T) {
	h := New(Options{Name: "solo"})
	err := h.Stop(context.Background())
	var ns *NothingToStopError
	require.ErrorAs(t, err, &ns)
}

func TestHookKillSelfRefusedOnBroker(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := New(Options{Name: "broker", Port: port})
	require.NoError(t, h.Start(ctx))
	defer h.Stop(context.Background())

	err := h.Kill(ctx, "")
	var ck *CannotKillServerError
	require.ErrorAs(t, err, &ck)
	assert.Equal(t, RoleServer, h.Role())
}

func TestHookKillSelfOnClientSilencesEmit(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	broker := New(Options{Name: "broker", Port: port})
	require.NoError(t, broker.Start(ctx))
	defer broker.Stop(context.Background())

	h := New(Options{Name: "client", Port: port})
	received := make(chan any, 1)
	h.On("alpha::*", func(data any, reply ReplyFunc) { received <- data })
	require.NoError(t, h.Start(ctx))

	require.NoError(t, h.Kill(ctx, ""))
	assert.Equal(t, RoleStopped, h.Role())
	assert.Empty(t, h.emitter.Enumerate())

	// Emit is now a silent no-op: nothing panics, nothing is delivered.
	h.Emit("alpha::one", map[string]int{"v": 1}, nil)
	select {
	case <-received:
		t.Fatal("listener fired after self-kill silenced the hook")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHookAwaitsChildrenReadyBeforeHookReady(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	broker := New(Options{Name: "broker", Port: port})
	require.NoError(t, broker.Start(ctx))
	defer broker.Stop(context.Background())

	var order []string
	spawner := &fakeSpawner{
		spawn: func(ctx context.Context, spec ChildSpec, host string, port int) (Child, error) {
			go func() {
				c := New(Options{Name: spec.Name, Host: host, Port: port})
				require.NoError(t, c.Start(ctx))
			}()
			return &fakeChild{name: spec.Name}, nil
		},
	}
	h := New(Options{
		Name:    "parent",
		Port:    port,
		Hooks:   []ChildSpec{{Name: "child"}},
		Spawner: spawner,
	})
	h.On("children::ready", func(data any, reply ReplyFunc) {
		_, registered := broker.registry.ByName("child")
		require.True(t, registered, "children::ready fired before the child had registered with the broker")
		order = append(order, "children::ready")
	})
	h.On("hook::ready", func(data any, reply ReplyFunc) { order = append(order, "hook::ready") })

	require.NoError(t, h.Start(ctx))
	defer h.Stop(context.Background())

	assert.Equal(t, []string{"children::ready", "hook::ready"}, order)
}

type fakeSpawner struct {
	spawn func(ctx context.Context, spec ChildSpec, host string, port int) (Child, error)
}

func (f *fakeSpawner) Spawn(ctx context.Context, spec ChildSpec, host string, port int) (Child, error) {
	return f.spawn(ctx, spec, host, port)
}

type fakeChild struct{ name string }

func (c *fakeChild) Name() string                   { return c.name }
func (c *fakeChild) Wait(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }
func (c *fakeChild) Kill(ctx context.Context) error { return nil }
