package hook

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Role is the network posture a Hook settled into at Start.
type Role int

const (
	// RoleUnstarted is the zero value: Start has not yet been called.
	RoleUnstarted Role = iota
	// RoleServer means this hook bound a listening socket and is acting
	// as the broker for every other hook in the group.
	RoleServer
	// RoleClient means this hook dialed out to a broker bound by another
	// process.
	RoleClient
	// RoleStopped means Stop (or a client's self-Kill) has been called; the
	// hook no longer participates in the mesh.
	RoleStopped
)

type auxBinding struct {
	spec      TransportSpec
	transport AuxTransport
}

// Hook is a single process's event-bus runtime: an Emitter for local
// listeners, a network role negotiated at Start (broker or peer), and the
// plumbing an emitted event passes through on its way out and back in.
// A zero Hook is not usable; construct one with New.
type Hook struct {
	opts Options

	emitter *Emitter

	mu       sync.Mutex
	role     Role
	selfName string

	// server role
	listener net.Listener
	registry *Registry
	conns    map[uuid.UUID]*Conn

	// client role
	broker     *Conn
	brokerHost string
	brokerPort int

	auxTransports []auxBinding
	children      map[string]Child

	// silenced is set by a client's self-kill (Kill with an empty target):
	// the connection is already gone and every listener already removed, so
	// Emit becomes a no-op rather than reaching for network state that no
	// longer exists.
	silenced bool

	acceptWG sync.WaitGroup
}

// New constructs a Hook from opts, applying defaults and registering any
// EventMap listeners immediately so they are live even before Start.
func New(opts Options) *Hook {
	opts = opts.withDefaults()
	h := &Hook{
		opts:     opts,
		emitter:  NewEmitter(),
		selfName: opts.Name,
		conns:    make(map[uuid.UUID]*Conn),
		children: make(map[string]Child),
	}
	h.emitter.notify = func(topic string, data any) { h.Emit(topic, data, nil) }
	for pattern, fn := range opts.EventMap {
		h.emitter.On(pattern, fn)
	}
	return h
}

// On registers a listener against pattern.
func (h *Hook) On(pattern string, fn Listener) { h.emitter.On(pattern, fn) }

// Once registers a single-shot listener against pattern.
func (h *Hook) Once(pattern string, fn Listener) { h.emitter.Once(pattern, fn) }

// Off removes a listener registered against pattern.
func (h *Hook) Off(pattern string, fn Listener) { h.emitter.Off(pattern, fn) }

// RemoveAllListeners clears every listener registered under pattern.
func (h *Hook) RemoveAllListeners(pattern string) { h.emitter.RemoveAll(pattern) }

// Listeners returns the listeners registered under the exact pattern string.
func (h *Hook) Listeners(pattern string) []Listener { return h.emitter.Listeners(pattern) }

// OnAny registers fn to observe every event dispatched through this hook,
// regardless of pattern, receiving the topic alongside its data.
func (h *Hook) OnAny(fn AnyListener) { h.emitter.OnAny(fn) }

// Name returns the hook's current negotiated name; before Start completes
// this is the requested name from Options.
func (h *Hook) Name() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selfName
}

// Role reports the hook's current network posture.
func (h *Hook) Role() Role {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.role
}

// Start brings the hook onto the network: it first attempts to bind a
// listening socket and become the broker; if that fails with a BindError
// (the address is already occupied), it falls back to dialing out and
// becoming a client of whoever is already listening there.
func (h *Hook) Start(ctx context.Context) error {
	if err := h.tryListen(ctx); err != nil {
		var bindErr *BindError
		if !asBindError(err, &bindErr) {
			return err
		}
		if err := h.connect(ctx); err != nil {
			return err
		}
		return nil
	}
	return nil
}

func asBindError(err error, target **BindError) bool {
	be, ok := err.(*BindError)
	if ok {
		*target = be
	}
	return ok
}

func (h *Hook) buildAuxTransports() error {
	for _, spec := range h.opts.Transports {
		t, err := buildAuxTransport(spec)
		if err != nil {
			return err
		}
		h.auxTransports = append(h.auxTransports, auxBinding{spec: spec, transport: t})
	}
	return nil
}

func (h *Hook) afterStarted(ctx context.Context) {
	if len(h.opts.Hooks) == 0 || h.opts.Spawner == nil {
		h.Emit("hook::ready", nil, nil)
		return
	}
	h.mu.Lock()
	host, port := h.brokerHost, h.brokerPort
	h.mu.Unlock()
	var spawned []string
	for _, spec := range h.opts.Hooks {
		child, err := h.opts.Spawner.Spawn(ctx, spec, host, port)
		if err != nil {
			h.Emit("hook::error", err, nil)
			continue
		}
		h.mu.Lock()
		h.children[spec.Name] = child
		h.mu.Unlock()
		spawned = append(spawned, spec.Name)
	}
	h.awaitChildrenReady(ctx, spawned)
	h.Emit("children::ready", spawned, nil)
	h.Emit("hook::ready", nil, nil)
}

// awaitChildrenReady blocks until every spawned child has registered itself
// as a peer with the broker (this hook, or the broker it is connected to) or
// the wait times out, whichever comes first. A
// spawned child only becomes "ready" from this hook's point of view once it
// has connected and reported in; there is no separate readiness RPC, so
// registry membership is the observable proxy for it. A child that never
// shows up within the window does not block startup forever — hook::ready
// still fires, and hook::error already reported the spawn failure if that
// was the cause.
func (h *Hook) awaitChildrenReady(ctx context.Context, names []string) {
	if len(names) == 0 {
		return
	}

	deadline := time.Now().Add(h.opts.ChildReadyTimeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		known := h.knownPeerNames(ctx)
		pending := 0
		for _, name := range names {
			if !known[name] {
				pending++
			}
		}
		if pending == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// knownPeerNames reports the names of every peer this hook currently knows
// about, asking its own registry directly (broker role) or the broker over
// the wire (client role, since a client spawning children always points
// them at the broker it is itself connected to, not at itself).
func (h *Hook) knownPeerNames(ctx context.Context) map[string]bool {
	peers, err := h.Peers(ctx)
	if err != nil {
		return nil
	}
	known := make(map[string]bool, len(peers))
	for _, p := range peers {
		known[p.Name] = true
	}
	return known
}

// Stop gracefully tears the hook down: it closes every connection (client
// side, its single connection to the broker; server side, every connected
// peer plus the listening socket) without killing any spawned children.
func (h *Hook) Stop(ctx context.Context) error {
	h.mu.Lock()
	role := h.role
	h.mu.Unlock()
	if role == RoleUnstarted {
		return &NothingToStopError{}
	}

	h.mu.Lock()
	h.role = RoleStopped
	listener := h.listener
	broker := h.broker
	conns := h.conns
	h.conns = make(map[uuid.UUID]*Conn)
	h.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	if broker != nil {
		_ = broker.Close()
	}
	h.Emit("hook::stopped", nil, nil)
	return nil
}

// Kill terminates the named spawned child via the external supervisor. With
// an empty name it instead targets the hook itself: on the broker this is
// refused, since there is no supervisor above it to ask; on a client it
// closes the broker connection, drops every local listener, and silences
// Emit, leaving the hook a quiet husk until the process exits.
func (h *Hook) Kill(ctx context.Context, name string) error {
	if name == "" {
		return h.killSelf()
	}
	h.mu.Lock()
	child, ok := h.children[name]
	h.mu.Unlock()
	if !ok {
		return &NothingToKillError{Target: name}
	}
	if err := child.Kill(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.children, name)
	h.mu.Unlock()
	return nil
}

func (h *Hook) killSelf() error {
	h.mu.Lock()
	role := h.role
	broker := h.broker
	if role == RoleClient {
		h.role = RoleStopped
		h.broker = nil
	}
	h.mu.Unlock()

	if role != RoleClient {
		return &CannotKillServerError{}
	}

	if broker != nil {
		_ = broker.Close()
	}
	for _, pattern := range h.emitter.Enumerate() {
		h.emitter.RemoveAll(pattern)
	}

	h.mu.Lock()
	h.silenced = true
	h.mu.Unlock()
	return nil
}

// Peers reports every hook currently connected to the group's broker, the
// broker itself excluded: if this hook is the broker, straight from its own
// registry; if it is a client, via a round trip to the broker, since only
// the broker keeps the full membership (the list a client gets back
// therefore includes that client itself).
func (h *Hook) Peers(ctx context.Context) ([]PeerInfo, error) {
	h.mu.Lock()
	role := h.role
	broker := h.broker
	h.mu.Unlock()

	if role == RoleServer {
		return h.peerInfos(), nil
	}
	if role != RoleClient || broker == nil {
		return nil, nil
	}
	var reply listPeersReply
	if err := broker.Call(ctx, "listPeers", nil, &reply); err != nil {
		return nil, err
	}
	return reply.Peers, nil
}

// peerInfos reports every *other* connected hook, for callers like
// hookctl's "peers" command and the listPeers RPC: the registry also
// carries a self PeerRecord (so the broker's own subscriptions are mirrored
// through the same bookkeeping as everyone else's), but that entry is
// internal and not itself a connected peer.
func (h *Hook) peerInfos() []PeerInfo {
	h.mu.Lock()
	selfName := h.selfName
	h.mu.Unlock()

	peers := h.registry.Peers()
	infos := make([]PeerInfo, 0, len(peers))
	for _, p := range peers {
		if p.Name == selfName {
			continue
		}
		subs := p.Subscriptions()
		patterns := make([]string, 0, len(subs))
		for pattern := range subs {
			patterns = append(patterns, pattern)
		}
		infos = append(infos, PeerInfo{
			Name:          p.Name,
			Type:          p.Type,
			RemoteAddress: p.RemoteAddress,
			RemotePort:    p.RemotePort,
			Subscriptions: patterns,
		})
	}
	return infos
}

func newReconnectBackoff(maxElapsed time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	return b
}
