package hook

import "time"

// Logger receives every event passed to Emit, before normalization and
// before it reaches any transport, except the reserved listener meta-events,
// which Emit handles before this step. A nil Logger disables this pipeline
// step entirely.
type Logger interface {
	Log(topic string, data any)
}

// TransportSpec declares one auxiliary transport to instantiate at Start
// time, resolved against the registry populated by RegisterAuxTransport.
type TransportSpec struct {
	Type    string
	Options map[string]any
}

// Options configures a Hook before Start. Zero values take the defaults
// documented on each field.
type Options struct {
	// Name is the hook's requested name; defaults to "no-name" and is
	// uniquified by the broker on connect if already taken.
	Name string
	// Type is a free-form label describing what kind of hook this is;
	// defaults to "hook".
	Type string
	// Version is compared for strict inequality against the broker's
	// reported version on connect; mismatches fail Start.
	Version string

	// Host is resolved to a concrete bind/dial address; defaults to the
	// loopback interface.
	Host string
	// Port is the TCP port to bind or dial; defaults to 5000.
	Port int
	// Socket, if set, binds/dials a unix domain socket instead of TCP,
	// taking precedence over Host/Port.
	Socket string

	// Debug is carried through from configuration; this package does not
	// read it and logs nothing of its own.
	Debug bool
	// Quiet is carried through from configuration; this package does not
	// read it and logs nothing of its own.
	Quiet bool

	// Logger, if set, observes every non-meta emit before it leaves this
	// process.
	Logger Logger

	// Transports declares the auxiliary transports to instantiate at
	// Start; each Type must have a driver registered via
	// RegisterAuxTransport.
	Transports []TransportSpec

	// EventMap pre-registers listeners at construction time, pattern to
	// handler, equivalent to calling On for each entry.
	EventMap map[string]Listener

	// Hooks, if non-empty, are spawned via Spawner once this hook has
	// started, each pointed at the endpoint this hook just bound or
	// connected to.
	Hooks []ChildSpec
	// Spawner launches the processes declared in Hooks; required only if
	// Hooks is non-empty.
	Spawner Spawner

	// ReconnectMaxElapsed bounds how long connect retries with backoff
	// before giving up; zero means retry indefinitely.
	ReconnectMaxElapsed time.Duration

	// ChildReadyTimeout bounds how long Start waits for every spawned child
	// to register itself as a peer before emitting hook::ready regardless.
	ChildReadyTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "no-name"
	}
	if o.Type == "" {
		o.Type = "hook"
	}
	if o.Host == "" {
		o.Host = "127.0.0.1"
	}
	if o.Port == 0 {
		o.Port = 5000
	}
	if o.ChildReadyTimeout == 0 {
		o.ChildReadyTimeout = 10 * time.Second
	}
	return o
}
