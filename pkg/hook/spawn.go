package hook

import "context"

// ChildSpec describes one process this hook should bring up as a named
// peer once it has started, passed through verbatim to whatever Spawner is
// configured. Hook itself never interprets Command or Options; it only
// hands the spec to the Spawner together with the broker endpoint it just
// bound or connected to, so the child can find its way back.
type ChildSpec struct {
	Name    string
	Type    string
	Command string
	Args    []string
	Options map[string]any
}

// Child is a handle to a process started by a Spawner.
type Child interface {
	// Name is the child's configured name, used to address Kill calls.
	Name() string
	// Wait blocks until the child exits.
	Wait(ctx context.Context) error
	// Kill terminates the child.
	Kill(ctx context.Context) error
}

// Spawner launches and supervises child processes on behalf of a Hook.
// This package defines the interface only: process supervision, restart
// policy, and log capture are the concern of whatever Spawner implementation
// a caller wires in (a Docker-backed spawner, a plain os/exec spawner, or
// none at all for a hook with no children).
type Spawner interface {
	Spawn(ctx context.Context, spec ChildSpec, brokerHost string, brokerPort int) (Child, error)
}
