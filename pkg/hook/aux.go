package hook

import (
	"context"
	"fmt"
	"sync"
)

// AuxTransport is a side channel an emitted event is also handed to,
// alongside normal local delivery and broker forwarding: a durable log, a
// metrics sink, a bridge onto another message bus. Message is the single
// call every aux transport driver must support; concrete drivers (a Redis
// publisher, for instance) live outside this package and register
// themselves under a type key via RegisterAuxTransport.
type AuxTransport interface {
	Message(ctx context.Context, topic string, data any) error
}

// AuxTransportFactory builds an AuxTransport from its declared options.
type AuxTransportFactory func(opts map[string]any) (AuxTransport, error)

var (
	auxRegistryMu sync.Mutex
	auxRegistry   = map[string]AuxTransportFactory{}
)

// RegisterAuxTransport makes a transport driver available under typeName
// for use in Options.Transports. Drivers call this from an init function in
// their own package.
func RegisterAuxTransport(typeName string, factory AuxTransportFactory) {
	auxRegistryMu.Lock()
	defer auxRegistryMu.Unlock()
	auxRegistry[typeName] = factory
}

func buildAuxTransport(spec TransportSpec) (AuxTransport, error) {
	auxRegistryMu.Lock()
	factory, ok := auxRegistry[spec.Type]
	auxRegistryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("hook: no auxiliary transport registered for type %q", spec.Type)
	}
	return factory(spec.Options)
}
