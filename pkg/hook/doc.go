// Package hook implements the core of a distributed, hierarchical,
// wildcard-capable publish/subscribe event bus for cooperating processes.
//
// A Hook is a process-local runtime: it owns an event emitter, a topic tree,
// and a single network role (broker or peer) negotiated at Start time. One
// hook in a group binds a listening socket and becomes the broker; the rest
// dial out and become peers. The broker answers report, message, hasEvent
// and listPeers on each peer connection; a peer answers only message and
// hasEvent on its connection to the broker (it has no report handler). This
// lets an event emitted on any one process reach listeners registered on
// any other, subject to each peer's own subscriptions.
//
// Configuration loading from files, child-process supervision, CLI argument
// parsing, and concrete auxiliary transport drivers are deliberately kept
// out of this package; Hook only defines the interfaces
// (Spawner, AuxTransport, Logger) that those external collaborators satisfy.
package hook
