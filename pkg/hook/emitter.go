package hook

import (
	"reflect"
	"sync"
)

// ReplyFunc is the callback shape handed to a listener so it can report the
// outcome of handling an event back to whoever emitted it. Either argument
// may be zero; a listener that has nothing to report may ignore it, or pass
// nil for ReplyFunc entirely.
type ReplyFunc func(err error, result any)

// Listener receives event data and an optional reply channel. reply is nil
// when the emitter synthesized no callback and none was supplied by the
// caller.
type Listener func(data any, reply ReplyFunc)

// AnyListener observes every event dispatched locally, regardless of topic,
// the way the broker's broadcast intercept does.
type AnyListener func(topic string, data any)

const (
	metaListenerAdded       = "listener-added"
	metaListenerRemoved     = "listener-removed"
	metaAllListenersRemoved = "all-listeners-removed"
)

func listenerPtr(fn Listener) uintptr {
	if fn == nil {
		return 0
	}
	return reflect.ValueOf(fn).Pointer()
}

// Emitter is a hierarchical, wildcard-capable event emitter. It is safe for
// concurrent use and is the local delivery mechanism a Hook builds its
// network-facing pipeline on top of; used on its own it behaves exactly
// like a local-only hub with no RPC or broker involved.
type Emitter struct {
	mu    sync.Mutex
	tree  *topicTree
	onAny []AnyListener

	// notify is invoked whenever a structural change (listener added,
	// removed, or a pattern cleared) needs to be announced as a
	// first-class event. A Hook wires this to its own Emit so that the
	// reserved meta-events flow through the emit pipeline's reserved-topic
	// handling; left nil, an Emitter announces nothing: the meta-events are
	// not delivered anywhere, not even to its own local listeners.
	notify func(topic string, data any)
}

// NewEmitter returns an empty Emitter ready for use.
func NewEmitter() *Emitter {
	return &Emitter{tree: newTopicTree()}
}

// On registers fn against pattern; it fires for every future event whose
// topic matches.
func (e *Emitter) On(pattern string, fn Listener) {
	e.register(pattern, fn, false)
}

// Once registers fn against pattern for a single matching event, after
// which it is automatically removed.
func (e *Emitter) Once(pattern string, fn Listener) {
	e.register(pattern, fn, true)
}

func (e *Emitter) register(pattern string, fn Listener, once bool) {
	e.mu.Lock()
	first := e.tree.countAt(pattern) == 0
	e.tree.add(pattern, &listenerEntry{pattern: pattern, fn: fn, once: once})
	e.mu.Unlock()
	if first {
		e.announce(metaListenerAdded, pattern)
	}
}

// Off removes the first listener registered under pattern matching fn. If
// fn is nil every listener under pattern is removed, same as RemoveAll.
func (e *Emitter) Off(pattern string, fn Listener) {
	if fn == nil {
		e.RemoveAll(pattern)
		return
	}
	e.mu.Lock()
	removed := e.tree.remove(pattern, fn)
	e.mu.Unlock()
	if removed {
		e.announce(metaListenerRemoved, pattern)
	}
}

// RemoveAll clears every listener registered under pattern.
func (e *Emitter) RemoveAll(pattern string) {
	e.mu.Lock()
	e.tree.removeAll(pattern)
	e.mu.Unlock()
	e.announce(metaAllListenersRemoved, pattern)
}

// Listeners returns the listeners currently registered under the exact
// pattern string (no wildcard expansion).
func (e *Emitter) Listeners(pattern string) []Listener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.listenersAt(pattern)
}

// OnAny registers fn to observe every event dispatched through this
// emitter, after matching listeners have been invoked.
func (e *Emitter) OnAny(fn AnyListener) {
	e.mu.Lock()
	e.onAny = append(e.onAny, fn)
	e.mu.Unlock()
}

// Enumerate returns every pattern with at least one listener registered.
func (e *Emitter) Enumerate() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.enumerate()
}

// Matches reports whether topic has at least one listener registered,
// without invoking anything.
func (e *Emitter) Matches(topic string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.matches(topic)
}

func (e *Emitter) announce(topic, pattern string) {
	if e.notify != nil {
		e.notify(topic, pattern)
	}
}

// Dispatch performs pure local delivery: it invokes every listener whose
// pattern matches topic, retires any once-listeners among them, then runs
// the onAny observers. It never touches a network connection; a Hook calls
// this as the final step of its own Emit, and also uses it directly to
// deliver events that must stay local (inbound messages forwarded down from
// a broker, meta-events bypassing the network pipeline).
func (e *Emitter) Dispatch(topic string, data any, cb ReplyFunc) {
	e.mu.Lock()
	matches := e.tree.match(topic)
	var onceGone []*listenerEntry
	for _, m := range matches {
		if m.once {
			onceGone = append(onceGone, m)
		}
	}
	for _, m := range onceGone {
		e.tree.removeEntry(m)
	}
	anyFns := append([]AnyListener(nil), e.onAny...)
	e.mu.Unlock()

	for _, m := range matches {
		m.fn(data, cb)
	}
	for _, fn := range anyFns {
		fn(topic, data)
	}
	for _, m := range onceGone {
		e.announce(metaListenerRemoved, m.pattern)
	}
}
