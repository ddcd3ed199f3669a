package hook

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SubscriptionKind identifies which structural-change meta-event a registry
// adjustment corresponds to.
type SubscriptionKind int

const (
	SubscriptionAdded SubscriptionKind = iota
	SubscriptionRemoved
	SubscriptionAllRemoved
)

// PeerRecord is the broker's bookkeeping for one connected peer: its
// negotiated name, declared type, session identity, remote endpoint, the
// multiset of patterns it has told the broker it cares about, and the RPC
// handle used to push events and presence checks back down to it.
type PeerRecord struct {
	Name          string
	Type          string
	SessionID     uuid.UUID
	RemoteAddress string
	RemotePort    int

	mu            sync.Mutex
	subscriptions map[string]int

	conn *Conn
}

// Message pushes topic (already wire-qualified) and data down to this peer,
// waiting for its acknowledgement.
func (p *PeerRecord) Message(ctx context.Context, topic string, data any) error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Call(ctx, "message", messageParams{Topic: topic, Data: data}, nil)
}

// HasEvent asks this peer whether any of its own registered patterns match
// the given qualified topic segments; the peer is the sole authority over
// its own subscription tree.
func (p *PeerRecord) HasEvent(ctx context.Context, parts []string) (bool, error) {
	if p.conn == nil {
		return false, nil
	}
	var reply bool
	if err := p.conn.Call(ctx, "hasEvent", hasEventParams{Parts: parts}, &reply); err != nil {
		return false, err
	}
	return reply, nil
}

func (p *PeerRecord) adjust(kind SubscriptionKind, pattern string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch kind {
	case SubscriptionAdded:
		p.subscriptions[pattern]++
	case SubscriptionRemoved:
		if p.subscriptions[pattern] > 0 {
			p.subscriptions[pattern]--
			if p.subscriptions[pattern] == 0 {
				delete(p.subscriptions, pattern)
			}
		}
	case SubscriptionAllRemoved:
		delete(p.subscriptions, pattern)
	}
}

// Subscriptions returns a snapshot of this peer's known subscription
// multiset, pattern to reference count.
func (p *PeerRecord) Subscriptions() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.subscriptions))
	for k, v := range p.subscriptions {
		out[k] = v
	}
	return out
}

// Registry is the broker-side directory of connected peers, including the
// broker's own self-record so its own subscriptions appear in the same
// bookkeeping the rest of the mesh uses.
type Registry struct {
	mu        sync.Mutex
	selfName  string
	byName    map[string]*PeerRecord
	bySession map[uuid.UUID]*PeerRecord
}

// NewRegistry constructs a registry seeded with a self PeerRecord under
// selfName (the broker's own negotiated name, never reassigned or
// uniquified), its subscriptions seeded from initialTopics — the broker's
// own topic-tree enumeration at the moment it starts listening.
func NewRegistry(selfName string, initialTopics []string) *Registry {
	r := &Registry{
		selfName:  selfName,
		byName:    make(map[string]*PeerRecord),
		bySession: make(map[uuid.UUID]*PeerRecord),
	}
	self := &PeerRecord{Name: selfName, subscriptions: make(map[string]int)}
	for _, t := range initialTopics {
		self.subscriptions[t]++
	}
	r.byName[selfName] = self
	return r
}

// AssignName returns a name guaranteed unique among currently connected
// peers and the broker itself: requested unchanged if free, otherwise
// requested suffixed with -0, -1, -2, ... until one is free.
func (r *Registry) AssignName(requested string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if requested == "" {
		requested = "no-name"
	}
	if !r.taken(requested) {
		return requested
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%s-%d", requested, i)
		if !r.taken(candidate) {
			return candidate
		}
	}
}

func (r *Registry) taken(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Upsert records a newly connected (or reconnecting under the same session)
// peer, seeding its subscription multiset from initialTopics.
func (r *Registry) Upsert(sessionID uuid.UUID, name, typ, remoteAddr string, remotePort int, conn *Conn, initialTopics []string) *PeerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	peer := &PeerRecord{
		Name:          name,
		Type:          typ,
		SessionID:     sessionID,
		RemoteAddress: remoteAddr,
		RemotePort:    remotePort,
		subscriptions: make(map[string]int),
		conn:          conn,
	}
	for _, t := range initialTopics {
		peer.subscriptions[t]++
	}
	r.byName[name] = peer
	r.bySession[sessionID] = peer
	return peer
}

// BySession looks up a peer by its connection session id.
func (r *Registry) BySession(id uuid.UUID) (*PeerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.bySession[id]
	return p, ok
}

// Remove deletes the peer owning sessionID, returning it if present.
func (r *Registry) Remove(id uuid.UUID) (*PeerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.bySession[id]
	if !ok {
		return nil, false
	}
	delete(r.bySession, id)
	delete(r.byName, p.Name)
	return p, true
}

// Peers returns a snapshot of every record in the registry: each currently
// connected peer plus the broker's own self-record.
func (r *Registry) Peers() []*PeerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*PeerRecord, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p)
	}
	return out
}

// ByName looks up a connected peer by its negotiated name.
func (r *Registry) ByName(name string) (*PeerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byName[name]
	return p, ok
}

// AdjustSubscription applies a structural subscription change reported by
// peerName — the broker's own name for its own local changes, seeded into
// byName alongside every connected peer, or any other connected peer's name
// — and returns true, since by construction it is only ever called for
// subscription-meta events.
func (r *Registry) AdjustSubscription(peerName string, kind SubscriptionKind, pattern string) bool {
	r.mu.Lock()
	p, ok := r.byName[peerName]
	r.mu.Unlock()
	if !ok {
		return true
	}
	p.adjust(kind, pattern)
	return true
}

func subscriptionKindFor(metaTopic string) SubscriptionKind {
	switch metaTopic {
	case metaListenerRemoved:
		return SubscriptionRemoved
	case metaAllListenersRemoved:
		return SubscriptionAllRemoved
	default:
		return SubscriptionAdded
	}
}

func isReservedMetaTopic(topic string) bool {
	switch topic {
	case metaListenerAdded, metaListenerRemoved, metaAllListenersRemoved:
		return true
	}
	return false
}

// peerMetaTopic recognizes a wire-qualified reserved meta-event from a
// connected peer (peerName + delimiter + one of the bare meta topics, the
// shape a client's applyMeta sends upstream) and returns the bare meta
// topic with ok=true; any other topic, including one that merely happens to
// share the peer's name as its first segment, returns ok=false.
func peerMetaTopic(peerName, topic string) (string, bool) {
	prefix := peerName + Delimiter
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	rest := topic[len(prefix):]
	if !isReservedMetaTopic(rest) {
		return "", false
	}
	return rest, true
}

// joinParts joins pre-split segments back into a topic string using the
// package delimiter, the inverse of splitTopic.
func joinParts(parts []string) string {
	return strings.Join(parts, Delimiter)
}
