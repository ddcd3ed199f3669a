package hook

import (
	"context"
	"strings"
)

// Emit runs an event through the full pipeline: reserved meta-topics are
// special-cased and delivered locally only; everything else is logged,
// normalized, handed to every auxiliary transport, forwarded upstream to
// the broker if this hook is a client, and finally dispatched to local
// listeners and the broadcast intercept (if this hook is the broker).
func (h *Hook) Emit(topic string, data any, cb ReplyFunc) {
	h.mu.Lock()
	silenced := h.silenced
	h.mu.Unlock()
	if silenced {
		return
	}

	if isReservedMetaTopic(topic) {
		h.applyMeta(topic, data)
		h.emitter.Dispatch(topic, data, cb)
		return
	}

	if h.opts.Logger != nil {
		h.opts.Logger.Log(topic, data)
	}

	if fn, ok := data.(ReplyFunc); ok {
		cb = fn
		data = nil
	}
	if cb == nil {
		cb = h.syntheticReply(topic)
	}

	h.mu.Lock()
	role := h.role
	selfName := h.selfName
	broker := h.broker
	auxList := append([]auxBinding(nil), h.auxTransports...)
	h.mu.Unlock()

	qualified := selfName + Delimiter + topic
	ctx := context.Background()
	for _, a := range auxList {
		_ = a.transport.Message(ctx, qualified, data)
	}

	if role == RoleClient && broker != nil {
		_ = broker.Notify("message", messageParams{Topic: qualified, Data: data})
	}

	h.emitter.Dispatch(topic, data, cb)
}

// syntheticReply builds the default callback used when Emit is called with
// none: a failure re-emits on topic::error, a success on topic::result,
// so that callers uninterested in handling replies inline can still
// observe them via on().
func (h *Hook) syntheticReply(topic string) ReplyFunc {
	return func(err error, result any) {
		if err != nil {
			h.Emit(topic+Delimiter+"error", err, nil)
			return
		}
		h.Emit(topic+Delimiter+"result", result, nil)
	}
}

// applyMeta implements the reserved-topic handling of step one of the emit
// pipeline: a client forwards its own structural subscription changes
// upstream so the broker's registry stays in sync; the broker applies them
// directly to its own self-subscriptions.
func (h *Hook) applyMeta(topic string, data any) {
	pattern, _ := data.(string)

	h.mu.Lock()
	role := h.role
	broker := h.broker
	selfName := h.selfName
	registry := h.registry
	h.mu.Unlock()

	switch role {
	case RoleClient:
		if broker != nil {
			qualified := selfName + Delimiter + topic
			_ = broker.Notify("message", messageParams{Topic: qualified, Data: pattern})
		}
	case RoleServer:
		if registry != nil {
			registry.AdjustSubscription(selfName, subscriptionKindFor(topic), pattern)
		}
	}
}

// broadcastIntercept is installed as an onAny observer on the broker's
// emitter. It fans a locally dispatched event out to every connected peer
// other than whichever one it originated from, consulting each peer's own
// hasEvent before pushing, and re-running every auxiliary transport for
// each peer actually reached.
func (h *Hook) broadcastIntercept(topic string, data any) {
	h.mu.Lock()
	role := h.role
	registry := h.registry
	selfName := h.selfName
	auxList := append([]auxBinding(nil), h.auxTransports...)
	h.mu.Unlock()
	if role != RoleServer || registry == nil {
		return
	}
	if isReservedMetaTopic(topic) {
		return
	}

	wireTopic := topic
	parts := strings.Split(topic, Delimiter)
	if len(parts) == 1 {
		wireTopic = selfName + Delimiter + topic
		parts = strings.Split(wireTopic, Delimiter)
	}
	origin := parts[0]

	ctx := context.Background()
	for _, peer := range registry.Peers() {
		if peer.Name == origin {
			continue
		}
		ok, err := peer.HasEvent(ctx, parts)
		if err != nil || !ok {
			continue
		}
		for _, a := range auxList {
			_ = a.transport.Message(ctx, wireTopic, data)
		}
		_ = peer.Message(ctx, wireTopic, data)
	}
}
