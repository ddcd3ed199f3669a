package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/cenkalti/backoff/v4"
)

// connect dials the hook's configured broker address and adopts the client
// role, retrying the dial itself with exponential backoff (a transient
// refusal is not a BindError: the broker may simply not have finished
// binding yet), then performs the report handshake. If the resulting
// connection later drops, a background goroutine keeps retrying the same
// dial-and-report sequence until it succeeds or the context is done.
func (h *Hook) connect(ctx context.Context) error {
	if err := h.buildAuxTransports(); err != nil {
		return err
	}

	conn, reply, host, port, err := h.dialAndReport(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.role = RoleClient
	h.selfName = reply.AssignedName
	h.broker = conn
	h.brokerHost = host
	h.brokerPort = port
	h.mu.Unlock()

	h.Emit("hook::connected", fmt.Sprintf("%s:%d", host, port), nil)
	h.Emit("hook::started", nil, nil)
	h.afterStarted(ctx)
	return nil
}

// dialAndReport performs one full dial-backoff-and-report-handshake
// attempt, wiring the resulting connection's "message"/"hasEvent" handlers
// and its end-of-connection behavior, but without mutating any Hook state
// itself — connect and the reconnect loop each decide what to do with the
// result.
func (h *Hook) dialAndReport(ctx context.Context) (*Conn, reportReply, string, int, error) {
	network, addr, err := h.listenAddr()
	if err != nil {
		return nil, reportReply{}, "", 0, err
	}

	var nc net.Conn
	dial := func() error {
		var dialErr error
		d := net.Dialer{}
		nc, dialErr = d.DialContext(ctx, network, addr)
		return dialErr
	}

	b := backoff.WithContext(newReconnectBackoff(h.opts.ReconnectMaxElapsed), ctx)
	if err := backoff.Retry(dial, b); err != nil {
		return nil, reportReply{}, "", 0, &TransportError{Op: "connect", Err: err}
	}

	conn := NewConn(nc)
	conn.Handle("message", func(params json.RawMessage) (any, error) {
		var p messageParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		// Delivered straight to local listeners: this is already a
		// qualified, broker-forwarded event and must not re-enter the
		// full emit pipeline, which would re-qualify it and attempt to
		// forward it straight back upstream.
		h.emitter.Dispatch(p.Topic, p.Data, nil)
		return nil, nil
	})
	conn.Handle("hasEvent", func(params json.RawMessage) (any, error) {
		var p hasEventParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		return h.emitter.Matches(joinParts(p.Parts)), nil
	})
	conn.OnEnd(func() {
		h.mu.Lock()
		wasClient := h.role == RoleClient && h.broker == conn
		if wasClient {
			h.broker = nil
		}
		h.mu.Unlock()
		if wasClient {
			h.Emit("hook::disconnected", nil, nil)
			go h.reconnectLoop(ctx)
		}
	})

	go conn.Serve()

	var reply reportReply
	req := reportParams{
		Name:          h.selfName,
		Type:          h.opts.Type,
		Version:       h.opts.Version,
		InitialTopics: h.emitter.Enumerate(),
	}
	if err := conn.Call(ctx, "report", req, &reply); err != nil {
		_ = conn.Close()
		return nil, reportReply{}, "", 0, err
	}
	if h.opts.Version != "" && reply.ServerVersion != "" && h.opts.Version != reply.ServerVersion {
		_ = conn.Close()
		return nil, reportReply{}, "", 0, &VersionMismatchError{Local: h.opts.Version, Remote: reply.ServerVersion}
	}

	host, port := h.opts.Host, h.opts.Port
	if tcpAddr, ok := nc.RemoteAddr().(*net.TCPAddr); ok {
		host, port = tcpAddr.IP.String(), tcpAddr.Port
	}
	return conn, reply, host, port, nil
}

// reconnectLoop re-dials the broker after a previously live connection has
// ended, retrying with the same bounded exponential backoff used for the
// initial connect, until it succeeds, the hook is stopped, or ctx is done.
// A successful reconnect re-adopts the client role and re-announces
// hook::connected; it does not re-run afterStarted, since any configured
// child hooks are already running and must not be spawned twice.
func (h *Hook) reconnectLoop(ctx context.Context) {
	h.mu.Lock()
	stopped := h.role == RoleStopped
	h.mu.Unlock()
	if stopped {
		return
	}

	attempt := func() error {
		if h.Role() == RoleStopped {
			return backoff.Permanent(context.Canceled)
		}
		conn, reply, host, port, err := h.dialAndReport(ctx)
		if err != nil {
			return err
		}
		h.mu.Lock()
		if h.role == RoleStopped {
			h.mu.Unlock()
			_ = conn.Close()
			return backoff.Permanent(context.Canceled)
		}
		h.role = RoleClient
		h.selfName = reply.AssignedName
		h.broker = conn
		h.brokerHost = host
		h.brokerPort = port
		h.mu.Unlock()
		h.Emit("hook::connected", fmt.Sprintf("%s:%d", host, port), nil)
		return nil
	}

	b := backoff.WithContext(newReconnectBackoff(h.opts.ReconnectMaxElapsed), ctx)
	if err := backoff.Retry(attempt, b); err != nil && h.Role() != RoleStopped {
		h.Emit("error::unknown", err, nil)
	}
}
