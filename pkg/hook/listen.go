package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/google/uuid"
)

// tryListen attempts to bind the hook's configured address and, on
// success, adopts the broker role. A bind failure due to the address
// already being in use is returned as a *BindError for Start to interpret
// as a signal to fall back to connect; any other listen failure is returned
// as a *TransportError, and a resolve or aux-transport failure as-is.
func (h *Hook) tryListen(ctx context.Context) error {
	network, addr, err := h.listenAddr()
	if err != nil {
		return err
	}

	ln, err := net.Listen(network, addr)
	if err != nil {
		if isAddrInUse(err) {
			return &BindError{Host: h.opts.Host, Port: h.opts.Port, Err: err}
		}
		return &TransportError{Op: "listen", Err: err}
	}

	if err := h.buildAuxTransports(); err != nil {
		_ = ln.Close()
		return err
	}

	h.mu.Lock()
	h.role = RoleServer
	h.listener = ln
	h.registry = NewRegistry(h.selfName, h.emitter.Enumerate())
	h.brokerHost = h.opts.Host
	h.brokerPort = h.opts.Port
	h.mu.Unlock()

	h.emitter.OnAny(h.broadcastIntercept)

	h.acceptWG.Add(1)
	go h.acceptLoop()

	if h.opts.Socket == "" {
		h.Emit("hook::listening", h.opts.Port, nil)
	} else {
		h.Emit("hook::listening", h.opts.Socket, nil)
	}
	h.Emit("hook::started", nil, nil)
	h.afterStarted(ctx)
	return nil
}

func (h *Hook) listenAddr() (network, addr string, err error) {
	if h.opts.Socket != "" {
		return "unix", h.opts.Socket, nil
	}
	ips, err := ResolveHost(h.opts.Host)
	if err != nil {
		return "", "", err
	}
	return "tcp", fmt.Sprintf("%s:%d", ips[0].String(), h.opts.Port), nil
}

func (h *Hook) acceptLoop() {
	defer h.acceptWG.Done()
	for {
		nc, err := h.listener.Accept()
		if err != nil {
			return
		}
		go h.serveConn(nc)
	}
}

func (h *Hook) serveConn(nc net.Conn) {
	conn := NewConn(nc)
	sessionID := uuid.New()

	conn.Handle("report", func(params json.RawMessage) (any, error) {
		var req reportParams
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		assignedName := h.registry.AssignName(req.Name)
		remoteAddr, remotePort := splitHostPort(nc.RemoteAddr())
		h.registry.Upsert(sessionID, assignedName, req.Type, remoteAddr, remotePort, conn, req.InitialTopics)

		h.mu.Lock()
		h.conns[sessionID] = conn
		h.mu.Unlock()

		h.Emit("connection::open", assignedName, nil)
		return reportReply{
			AssignedName:  assignedName,
			AssignedID:    sessionID.String(),
			ServerVersion: h.opts.Version,
		}, nil
	})

	conn.Handle("message", func(params json.RawMessage) (any, error) {
		var p messageParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		if peer, ok := h.registry.BySession(sessionID); ok {
			if metaTopic, ok := peerMetaTopic(peer.Name, p.Topic); ok {
				pattern, _ := p.Data.(string)
				h.registry.AdjustSubscription(peer.Name, subscriptionKindFor(metaTopic), pattern)
				return nil, nil
			}
		}
		h.Emit(p.Topic, p.Data, nil)
		return nil, nil
	})

	conn.Handle("hasEvent", func(params json.RawMessage) (any, error) {
		// The broker never has its own subscriptions queried this way;
		// registered only for wire symmetry with the client side.
		return false, nil
	})

	conn.Handle("listPeers", func(params json.RawMessage) (any, error) {
		return listPeersReply{Peers: h.peerInfos()}, nil
	})

	conn.OnEnd(func() {
		h.mu.Lock()
		delete(h.conns, sessionID)
		h.mu.Unlock()
		if peer, ok := h.registry.Remove(sessionID); ok {
			h.Emit("hook::disconnected", peer.Name, nil)
		}
	})

	conn.Serve()
}

func splitHostPort(addr net.Addr) (string, int) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String(), 0
	}
	return tcpAddr.IP.String(), tcpAddr.Port
}
