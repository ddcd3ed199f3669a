package hook

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
)

// envelope is the wire frame exchanged over a Conn, newline-delimited JSON.
// A request carries Method (and ID if a reply is wanted); a response
// carries the matching ID and either Result or Error.
type envelope struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Handler answers an inbound RPC call. Returning a non-nil error sends it
// back as the envelope's Error field; otherwise the result is marshaled and
// returned as Result.
type Handler func(params json.RawMessage) (any, error)

// Conn is a symmetric, connection-oriented RPC channel: both the dialing
// and accepting side can register handlers and place calls, and at most one
// reply is ever pending per outgoing call. It is the transport hook.Hook
// builds report, message, and hasEvent on top of, modeled on a bidirectional
// generalization of a pending-map/read-loop JSON-RPC client.
type Conn struct {
	nc net.Conn
	w  *bufio.Writer
	r  *bufio.Reader

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]chan *envelope
	handlers map[string]Handler
	closed   bool

	onEnd func()
}

// NewConn wraps an established net.Conn (TCP or unix socket) for RPC use.
// Call Serve in its own goroutine to start reading.
func NewConn(nc net.Conn) *Conn {
	return &Conn{
		nc:       nc,
		w:        bufio.NewWriter(nc),
		r:        bufio.NewReader(nc),
		pending:  make(map[string]chan *envelope),
		handlers: make(map[string]Handler),
	}
}

// Handle registers the handler invoked for inbound calls to method. Must be
// called before Serve starts reading that method's calls arrive.
func (c *Conn) Handle(method string, h Handler) {
	c.mu.Lock()
	c.handlers[method] = h
	c.mu.Unlock()
}

// OnEnd registers fn to run exactly once when the connection ends, whether
// by remote close, local Close, or a read error.
func (c *Conn) OnEnd(fn func()) {
	c.mu.Lock()
	c.onEnd = fn
	c.mu.Unlock()
}

// Serve reads frames until the connection ends. It blocks; callers run it
// in its own goroutine.
func (c *Conn) Serve() {
	defer c.end()
	for {
		line, err := c.r.ReadBytes('\n')
		if len(line) > 0 {
			var env envelope
			if jerr := json.Unmarshal(line, &env); jerr == nil {
				c.handleFrame(&env)
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *Conn) handleFrame(env *envelope) {
	if env.Method != "" {
		c.serveCall(env)
		return
	}
	// A response frame: dispatch to the pending caller, or drop it silently
	// if nothing is waiting (a late reply after the caller gave up).
	c.mu.Lock()
	ch, ok := c.pending[env.ID]
	if ok {
		delete(c.pending, env.ID)
	}
	c.mu.Unlock()
	if ok {
		ch <- env
	}
}

func (c *Conn) serveCall(env *envelope) {
	c.mu.Lock()
	h, ok := c.handlers[env.Method]
	c.mu.Unlock()

	if !ok {
		if env.ID != "" {
			c.writeFrame(&envelope{ID: env.ID, Error: fmt.Sprintf("unknown method %q", env.Method)})
		}
		return
	}

	// Handlers may themselves place blocking calls on other connections, so
	// they must not run on the read loop that would otherwise deadlock a
	// peer waiting on this same goroutine.
	go func() {
		result, err := h(env.Params)
		if env.ID == "" {
			return
		}
		if err != nil {
			c.writeFrame(&envelope{ID: env.ID, Error: err.Error()})
			return
		}
		raw, merr := json.Marshal(result)
		if merr != nil {
			c.writeFrame(&envelope{ID: env.ID, Error: merr.Error()})
			return
		}
		c.writeFrame(&envelope{ID: env.ID, Result: raw})
	}()
}

func (c *Conn) writeFrame(env *envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.w.Write(raw); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}

// Call places a blocking RPC, waiting for the matching reply or for ctx to
// be done. result, if non-nil, receives the unmarshaled Result payload.
func (c *Conn) Call(ctx context.Context, method string, params any, result any) error {
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return &TransportError{Op: method, Err: err}
	}

	id := uuid.New().String()
	ch := make(chan *envelope, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.writeFrame(&envelope{ID: id, Method: method, Params: paramsRaw}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return &TransportError{Op: method, Err: err}
	}

	select {
	case env, ok := <-ch:
		if !ok || env == nil {
			return &TransportError{Op: method, Err: fmt.Errorf("connection closed")}
		}
		if env.Error != "" {
			return &TransportError{Op: method, Err: fmt.Errorf("%s", env.Error)}
		}
		if result != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, result); err != nil {
				return &TransportError{Op: method, Err: err}
			}
		}
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return &TransportError{Op: method, Err: ctx.Err()}
	}
}

// Notify places a call with no reply expected; the remote handler, if any,
// runs but its result is discarded.
func (c *Conn) Notify(method string, params any) error {
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return &TransportError{Op: method, Err: err}
	}
	if err := c.writeFrame(&envelope{Method: method, Params: paramsRaw}); err != nil {
		return &TransportError{Op: method, Err: err}
	}
	return nil
}

func (c *Conn) end() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	fn := c.onEnd
	pending := c.pending
	c.pending = make(map[string]chan *envelope)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	_ = c.nc.Close()
	if fn != nil {
		fn()
	}
}

// Close ends the connection from the local side.
func (c *Conn) Close() error {
	c.end()
	return nil
}
