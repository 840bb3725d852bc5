package cassandra

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lexhide/xandra/internal/protocol"
)

// State is one point in the per-connection lifecycle.
type State int

const (
	StateConnecting State = iota
	StateRequestingOptions
	StateStartingUp
	StateAuthenticating
	StateReady
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRequestingOptions:
		return "requesting_options"
	case StateStartingUp:
		return "starting_up"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// pendingRequest is the completion slot a stream id is registered with
// while a request is in flight.
type pendingRequest struct {
	resultCh chan frameResult
	poisoned bool
}

type frameResult struct {
	header protocol.Header
	body   []byte
	err    error
}

// EventHandler receives decoded EVENT frames on stream -1. Only a
// control connection registers one.
type EventHandler func(*protocol.Event)

// Connection is a single socket's worth of the state machine: handshake,
// optional auth, then multiplexed request dispatch keyed by stream id.
// It exclusively owns its socket and its in-flight request table.
type Connection struct {
	cfg  ConnConfig
	conn net.Conn

	mu      sync.Mutex
	state   State
	pending map[int16]*pendingRequest

	streams    *streamIDPool
	compressor protocol.Compressor

	preparedCache *PreparedCache
	onEvent       EventHandler

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}

	logger *zap.Logger
}

// Connect dials addr, performs the handshake (OPTIONS/STARTUP/auth), and
// - once ready - starts the read loop that services concurrent requests.
// preparedCache may be nil for a control connection, which never issues
// EXECUTE. onEvent may be nil for a data connection, which never
// registers for events.
func Connect(ctx context.Context, cfg ConnConfig, preparedCache *PreparedCache, onEvent EventHandler) (*Connection, error) {
	cfg = cfg.withDefaults()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	dialer := &net.Dialer{}
	netConn, err := dialer.DialContext(dialCtx, "tcp", cfg.Address)
	if err != nil {
		return nil, &connectionError{Reason: "econnrefused", Err: err}
	}

	c := &Connection{
		cfg:           cfg,
		conn:          netConn,
		state:         StateConnecting,
		pending:       make(map[int16]*pendingRequest),
		streams:       newStreamIDPool(),
		preparedCache: preparedCache,
		onEvent:       onEvent,
		closed:        make(chan struct{}),
		logger:        cfg.Logger.With(zap.String("addr", cfg.Address)),
	}

	if err := c.handshake(ctx); err != nil {
		netConn.Close()
		return nil, err
	}

	go c.readLoop()

	if cfg.AfterConnect != nil {
		if err := cfg.AfterConnect(c); err != nil {
			c.Close()
			return nil, err
		}
	}

	return c, nil
}

// handshake runs the OPTIONS/STARTUP/auth exchange sequentially on the
// raw socket, before any multiplexed dispatch is active - there is at
// most one request in flight during handshake, so it needs none of the
// stream-id machinery.
func (c *Connection) handshake(ctx context.Context) error {
	c.state = StateRequestingOptions
	if err := writeFrame(c.conn, 0, protocol.OpOptions, protocol.OptionsBody(), nil); err != nil {
		return &connectionError{Reason: "closed", Err: err}
	}
	header, body, err := readFrame(c.conn)
	if err != nil {
		return &connectionError{Reason: "closed", Err: err}
	}
	if header.Opcode != protocol.OpSupported {
		return &protocolViolation{Msg: fmt.Sprintf("expected SUPPORTED in response to OPTIONS, got %s", header.Opcode)}
	}
	supported, err := protocol.ParseSupported(body)
	if err != nil {
		return err
	}

	var chosen protocol.Compressor
	for _, candidate := range c.cfg.Compressors {
		for _, name := range supported["COMPRESSION"] {
			if candidate.Algorithm() == name {
				chosen = candidate
				break
			}
		}
		if chosen != nil {
			break
		}
	}

	c.state = StateStartingUp
	compressionName := ""
	if chosen != nil {
		compressionName = chosen.Algorithm()
	}
	if err := writeFrame(c.conn, 0, protocol.OpStartup, protocol.StartupBody(compressionName), nil); err != nil {
		return &connectionError{Reason: "closed", Err: err}
	}
	header, body, err = readFrame(c.conn)
	if err != nil {
		return &connectionError{Reason: "closed", Err: err}
	}

	switch header.Opcode {
	case protocol.OpReady:
		c.compressor = chosen
		c.state = StateReady
		return nil
	case protocol.OpAuthenticate:
		c.compressor = chosen
		return c.authenticate(ctx, body)
	default:
		return &protocolViolation{Msg: fmt.Sprintf("expected READY or AUTHENTICATE in response to STARTUP, got %s", header.Opcode)}
	}
}

func (c *Connection) authenticate(ctx context.Context, authenticateBody []byte) error {
	if _, err := protocol.ParseAuthenticate(authenticateBody); err != nil {
		return err
	}
	if c.cfg.Credentials == nil {
		return &authenticationError{Msg: "server requires authentication but no credentials were configured"}
	}

	c.state = StateAuthenticating
	token, err := c.cfg.Credentials.InitialToken()
	if err != nil {
		return &authenticationError{Msg: err.Error()}
	}

	for {
		if err := writeFrame(c.conn, 0, protocol.OpAuthResponse, protocol.AuthResponseBody(token), c.compressor); err != nil {
			return &connectionError{Reason: "closed", Err: err}
		}
		header, body, err := readFrame(c.conn)
		if err != nil {
			return &connectionError{Reason: "closed", Err: err}
		}
		body, err = protocol.DecodeBody(header, body, c.compressor)
		if err != nil {
			return err
		}

		switch header.Opcode {
		case protocol.OpAuthSuccess:
			c.state = StateReady
			return nil
		case protocol.OpAuthChallenge:
			challenge, err := protocol.ParseAuthChallenge(body)
			if err != nil {
				return err
			}
			token, err = c.cfg.Credentials.Respond(challenge)
			if err != nil {
				return &authenticationError{Msg: err.Error()}
			}
		case protocol.OpError:
			eb, err := protocol.ParseErrorBody(body)
			if err != nil {
				return err
			}
			return &authenticationError{Msg: eb.Message}
		default:
			return &protocolViolation{Msg: fmt.Sprintf("unexpected opcode %s during authentication", header.Opcode)}
		}
	}
}

// readFrame reads one uncompressed-header frame off conn. The body may
// still be compressed; callers that are past the handshake decompress it
// via the Connection's negotiated compressor.
func readFrame(conn net.Conn) (protocol.Header, []byte, error) {
	var headerBuf [protocol.HeaderLength]byte
	if _, err := io.ReadFull(conn, headerBuf[:]); err != nil {
		return protocol.Header{}, nil, err
	}
	header, err := protocol.DecodeHeader(headerBuf[:])
	if err != nil {
		return protocol.Header{}, nil, err
	}
	if err := protocol.ValidateBodyLength(header.Length); err != nil {
		return protocol.Header{}, nil, err
	}
	body := make([]byte, header.Length)
	if _, err := io.ReadFull(conn, body); err != nil {
		return protocol.Header{}, nil, err
	}
	return header, body, nil
}

func writeFrame(conn net.Conn, stream int16, op protocol.Opcode, body []byte, compressor protocol.Compressor) error {
	buf, err := protocol.EncodeRequest(stream, op, body, compressor)
	if err != nil {
		return err
	}
	_, err = conn.Write(buf)
	return err
}

// readLoop services the socket once the connection is ready: every
// response is dispatched to its stream id's waiter, or - for stream -1 -
// to the registered EventHandler.
func (c *Connection) readLoop() {
	for {
		header, raw, err := readFrame(c.conn)
		if err != nil {
			c.closeWith(&connectionError{Reason: "closed", Err: err})
			return
		}

		body, err := protocol.DecodeBody(header, raw, c.compressor)
		if err != nil {
			c.dispatch(header.Stream, frameResult{header: header, err: err})
			continue
		}

		if header.Stream == protocol.EventStreamID {
			c.handleEvent(body)
			continue
		}

		c.dispatch(header.Stream, frameResult{header: header, body: body})
	}
}

func (c *Connection) handleEvent(body []byte) {
	ev, err := protocol.ParseEvent(body)
	if err != nil {
		c.logger.Warn("malformed EVENT frame", zap.Error(err))
		return
	}
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}

func (c *Connection) dispatch(stream int16, result frameResult) {
	c.mu.Lock()
	pr, ok := c.pending[stream]
	if ok {
		delete(c.pending, stream)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("response for unknown or already-completed stream", zap.Int16("stream", stream))
		return
	}

	if pr.poisoned {
		// Late response to a timed-out request: discard it and only now
		// return the stream id to the free list.
		c.streams.release(stream)
		return
	}

	pr.resultCh <- result
}

// Send issues a request and blocks for its response, honoring ctx's
// deadline. On timeout, the stream id is retained as poisoned until a
// late response arrives or the connection closes.
func (c *Connection) Send(ctx context.Context, op protocol.Opcode, body []byte) (protocol.Header, []byte, error) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateReady {
		return protocol.Header{}, nil, &connectionError{Reason: "closed"}
	}

	stream, err := c.streams.acquire(ctx)
	if err != nil {
		return protocol.Header{}, nil, &connectionError{Reason: "closed", Err: err}
	}

	pr := &pendingRequest{resultCh: make(chan frameResult, 1)}
	c.mu.Lock()
	c.pending[stream] = pr
	c.mu.Unlock()

	if err := writeFrame(c.conn, stream, op, body, c.compressor); err != nil {
		c.mu.Lock()
		delete(c.pending, stream)
		c.mu.Unlock()
		c.streams.release(stream)
		return protocol.Header{}, nil, &connectionError{Reason: "closed", Err: err}
	}

	select {
	case result := <-pr.resultCh:
		c.streams.release(stream)
		if result.err != nil {
			return result.header, nil, result.err
		}
		return result.header, result.body, nil
	case <-ctx.Done():
		c.mu.Lock()
		if p, ok := c.pending[stream]; ok && p == pr {
			p.poisoned = true
		}
		c.mu.Unlock()
		return protocol.Header{}, nil, &timeoutError{Stream: stream}
	case <-c.closed:
		return protocol.Header{}, nil, c.closeErrorOrDefault()
	}
}

// SendWithTimeout is Send with a timeout derived from cfg.DefaultTimeout
// when the caller's context has no deadline of its own.
func (c *Connection) SendWithTimeout(ctx context.Context, op protocol.Opcode, body []byte, timeout time.Duration) (protocol.Header, []byte, error) {
	if timeout <= 0 {
		timeout = c.cfg.DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.Send(ctx, op, body)
}

func (c *Connection) closeErrorOrDefault() error {
	if c.closeErr != nil {
		return c.closeErr
	}
	return &connectionError{Reason: "closed"}
}

// Close tears down the connection: all pending requests fail with
// ConnectionError(closed), and no further requests are accepted.
func (c *Connection) Close() error {
	c.closeWith(&connectionError{Reason: "closed"})
	return nil
}

func (c *Connection) closeWith(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.closeErr = err
		pending := c.pending
		c.pending = make(map[int16]*pendingRequest)
		c.mu.Unlock()

		c.conn.Close()
		close(c.closed)

		for _, pr := range pending {
			if !pr.poisoned {
				pr.resultCh <- frameResult{err: err}
			}
		}
	})
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) PreparedCache() *PreparedCache { return c.preparedCache }

func (c *Connection) Address() string { return c.cfg.Address }
