// Package cassandratest provides a minimal, in-process CQL-speaking
// TCP server for exercising internal/cassandra without a live cluster.
package cassandratest

import (
	"io"
	"net"
	"sync"

	"github.com/lexhide/xandra/internal/protocol"
)

// Handler is run, on its own goroutine, once per accepted connection.
type Handler func(conn net.Conn)

// FakeServer accepts loopback TCP connections and runs Handler on each.
type FakeServer struct {
	listener net.Listener
	wg       sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Start listens on an ephemeral loopback port and begins accepting.
func Start(handler Handler) (*FakeServer, error) {
	lstn, err := net.Listen("tcp4", "localhost:0")
	if err != nil {
		return nil, err
	}
	s := &FakeServer{listener: lstn}
	s.wg.Add(1)
	go s.acceptLoop(handler)
	return s, nil
}

func (s *FakeServer) acceptLoop(handler Handler) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			handler(conn)
		}()
	}
}

// Addr is the "host:port" a client should dial.
func (s *FakeServer) Addr() string { return s.listener.Addr().String() }

// Close stops accepting and waits for every in-flight handler to return.
func (s *FakeServer) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.listener.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// ReadFrame reads one request frame off conn and decodes its body.
// compressor is nil unless the test is exercising a negotiated
// compression algorithm.
func ReadFrame(conn net.Conn, compressor protocol.Compressor) (protocol.Header, []byte, error) {
	headerBuf := make([]byte, protocol.HeaderLength)
	if _, err := io.ReadFull(conn, headerBuf); err != nil {
		return protocol.Header{}, nil, err
	}
	header, err := decodeRequestHeader(headerBuf)
	if err != nil {
		return protocol.Header{}, nil, err
	}
	raw := make([]byte, header.Length)
	if header.Length > 0 {
		if _, err := io.ReadFull(conn, raw); err != nil {
			return protocol.Header{}, nil, err
		}
	}
	body, err := protocol.DecodeBody(header, raw, compressor)
	return header, body, err
}

// decodeRequestHeader is protocol.DecodeHeader's mirror image: it
// accepts the request-direction version byte a client sends, since
// DecodeHeader itself only accepts the response direction.
func decodeRequestHeader(buf []byte) (protocol.Header, error) {
	h, err := protocol.DecodeHeader(buf)
	if err == nil {
		return h, nil
	}
	// Flip the high bit so the shared parser sees a "response" version
	// and retry; then report the original request version back.
	flipped := make([]byte, len(buf))
	copy(flipped, buf)
	flipped[0] |= 0x80
	h, err = protocol.DecodeHeader(flipped)
	if err != nil {
		return protocol.Header{}, err
	}
	h.Version = buf[0]
	return h, nil
}

// WriteFrame writes a single response frame (header version 0x84) for
// the given stream/opcode/body.
func WriteFrame(conn net.Conn, stream int16, op protocol.Opcode, body []byte) error {
	header := protocol.EncodeHeader(protocol.ProtocolVersionResponse, 0, stream, op)
	protocol.PatchLength(header, len(body))
	_, err := conn.Write(append(header, body...))
	return err
}

// Handshake reads one request - OPTIONS or STARTUP - and satisfies it
// with SUPPORTED or READY respectively. It returns after the first
// STARTUP/READY exchange so the caller's handler can take over the
// connection for whatever it wants to test next.
func Handshake(conn net.Conn) error {
	for {
		header, _, err := ReadFrame(conn, nil)
		if err != nil {
			return err
		}
		switch header.Opcode {
		case protocol.OpOptions:
			if err := WriteFrame(conn, header.Stream, protocol.OpSupported, protocol.SupportedBody(nil)); err != nil {
				return err
			}
		case protocol.OpStartup:
			if err := WriteFrame(conn, header.Stream, protocol.OpReady, nil); err != nil {
				return err
			}
			return nil
		default:
			return &protocol.ProtocolViolation{Msg: "expected OPTIONS or STARTUP during handshake"}
		}
	}
}
