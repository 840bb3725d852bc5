// Package xerrors holds the closed set of driver error kinds. It exists
// as its own package (rather than living directly in the root xandra
// package) so that internal/protocol and internal/cassandra can
// construct and return them without an import cycle back through the
// root package; the root errors.go re-exports each kind as a type alias so the
// public API surface is unaffected.
package xerrors

import "fmt"

// ConnectionError reports a socket/transport failure: refused connects,
// a connection closed mid-flight, a timed-out connect, or a checkout
// against a cluster with no node currently up.
type ConnectionError struct {
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xandra: connection error (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("xandra: connection error (%s)", e.Reason)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolViolation reports a frame or message that does not conform to
// the CQL native protocol v4: an unknown opcode, a bad version byte, or a
// body whose declared length disagrees with what is actually on the wire.
type ProtocolViolation struct {
	Msg string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("xandra: protocol violation: %s", e.Msg)
}

// MalformedValue reports a type codec failure: a declared length that
// disagrees with the actual bytes, invalid UTF-8 in a text type, or a
// negative collection count.
type MalformedValue struct {
	Type string
	Msg  string
}

func (e *MalformedValue) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("xandra: malformed value: %s", e.Msg)
	}
	return fmt.Sprintf("xandra: malformed value (%s): %s", e.Type, e.Msg)
}

// AuthenticationError reports that the server refused the credentials
// offered during the AUTH_RESPONSE/AUTH_CHALLENGE exchange.
type AuthenticationError struct {
	Msg string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("xandra: authentication error: %s", e.Msg)
}

// ServerError wraps a decoded ERROR response body. Code is one of the
// CQL native protocol error codes. The additional fields are populated
// only for the error codes that carry them on the wire.
type ServerError struct {
	Code        uint32
	Message     string
	Consistency uint16
	Required    int32
	Alive       int32
	Received    int32
	BlockFor    int32
	WriteType   string
	DataPresent bool
	Keyspace    string
	Table       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("xandra: server error 0x%04x: %s", e.Code, e.Message)
}

func (e *ServerError) ErrCode() uint32 { return e.Code }

// InvalidArguments reports caller misuse: named values against a Simple
// statement, named values in a Batch, an unparsable port, or an unknown
// load-balancing policy name.
type InvalidArguments struct {
	Msg string
}

func (e *InvalidArguments) Error() string {
	return fmt.Sprintf("xandra: invalid arguments: %s", e.Msg)
}

// TimeoutError reports that a request did not complete before its
// client-side deadline. Stream identifies the stream id that is now
// poisoned until a late response arrives or the connection closes.
type TimeoutError struct {
	Stream int16
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("xandra: request on stream %d timed out", e.Stream)
}
