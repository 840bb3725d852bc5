// Package protocol implements the CQL native protocol v4 wire codec: frame
// framing, the primitive and typed value layouts, and the request/response
// message bodies built on top of them. It has no knowledge of sockets,
// connection lifecycles, or clusters - that belongs to internal/cassandra.
package protocol

// Opcode identifies the kind of message carried in a frame body.
type Opcode byte

const (
	OpError         Opcode = 0x00
	OpStartup       Opcode = 0x01
	OpReady         Opcode = 0x02
	OpAuthenticate  Opcode = 0x03
	OpOptions       Opcode = 0x05
	OpSupported     Opcode = 0x06
	OpQuery         Opcode = 0x07
	OpResult        Opcode = 0x08
	OpPrepare       Opcode = 0x09
	OpExecute       Opcode = 0x0A
	OpRegister      Opcode = 0x0B
	OpEvent         Opcode = 0x0C
	OpBatch         Opcode = 0x0D
	OpAuthChallenge Opcode = 0x0E
	OpAuthResponse  Opcode = 0x0F
	OpAuthSuccess   Opcode = 0x10
)

func (o Opcode) String() string {
	switch o {
	case OpError:
		return "ERROR"
	case OpStartup:
		return "STARTUP"
	case OpReady:
		return "READY"
	case OpAuthenticate:
		return "AUTHENTICATE"
	case OpOptions:
		return "OPTIONS"
	case OpSupported:
		return "SUPPORTED"
	case OpQuery:
		return "QUERY"
	case OpResult:
		return "RESULT"
	case OpPrepare:
		return "PREPARE"
	case OpExecute:
		return "EXECUTE"
	case OpRegister:
		return "REGISTER"
	case OpEvent:
		return "EVENT"
	case OpBatch:
		return "BATCH"
	case OpAuthChallenge:
		return "AUTH_CHALLENGE"
	case OpAuthResponse:
		return "AUTH_RESPONSE"
	case OpAuthSuccess:
		return "AUTH_SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// ResultKind distinguishes the five shapes of a RESULT message body.
type ResultKind uint32

const (
	ResultVoid         ResultKind = 0x0001
	ResultRows         ResultKind = 0x0002
	ResultSetKeyspace  ResultKind = 0x0003
	ResultPrepared     ResultKind = 0x0004
	ResultSchemaChange ResultKind = 0x0005
)

// Row metadata flags (RESULT kind=rows).
const (
	RowsFlagGlobalTablesSpec uint32 = 0x0001
	RowsFlagHasMorePages     uint32 = 0x0002
	RowsFlagNoMetadata       uint32 = 0x0004
)

// Query options flags.
const (
	QueryFlagValues             byte = 0x01
	QueryFlagSkipMetadata       byte = 0x02
	QueryFlagPageSize           byte = 0x04
	QueryFlagWithPagingState    byte = 0x08
	QueryFlagWithSerialConsist  byte = 0x10
	QueryFlagWithDefaultTS      byte = 0x20
	QueryFlagWithNamesForValues byte = 0x40
)

// Frame header flags.
const (
	HeaderFlagCompression   byte = 0x01
	HeaderFlagTracing       byte = 0x02
	HeaderFlagCustomPayload byte = 0x04
	HeaderFlagWarning       byte = 0x08
)

// BatchType distinguishes the three kinds of BATCH statement.
type BatchType byte

const (
	BatchLogged   BatchType = 0x00
	BatchUnlogged BatchType = 0x01
	BatchCounter  BatchType = 0x02
)

// BatchStatementKind distinguishes a Simple statement from a Prepared one
// within a BATCH body.
type BatchStatementKind byte

const (
	BatchKindSimple   BatchStatementKind = 0x00
	BatchKindPrepared BatchStatementKind = 0x01
)

// ProtocolVersion is the single version this driver speaks.
const (
	ProtocolVersionRequest  byte = 0x04
	ProtocolVersionResponse byte = 0x84
	protocolVersionMask     byte = 0x7F
)

// EventStreamID is the reserved stream id used by server-initiated EVENT
// frames.
const EventStreamID int16 = -1

// CQLVersion is sent in the STARTUP body.
const CQLVersion = "3.4.4"
