package protocol

// ErrorCode is the numeric code carried in an ERROR response body.
// Grounded on the gocql wire format (other_examples/OleksiienkoMykyta-gocql__frame.go).
type ErrorCode uint32

const (
	ErrCodeServer           ErrorCode = 0x0000
	ErrCodeProtocol         ErrorCode = 0x000A
	ErrCodeCredentials      ErrorCode = 0x0100
	ErrCodeUnavailable      ErrorCode = 0x1000
	ErrCodeOverloaded       ErrorCode = 0x1001
	ErrCodeBootstrapping    ErrorCode = 0x1002
	ErrCodeTruncate         ErrorCode = 0x1003
	ErrCodeWriteTimeout     ErrorCode = 0x1100
	ErrCodeReadTimeout      ErrorCode = 0x1200
	ErrCodeReadFailure      ErrorCode = 0x1300
	ErrCodeFunctionFailure  ErrorCode = 0x1400
	ErrCodeWriteFailure     ErrorCode = 0x1500
	ErrCodeCDCWriteFailure  ErrorCode = 0x1600
	ErrCodeCASWriteUnknown  ErrorCode = 0x1700
	ErrCodeSyntax           ErrorCode = 0x2000
	ErrCodeUnauthorized     ErrorCode = 0x2100
	ErrCodeInvalid          ErrorCode = 0x2200
	ErrCodeConfig           ErrorCode = 0x2300
	ErrCodeAlreadyExists    ErrorCode = 0x2400
	ErrCodeUnprepared       ErrorCode = 0x2500
)
