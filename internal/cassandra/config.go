package cassandra

import (
	"time"

	"go.uber.org/zap"

	"github.com/lexhide/xandra/internal/protocol"
)

// Credentials is the capability interface an authentication mechanism
// plugin implements.
type Credentials interface {
	// InitialToken returns the token sent with the first AUTH_RESPONSE.
	InitialToken() ([]byte, error)
	// Respond returns the token to send in reply to an AUTH_CHALLENGE.
	Respond(challenge []byte) ([]byte, error)
}

// AfterConnectFunc runs once a Connection reaches the ready state.
type AfterConnectFunc func(conn *Connection) error

// ConnConfig configures a single data or control connection.
type ConnConfig struct {
	Address        string
	ConnectTimeout time.Duration
	DefaultTimeout time.Duration
	Compressors    []protocol.Compressor
	Credentials    Credentials
	AfterConnect   AfterConnectFunc
	Logger         *zap.Logger
}

func (c ConnConfig) withDefaults() ConnConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
