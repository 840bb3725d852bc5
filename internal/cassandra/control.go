package cassandra

import (
	"context"

	"go.uber.org/zap"

	"github.com/lexhide/xandra/internal/protocol"
)

// ControlConnection is the dedicated, long-lived socket per configured
// node used only to subscribe to STATUS_CHANGE/TOPOLOGY_CHANGE/
// SCHEMA_CHANGE events. It never carries queries.
type ControlConnection struct {
	address string
	conn    *Connection
	logger  *zap.Logger
}

// StartControlConnection dials address, performs the handshake, REGISTERs
// for STATUS_CHANGE, TOPOLOGY_CHANGE and SCHEMA_CHANGE, and wires onEvent as the event
// sink. onEvent is called from the connection's read loop goroutine, so
// it must not block.
func StartControlConnection(ctx context.Context, address string, cfg ConnConfig, onEvent EventHandler) (*ControlConnection, error) {
	cfg.Address = address
	conn, err := Connect(ctx, cfg, nil, onEvent)
	if err != nil {
		return nil, err
	}

	body := protocol.RegisterBody([]string{"STATUS_CHANGE", "TOPOLOGY_CHANGE", "SCHEMA_CHANGE"})
	header, respBody, err := conn.SendWithTimeout(ctx, protocol.OpRegister, body, 0)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if header.Opcode != protocol.OpReady {
		conn.Close()
		if header.Opcode == protocol.OpError {
			eb, perr := protocol.ParseErrorBody(respBody)
			if perr == nil {
				return nil, &serverError{Code: uint32(eb.Code), Message: eb.Message}
			}
		}
		return nil, &protocolViolation{Msg: "expected READY in response to REGISTER"}
	}

	return &ControlConnection{
		address: address,
		conn:    conn,
		logger:  conn.logger,
	}, nil
}

// Close tears down the control socket. It does not affect the node's
// data pool.
func (c *ControlConnection) Close() error { return c.conn.Close() }

// Address is the node address this control connection watches.
func (c *ControlConnection) Address() string { return c.address }
