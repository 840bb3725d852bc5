package cassandra

import (
	"context"

	"github.com/lexhide/xandra/internal/protocol"
)

// Batch sends a BATCH request made of Simple and/or Prepared children.
// BATCH only carries positional values on the wire, so a named value on
// any child is rejected before anything is sent rather than silently
// dropped by the encoder.
func Batch(ctx context.Context, conn *Connection, batchType protocol.BatchType, children []protocol.BatchChild, consistency protocol.Consistency) (*protocol.Result, error) {
	for _, c := range children {
		for _, v := range c.Values {
			if v.Name != "" {
				return nil, &invalidArguments{Msg: "batch values must be positional, named value given"}
			}
		}
	}

	header, body, err := conn.SendWithTimeout(ctx, protocol.OpBatch, protocol.BatchBody(batchType, children, consistency), 0)
	if err != nil {
		return nil, err
	}
	return decodeResponse(header, body)
}
