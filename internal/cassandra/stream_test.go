package cassandra

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexhide/xandra/internal/cassandra/cassandratest"
	"github.com/lexhide/xandra/internal/protocol"
)

func rowsResultBody(rowCount int, pagingState []byte) []byte {
	w := protocol.NewWriter()
	w.WriteInt(int32(protocol.ResultRows))
	flags := uint32(protocol.RowsFlagNoMetadata)
	if pagingState != nil {
		flags |= protocol.RowsFlagHasMorePages
	}
	w.WriteInt(int32(flags))
	w.WriteInt(0) // column count
	if pagingState != nil {
		w.WriteBytes(pagingState)
	}
	w.WriteInt(int32(rowCount))
	return w.Bytes()
}

func TestPageStream_PullsUntilTerminalPage(t *testing.T) {
	pages := [][]byte{
		rowsResultBody(3, []byte("cursor-1")),
		rowsResultBody(2, []byte("cursor-2")),
		rowsResultBody(1, nil),
	}
	var pulled int

	conn, srv := dialFakeServer(t, func(c net.Conn) {
		require.NoError(t, cassandratest.Handshake(c))
		for {
			header, _, err := cassandratest.ReadFrame(c, nil)
			if err != nil {
				return
			}
			switch header.Opcode {
			case protocol.OpPrepare:
				require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpResult, preparedResultBody([]byte{0x01})))
			case protocol.OpExecute:
				require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpResult, pages[pulled]))
				pulled++
			}
		}
	})
	defer srv.Close()
	defer conn.Close()

	cache := NewPreparedCache(0)
	stream := NewPageStream(conn, cache, "SELECT * FROM t", nil, protocol.ConsistencyOne, 0)

	var totalRows int
	for {
		page, err := stream.Next(context.Background())
		require.NoError(t, err)
		if page == nil {
			break
		}
		totalRows += len(page.Rows)
	}

	require.Equal(t, 6, totalRows)
	require.Equal(t, 3, pulled)
}
