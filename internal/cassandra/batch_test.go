package cassandra

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexhide/xandra/internal/cassandra/cassandratest"
	"github.com/lexhide/xandra/internal/protocol"
)

func TestBatch_RejectsNamedValues(t *testing.T) {
	conn, srv := dialFakeServer(t, func(c net.Conn) {
		require.NoError(t, cassandratest.Handshake(c))
	})
	defer srv.Close()
	defer conn.Close()

	children := []protocol.BatchChild{
		{Kind: protocol.BatchKindSimple, QueryText: "UPDATE t SET v = ? WHERE k = ?", Values: []protocol.BoundValue{
			{Name: "v", Bytes: []byte{0x01}},
		}},
	}

	_, err := Batch(context.Background(), conn, protocol.BatchLogged, children, protocol.ConsistencyOne)
	require.Error(t, err)
	var invalid *invalidArguments
	require.ErrorAs(t, err, &invalid)
}

func TestBatch_SendsPositionalChildrenAndDecodesVoid(t *testing.T) {
	conn, srv := dialFakeServer(t, func(c net.Conn) {
		require.NoError(t, cassandratest.Handshake(c))
		header, body, err := cassandratest.ReadFrame(c, nil)
		require.NoError(t, err)
		require.Equal(t, protocol.OpBatch, header.Opcode)

		r := protocol.NewReader(body)
		require.Equal(t, byte(protocol.BatchLogged), r.ReadByte())
		require.Equal(t, uint16(2), r.ReadShort())

		require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpResult, voidResultBody()))
	})
	defer srv.Close()
	defer conn.Close()

	children := []protocol.BatchChild{
		{Kind: protocol.BatchKindSimple, QueryText: "INSERT INTO t (k, v) VALUES (1, 'a')"},
		{Kind: protocol.BatchKindPrepared, PreparedID: []byte{0xAA}, Values: []protocol.BoundValue{
			{Bytes: []byte{0x02}},
		}},
	}

	res, err := Batch(context.Background(), conn, protocol.BatchLogged, children, protocol.ConsistencyOne)
	require.NoError(t, err)
	require.Equal(t, protocol.ResultVoid, res.Kind)
}
