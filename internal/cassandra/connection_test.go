package cassandra

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhide/xandra/internal/cassandra/cassandratest"
	"github.com/lexhide/xandra/internal/protocol"
)

func TestConnect_ReachesReadyAfterHandshake(t *testing.T) {
	srv, err := cassandratest.Start(func(conn net.Conn) {
		require.NoError(t, cassandratest.Handshake(conn))
		cassandratest.ReadFrame(conn, nil) // blocks until the client closes the socket
	})
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	conn, err := Connect(ctx, ConnConfig{Address: srv.Addr()}, nil, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, StateReady, conn.State())
	assert.Equal(t, srv.Addr(), conn.Address())
}

func TestConnect_AuthenticationRequiredWithoutCredentials(t *testing.T) {
	srv, err := cassandratest.Start(func(conn net.Conn) {
		header, _, err := cassandratest.ReadFrame(conn, nil)
		require.NoError(t, err)
		require.Equal(t, protocol.OpOptions, header.Opcode)
		require.NoError(t, cassandratest.WriteFrame(conn, header.Stream, protocol.OpSupported, protocol.SupportedBody(nil)))

		header, _, err = cassandratest.ReadFrame(conn, nil)
		require.NoError(t, err)
		require.Equal(t, protocol.OpStartup, header.Opcode)
		require.NoError(t, cassandratest.WriteFrame(conn, header.Stream, protocol.OpAuthenticate, protocol.AuthenticateBody("PasswordAuthenticator")))
	})
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = Connect(ctx, ConnConfig{Address: srv.Addr()}, nil, nil)
	require.Error(t, err)
	var authErr *authenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestConnect_DialFailureIsConnectionError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := Connect(ctx, ConnConfig{Address: "127.0.0.1:1"}, nil, nil)
	require.Error(t, err)
	var connErr *connectionError
	require.ErrorAs(t, err, &connErr)
}

func TestConnection_SendTimeoutPoisonsStream(t *testing.T) {
	gotStream := make(chan int16, 1)
	srv, err := cassandratest.Start(func(conn net.Conn) {
		require.NoError(t, cassandratest.Handshake(conn))
		header, _, err := cassandratest.ReadFrame(conn, nil)
		if err != nil {
			return
		}
		gotStream <- header.Stream
		// Never respond: the client must time out. Block on a read so this
		// goroutine exits once the client closes its socket.
		cassandratest.ReadFrame(conn, nil)
	})
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, err := Connect(ctx, ConnConfig{Address: srv.Addr()}, nil, nil)
	require.NoError(t, err)
	defer conn.Close()

	sendCtx, sendCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer sendCancel()
	_, _, err = conn.Send(sendCtx, protocol.OpQuery, protocol.QueryBody("SELECT 1", protocol.QueryParams{}))
	require.Error(t, err)
	var timeoutErr *timeoutError
	require.ErrorAs(t, err, &timeoutErr)

	var stream int16
	select {
	case stream = <-gotStream:
	case <-time.After(time.Second):
		t.Fatal("server never observed the request")
	}
	assert.Equal(t, stream, timeoutErr.Stream)

	conn.mu.Lock()
	pr, ok := conn.pending[stream]
	poisoned := ok && pr.poisoned
	conn.mu.Unlock()
	assert.True(t, poisoned, "timed-out stream should stay registered as poisoned")
}
