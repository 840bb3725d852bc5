package xandra

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

// optInt/optVarchar are the CQL native protocol option ids for int and
// varchar, used below to hand-build ROWS metadata the way a server
// would - there is no exported helper for this in internal/protocol,
// since only response decoding (not encoding) of column specs is ever
// needed outside tests.
const (
	optInt     = 0x0009
	optVarchar = 0x000D
)

func usersRowsResultBody(t *testing.T, code int32, name string) []byte {
	t.Helper()
	return usersRowsResultBodyPaged(t, code, name, nil)
}

// usersRowsResultBodyPaged is usersRowsResultBody with an optional
// paging_state, for tests that drive (*Session).Stream/Resume across
// more than one page.
func usersRowsResultBodyPaged(t *testing.T, code int32, name string, pagingState []byte) []byte {
	t.Helper()
	w := protocol.NewWriter()
	w.WriteInt(int32(protocol.ResultRows))

	flags := uint32(0)
	if pagingState != nil {
		flags |= protocol.RowsFlagHasMorePages
	}
	w.WriteInt(int32(flags))
	w.WriteInt(2) // column count
	if pagingState != nil {
		w.WriteBytes(pagingState)
	}

	w.WriteString("ks")
	w.WriteString("users")
	w.WriteString("code")
	w.WriteShort(optInt)

	w.WriteString("ks")
	w.WriteString("users")
	w.WriteString("name")
	w.WriteShort(optVarchar)

	w.WriteInt(1) // row count

	codeBytes, err := protocol.EncodeValue(code, protocol.Simple(protocol.KindInt))
	require.NoError(t, err)
	w.WriteBytes(codeBytes)
	w.WriteBytes([]byte(name))

	return w.Bytes()
}

func voidResultBody() []byte {
	w := protocol.NewWriter()
	w.WriteInt(int32(protocol.ResultVoid))
	return w.Bytes()
}

// connectToFakeServer starts a single-node Session against a fake
// server running handler on every accepted connection - the control
// connection and the one data connection both dial it, so handler must
// be prepared to service either kind of handshake.
func connectToFakeServer(t *testing.T, handler cassandratest.Handler) (*Session, *cassandratest.FakeServer) {
	t.Helper()
	srv, err := cassandratest.Start(handler)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sess, err := Connect(ctx, WithNodes(srv.Addr()))
	require.NoError(t, err)
	return sess, srv
}

// registerBody accepts the REGISTER a control connection issues, and is
// otherwise idle for the lifetime of the connection.
func registerBody(t *testing.T, c net.Conn) {
	t.Helper()
	header, _, err := cassandratest.ReadFrame(c, nil)
	if err != nil {
		return
	}
	require.Equal(t, protocol.OpRegister, header.Opcode)
	require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpReady, nil))
	cassandratest.ReadFrame(c, nil) // block until the control socket closes
}

func TestSession_ExecuteSimpleSelect(t *testing.T) {
	sess, srv := connectToFakeServer(t, func(c net.Conn) {
		require.NoError(t, cassandratest.Handshake(c))
		header, body, err := cassandratest.ReadFrame(c, nil)
		if err != nil {
			return
		}
		switch header.Opcode {
		case protocol.OpRegister:
			require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpReady, nil))
			cassandratest.ReadFrame(c, nil)
		case protocol.OpQuery:
			_ = body
			require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpResult, usersRowsResultBody(t, 1, "Homer")))
		}
	})
	defer srv.Close()
	defer sess.Close()

	res, err := sess.Execute(context.Background(), "SELECT * FROM users WHERE code = ?", One, Int(1))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 1, res.Rows[0]["code"])
	assert.Equal(t, "Homer", res.Rows[0]["name"])
}

func TestSession_BatchRejectsNamedValues(t *testing.T) {
	sess, srv := connectToFakeServer(t, func(c net.Conn) {
		require.NoError(t, cassandratest.Handshake(c))
		registerBody(t, c)
	})
	defer srv.Close()
	defer sess.Close()

	_, err := sess.Batch(context.Background(), LoggedBatch, One,
		BatchQuery("DELETE FROM users WHERE code = ?", Named("code", Int(1))))
	require.Error(t, err)
	var invalid *InvalidArguments
	require.ErrorAs(t, err, &invalid)
}

func TestSession_ExecuteRejectsNamedValuesOnSimpleStatement(t *testing.T) {
	sess, srv := connectToFakeServer(t, func(c net.Conn) {
		require.NoError(t, cassandratest.Handshake(c))
		registerBody(t, c)
	})
	defer srv.Close()
	defer sess.Close()

	_, err := sess.Execute(context.Background(), "SELECT * FROM users WHERE code = ?", One, Named("code", Int(1)))
	require.Error(t, err)
	var invalid *InvalidArguments
	require.ErrorAs(t, err, &invalid)
}

// TestSession_ResumeContinuesFromCursor drives a two-page Stream, then
// calls Resume with the cursor the first page handed back and checks
// the second page picks up where the first left off, per spec.md §3's
// "the user may pass a Page back as a cursor to retrieve the next Page".
func TestSession_ResumeContinuesFromCursor(t *testing.T) {
	preparedID := []byte{0x09}
	var prepareCount, executeCount int

	sess, srv := connectToFakeServer(t, func(c net.Conn) {
		require.NoError(t, cassandratest.Handshake(c))
		for {
			header, _, err := cassandratest.ReadFrame(c, nil)
			if err != nil {
				return
			}
			switch header.Opcode {
			case protocol.OpRegister:
				require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpReady, nil))
			case protocol.OpPrepare:
				prepareCount++
				require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpResult, preparedResultBody(preparedID)))
			case protocol.OpExecute:
				executeCount++
				if executeCount == 1 {
					require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpResult,
						usersRowsResultBodyPaged(t, 1, "Homer", []byte("cursor-1"))))
					continue
				}
				require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpResult,
					usersRowsResultBody(t, 2, "Marge")))
			}
		}
	})
	defer srv.Close()
	defer sess.Close()

	ctx := context.Background()
	stream, err := sess.Stream(ctx, "SELECT * FROM users", One, 0)
	require.NoError(t, err)

	first, err := stream.Next(ctx)
	require.NoError(t, err)
	require.Len(t, first.Rows, 1)
	assert.Equal(t, "Homer", first.Rows[0]["name"])
	require.Equal(t, []byte("cursor-1"), first.PagingState)

	resumed, err := sess.Resume(ctx, "SELECT * FROM users", One, first.PagingState, 0)
	require.NoError(t, err)

	second, err := resumed.Next(ctx)
	require.NoError(t, err)
	require.Len(t, second.Rows, 1)
	assert.Equal(t, "Marge", second.Rows[0]["name"])
	assert.Nil(t, second.PagingState)

	require.Equal(t, 1, prepareCount, "the second Stream should hit the shared prepared cache, not re-prepare")
	require.Equal(t, 2, executeCount)
}

func preparedResultBody(id []byte) []byte {
	w := protocol.NewWriter()
	w.WriteInt(int32(protocol.ResultPrepared))
	w.WriteShortBytes(id)
	w.WriteInt(0) // bound metadata flags
	w.WriteInt(0) // bound metadata column count
	w.WriteInt(0) // result metadata flags
	w.WriteInt(0) // result metadata column count
	return w.Bytes()
}

// preparedResultBodyOneBoundColumn is preparedResultBody for a statement
// with exactly one bound parameter, colName of type colType (a protocol
// option id, e.g. optBigint below).
func preparedResultBodyOneBoundColumn(id []byte, colName string, colType uint16) []byte {
	w := protocol.NewWriter()
	w.WriteInt(int32(protocol.ResultPrepared))
	w.WriteShortBytes(id)
	w.WriteInt(int32(protocol.RowsFlagGlobalTablesSpec))
	w.WriteInt(1) // bound metadata column count
	w.WriteString("ks")
	w.WriteString("t")
	w.WriteString(colName)
	w.WriteShort(colType)
	w.WriteInt(0) // result metadata flags
	w.WriteInt(0) // result metadata column count
	return w.Bytes()
}

const optBigint = 0x0002

// readExecuteValues parses an EXECUTE body down to its bound value bytes,
// skipping the prepared id, consistency, and flags byte - enough to
// assert what (*Session).ExecutePrepared actually put on the wire.
func readExecuteValues(t *testing.T, body []byte) [][]byte {
	t.Helper()
	r := protocol.NewReader(body)
	r.ReadShortBytes() // prepared id
	r.ReadShort()      // consistency
	flags := r.ReadByte()
	require.NotZero(t, flags&byte(protocol.QueryFlagValues))

	count := r.ReadShort()
	values := make([][]byte, count)
	for i := range values {
		values[i] = r.ReadBytes()
	}
	return values
}

// TestSession_ExecutePreparedEncodesAgainstBoundColumnType binds Int(5) -
// a 4-byte int Value - against a statement whose one bound parameter is
// a real bigint column, and checks EXECUTE puts 8 encoded bytes on the
// wire (the column's width), not 4 (the Value's own declared Type).
func TestSession_ExecutePreparedEncodesAgainstBoundColumnType(t *testing.T) {
	preparedID := []byte{0x10}
	var gotValues [][]byte

	sess, srv := connectToFakeServer(t, func(c net.Conn) {
		require.NoError(t, cassandratest.Handshake(c))
		for {
			header, body, err := cassandratest.ReadFrame(c, nil)
			if err != nil {
				return
			}
			switch header.Opcode {
			case protocol.OpRegister:
				require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpReady, nil))
			case protocol.OpPrepare:
				require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpResult,
					preparedResultBodyOneBoundColumn(preparedID, "n", optBigint)))
			case protocol.OpExecute:
				gotValues = readExecuteValues(t, body)
				require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpResult, voidResultBody()))
			}
		}
	})
	defer srv.Close()
	defer sess.Close()

	stmt, err := sess.Prepare(context.Background(), "UPDATE t SET v = 1 WHERE n = ?")
	require.NoError(t, err)

	_, err = sess.ExecutePrepared(context.Background(), stmt, One, Int(5))
	require.NoError(t, err)

	require.Len(t, gotValues, 1)
	require.Len(t, gotValues[0], 8, "bigint column should be encoded 8 bytes wide, not the 4 bytes Int's own Type declares")

	decoded, err := protocol.DecodeValue(gotValues[0], protocol.Simple(protocol.KindBigint))
	require.NoError(t, err)
	assert.EqualValues(t, 5, decoded)
}

func TestSession_BatchSendsVoidResult(t *testing.T) {
	sess, srv := connectToFakeServer(t, func(c net.Conn) {
		require.NoError(t, cassandratest.Handshake(c))
		header, _, err := cassandratest.ReadFrame(c, nil)
		if err != nil {
			return
		}
		switch header.Opcode {
		case protocol.OpRegister:
			require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpReady, nil))
			cassandratest.ReadFrame(c, nil)
		case protocol.OpBatch:
			require.NoError(t, cassandratest.WriteFrame(c, header.Stream, protocol.OpResult, voidResultBody()))
		}
	})
	defer srv.Close()
	defer sess.Close()

	res, err := sess.Batch(context.Background(), LoggedBatch, One,
		BatchQuery("INSERT INTO users (code, name) VALUES (2, 'Marge')"))
	require.NoError(t, err)
	assert.Equal(t, "", res.SetKeyspace)
}
