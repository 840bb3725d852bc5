package xandra

import (
	"context"

	"go.uber.org/zap"

	"github.com/lexhide/xandra/internal/cassandra"
	"github.com/lexhide/xandra/internal/protocol"
)

// Consistency is the CQL consistency level a statement is executed at.
type Consistency = protocol.Consistency

const (
	Any         = protocol.ConsistencyAny
	One         = protocol.ConsistencyOne
	Two         = protocol.ConsistencyTwo
	Three       = protocol.ConsistencyThree
	Quorum      = protocol.ConsistencyQuorum
	All         = protocol.ConsistencyAll
	LocalQuorum = protocol.ConsistencyLocalQuorum
	EachQuorum  = protocol.ConsistencyEachQuorum
	Serial      = protocol.ConsistencySerial
	LocalSerial = protocol.ConsistencyLocalSerial
	LocalOne    = protocol.ConsistencyLocalOne
)

// BatchType distinguishes the three kinds of BATCH statement.
type BatchType = protocol.BatchType

const (
	LoggedBatch   = protocol.BatchLogged
	UnloggedBatch = protocol.BatchUnlogged
	CounterBatch  = protocol.BatchCounter
)

// Session is the minimal facade the core needs to be exercised at all:
// Connect(ctx, opts...) (*Session, error) plus Execute/Prepare/
// ExecutePrepared/Batch/Stream/StreamPrepared/Resume/Close. It is deliberately not the full execute/prepare/stream
// ergonomic API described as out of scope in spec.md §1; it is the
// thinnest shim that drives internal/cassandra end to end, the same
// role the teacher's root-level Driver/Conn plays for its storage
// engine.
type Session struct {
	cluster *cassandra.Cluster
	logger  *zap.Logger
}

// checkout picks a pool via the configured load-balancing policy, then a
// connection within that pool round-robin.
func (s *Session) checkout() (*cassandra.Connection, error) {
	pool, err := s.cluster.Checkout()
	if err != nil {
		return nil, err
	}
	return pool.Checkout()
}

// Execute runs a Simple statement: text is sent inline with values,
// with no prepared-cache involvement. Named values are rejected - a
// Simple statement carries no bound-column metadata to match a name
// against.
func (s *Session) Execute(ctx context.Context, text string, consistency Consistency, values ...Value) (*Result, error) {
	if anyNamed(values) {
		return nil, &InvalidArguments{Msg: "named values are not supported on a Simple statement"}
	}
	bound, err := toBoundValues(values)
	if err != nil {
		return nil, err
	}

	conn, err := s.checkout()
	if err != nil {
		return nil, err
	}

	res, err := cassandra.Query(ctx, conn, text, protocol.QueryParams{Consistency: consistency, Values: bound})
	if err != nil {
		return nil, err
	}
	return newResult(res)
}

// Prepare sends PREPARE for text against one connection and returns a
// handle future Execute calls can use. The returned entry is also
// inserted into the cluster's shared prepared cache, so a later
// ExecutePrepared against a different pooled connection still hits
// cache rather than re-preparing.
func (s *Session) Prepare(ctx context.Context, text string) (*PreparedStatement, error) {
	conn, err := s.checkout()
	if err != nil {
		return nil, err
	}

	cache := s.cluster.PreparedCache()
	_, err = cache.GetOrPrepare(ctx, text, func(ctx context.Context, text string) (cassandra.PreparedEntry, error) {
		return cassandra.Prepare(ctx, conn, text)
	})
	if err != nil {
		return nil, err
	}
	return &PreparedStatement{text: text}, nil
}

// ExecutePrepared runs stmt against a checked-out connection. The
// statement is looked up in the cluster-wide prepared cache, which
// single-flights a PREPARE only on a cache miss, and is transparently
// re-prepared once more on an `unprepared` response.
func (s *Session) ExecutePrepared(ctx context.Context, stmt *PreparedStatement, consistency Consistency, values ...Value) (*Result, error) {
	conn, err := s.checkout()
	if err != nil {
		return nil, err
	}

	withNames := anyNamed(values)
	buildParams := func(entry cassandra.PreparedEntry) (protocol.QueryParams, error) {
		bound, err := toBoundValuesAgainst(values, entry.BoundColumns)
		if err != nil {
			return protocol.QueryParams{}, err
		}
		return protocol.QueryParams{Consistency: consistency, Values: bound, NamesForValues: withNames}, nil
	}

	res, err := cassandra.ExecutePrepared(ctx, conn, s.cluster.PreparedCache(), stmt.text, buildParams)
	if err != nil {
		return nil, err
	}
	return newResult(res)
}

// Batch runs a BATCH made of Simple and/or Prepared children, all on one
// connection, per spec.md §4.G. BATCH only carries positional values on
// the wire; any named value is rejected before anything is sent.
func (s *Session) Batch(ctx context.Context, batchType BatchType, consistency Consistency, statements ...BatchStatement) (*Result, error) {
	conn, err := s.checkout()
	if err != nil {
		return nil, err
	}

	// Resolve each Prepared child's id against the shared cache just
	// before sending, the same way ExecutePrepared does for a standalone
	// EXECUTE - a batch child that has never been prepared on this
	// connection is single-flight-prepared here rather than failing. Its
	// values are then encoded against that entry's bound-column metadata,
	// the same as ExecutePrepared, rather than each Value's own Type.
	cache := s.cluster.PreparedCache()
	children := make([]protocol.BatchChild, len(statements))
	for i, st := range statements {
		if st.prepared == nil {
			bound, err := toBoundValues(st.values)
			if err != nil {
				return nil, err
			}
			children[i] = protocol.BatchChild{Kind: protocol.BatchKindSimple, QueryText: st.text, Values: bound}
			continue
		}

		entry, err := cache.GetOrPrepare(ctx, st.prepared.text, func(ctx context.Context, text string) (cassandra.PreparedEntry, error) {
			return cassandra.Prepare(ctx, conn, text)
		})
		if err != nil {
			return nil, err
		}
		bound, err := toBoundValuesAgainst(st.values, entry.BoundColumns)
		if err != nil {
			return nil, err
		}
		children[i] = protocol.BatchChild{Kind: protocol.BatchKindPrepared, Values: bound, PreparedID: entry.ID}
	}

	res, err := cassandra.Batch(ctx, conn, batchType, children, consistency)
	if err != nil {
		return nil, err
	}
	return newResult(res)
}

// Stream starts a paged read over a Simple statement: text is prepared
// once on the first pull and the resulting id is reused (re-prepared at
// most once per pull) for every pull after that.
func (s *Session) Stream(ctx context.Context, text string, consistency Consistency, pageSize int32, values ...Value) (*PageStream, error) {
	conn, err := s.checkout()
	if err != nil {
		return nil, err
	}
	buildValues := func(columns []protocol.ColumnSpec) ([]protocol.BoundValue, error) {
		return toBoundValuesAgainst(values, columns)
	}
	return &PageStream{inner: cassandra.NewPageStream(conn, s.cluster.PreparedCache(), text, buildValues, consistency, pageSize)}, nil
}

// StreamPrepared starts a paged read over an already-Prepared statement.
func (s *Session) StreamPrepared(ctx context.Context, stmt *PreparedStatement, consistency Consistency, pageSize int32, values ...Value) (*PageStream, error) {
	conn, err := s.checkout()
	if err != nil {
		return nil, err
	}
	cache := s.cluster.PreparedCache()
	entry, err := cache.GetOrPrepare(ctx, stmt.text, func(ctx context.Context, text string) (cassandra.PreparedEntry, error) {
		return cassandra.Prepare(ctx, conn, text)
	})
	if err != nil {
		return nil, err
	}
	bound, err := toBoundValuesAgainst(values, entry.BoundColumns)
	if err != nil {
		return nil, err
	}
	return &PageStream{inner: cassandra.NewPreparedPageStream(conn, cache, entry.ID, bound, consistency, pageSize)}, nil
}

// Resume continues paging a query using the cursor carried by a
// previously returned Page - the §6 "cursor" configuration field. The
// caller is responsible for handing back the same statement text and
// values; Resume only restores the paging_state.
func (s *Session) Resume(ctx context.Context, text string, consistency Consistency, cursor []byte, pageSize int32, values ...Value) (*PageStream, error) {
	stream, err := s.Stream(ctx, text, consistency, pageSize, values...)
	if err != nil {
		return nil, err
	}
	stream.inner.SetCursor(cursor)
	return stream, nil
}

// Close tears down every node's control connection and data pool.
func (s *Session) Close() error { return s.cluster.Close() }
