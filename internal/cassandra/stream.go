package cassandra

import (
	"context"

	"github.com/lexhide/xandra/internal/protocol"
)

// ValuesFunc resolves a statement's bound parameters given columns, the
// bound-column metadata of the PreparedEntry the statement currently
// resolves to. It is called again after a re-prepare, so a caller that
// validates or encodes against column metadata always sees the metadata
// for the id it is about to execute against.
type ValuesFunc func(columns []protocol.ColumnSpec) ([]protocol.BoundValue, error)

// PageStream is a lazy, finite sequence of Pages over one statement.
// Each call to Next executes the next page using the previous
// paging_state, until a page arrives without one. If the underlying
// statement is text, the statement is prepared once on the first pull
// and the resulting id is reused - and re-prepared exactly once on an
// unprepared response - for every pull after that.
type PageStream struct {
	conn        *Connection
	cache       *PreparedCache
	text        string // non-empty when the statement started as Simple text
	preparedID  []byte
	buildValues ValuesFunc
	boundValues []protocol.BoundValue // resolved against the entry s.preparedID currently names
	consistency protocol.Consistency
	pageSize    int32

	started     bool
	done        bool
	pagingState []byte
}

// NewPageStream starts a stream over a Simple statement's text. Since the
// statement is not prepared until the first pull, buildValues is not
// called until then, against that first PREPARE's bound-column metadata.
func NewPageStream(conn *Connection, cache *PreparedCache, text string, buildValues ValuesFunc, consistency protocol.Consistency, pageSize int32) *PageStream {
	return &PageStream{conn: conn, cache: cache, text: text, buildValues: buildValues, consistency: consistency, pageSize: pageSize}
}

// NewPreparedPageStream starts a stream over an already-prepared
// statement id, with values already resolved against that statement's
// bound-column metadata.
func NewPreparedPageStream(conn *Connection, cache *PreparedCache, preparedID []byte, values []protocol.BoundValue, consistency protocol.Consistency, pageSize int32) *PageStream {
	return &PageStream{conn: conn, cache: cache, preparedID: preparedID, boundValues: values, consistency: consistency, pageSize: pageSize}
}

func (s *PageStream) prepareFn() PrepareFunc {
	return func(ctx context.Context, text string) (PreparedEntry, error) {
		return Prepare(ctx, s.conn, text)
	}
}

func (s *PageStream) resolveValues(columns []protocol.ColumnSpec) error {
	if s.buildValues == nil {
		return nil
	}
	bound, err := s.buildValues(columns)
	if err != nil {
		return err
	}
	s.boundValues = bound
	return nil
}

// Next pulls the next Page. It returns (nil, nil) once the stream is
// exhausted.
func (s *PageStream) Next(ctx context.Context) (*Page, error) {
	if s.done {
		return nil, nil
	}

	if !s.started && s.preparedID == nil && s.text != "" {
		entry, err := s.cache.GetOrPrepare(ctx, s.text, s.prepareFn())
		if err != nil {
			return nil, err
		}
		s.preparedID = entry.ID
		if err := s.resolveValues(entry.BoundColumns); err != nil {
			return nil, err
		}
	}
	s.started = true

	params := protocol.QueryParams{
		Consistency: s.consistency,
		Values:      s.boundValues,
		HasPageSize: s.pageSize > 0,
		PageSize:    s.pageSize,
		PagingState: s.pagingState,
	}

	res, err := executeOnce(ctx, s.conn, s.preparedID, params)
	if isUnprepared(err) && s.text != "" {
		entry, reprepErr := s.cache.Reprepare(ctx, s.text, s.prepareFn())
		if reprepErr != nil {
			return nil, reprepErr
		}
		s.preparedID = entry.ID
		if err := s.resolveValues(entry.BoundColumns); err != nil {
			return nil, err
		}
		params.Values = s.boundValues
		res, err = executeOnce(ctx, s.conn, s.preparedID, params)
	}
	if err != nil {
		return nil, err
	}

	page, err := newPage(res)
	if err != nil {
		return nil, err
	}
	if page.Terminal() {
		s.done = true
	} else {
		s.pagingState = page.PagingState
	}
	return page, nil
}

// Close releases stream resources. It does not close the underlying
// connection, which every other part of this package owns.
func (s *PageStream) Close() error { return nil }

// SetCursor seeds the stream's paging_state from a cursor handed back by
// the caller (the §6 "cursor" configuration field), so the next Next
// call resumes a previously started page sequence instead of starting
// over at the beginning of the result.
func (s *PageStream) SetCursor(cursor []byte) {
	s.pagingState = cursor
}
