package xandra

import (
	"context"

	"github.com/lexhide/xandra/internal/cassandra"
	"github.com/lexhide/xandra/internal/protocol"
)

// PageStream is a lazy, finite sequence of Pages over one statement: see
// spec.md §4.G. Each pull executes the next page using the previous
// page's paging_state, until a page arrives without one. If the
// underlying statement started out as Simple text, it is prepared once
// on the first pull and re-prepared at most once per pull thereafter.
type PageStream struct {
	inner *cassandra.PageStream
}

// Next pulls the next page of the result. It returns (nil, nil) once the
// stream is exhausted:
//
//	for {
//	    res, err := stream.Next(ctx)
//	    if err != nil { return err }
//	    if res == nil { break }
//	    ... consume res.Rows ...
//	}
func (s *PageStream) Next(ctx context.Context) (*Result, error) {
	page, err := s.inner.Next(ctx)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, nil
	}
	rows, err := decodeRows(page.Columns, page.Rows)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: page.Columns, Rows: rows, PagingState: page.PagingState}, nil
}

// Close releases stream resources. It does not close the underlying
// Session.
func (s *PageStream) Close() error { return s.inner.Close() }

func decodeRows(columns []protocol.ColumnSpec, raw []protocol.RowData) ([]Row, error) {
	rows := make([]Row, len(raw))
	for i, r := range raw {
		row := make(Row, len(columns))
		for c, col := range columns {
			if r[c] == nil {
				row[col.Name] = nil
				continue
			}
			v, err := protocol.DecodeValue(r[c], col.Type)
			if err != nil {
				return nil, err
			}
			row[col.Name] = v
		}
		rows[i] = row
	}
	return rows, nil
}
