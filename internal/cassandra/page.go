package cassandra

import "github.com/lexhide/xandra/internal/protocol"

// Page is one fragment of a paged result set: its rows, the column
// metadata describing them, and the paging_state cursor to pass back
// for the next fragment. A Page with no PagingState is terminal - it
// is the last fragment of the result.
type Page struct {
	Columns     []protocol.ColumnSpec
	Rows        []protocol.RowData
	PagingState []byte
}

// Terminal reports whether this is the last page of its result set.
func (p *Page) Terminal() bool { return len(p.PagingState) == 0 }

// newPage converts a rows RESULT into a Page. Any other RESULT kind
// reaching here is a protocol violation: paging only ever applies to
// a SELECT's rows.
func newPage(res *protocol.Result) (*Page, error) {
	if res.Kind != protocol.ResultRows || res.Rows == nil {
		return nil, &protocolViolation{Msg: "expected a rows RESULT while paging"}
	}
	return &Page{
		Columns:     res.Rows.Metadata.Columns,
		Rows:        res.Rows.Rows,
		PagingState: res.Rows.Metadata.PagingState,
	}, nil
}
