package xandra

import (
	"github.com/lexhide/xandra/internal/protocol"
)

// Row is one decoded result row: a map from column name to the
// materialized Go value the type codec produced for it. A column whose
// bytes were absent decodes to a nil entry.
type Row map[string]any

// Result is a fully materialized response: the decoded rows of a SELECT,
// the keyspace name of a USE, or neither for a void/schema-change
// result. PagingState is non-nil only when this Result came from
// (*Session).Stream/(*Session).StreamPrepared and more pages remain -
// see spec.md §3's "the user may pass a Page back as a cursor" and
// (*Session).Resume.
type Result struct {
	Columns     []protocol.ColumnSpec
	Rows        []Row
	SetKeyspace string
	PagingState []byte
}

func newResult(res *protocol.Result) (*Result, error) {
	r := &Result{}
	switch res.Kind {
	case protocol.ResultVoid, protocol.ResultSchemaChange:
	case protocol.ResultSetKeyspace:
		r.SetKeyspace = res.SetKeyspace
	case protocol.ResultRows:
		r.Columns = res.Rows.Metadata.Columns
		rows, err := decodeRows(r.Columns, res.Rows.Rows)
		if err != nil {
			return nil, err
		}
		r.Rows = rows
	}
	return r, nil
}
