package cassandra

import (
	"context"

	"github.com/lexhide/xandra/internal/protocol"
)

// decodeResponse turns a RESULT or ERROR response body into either a
// *protocol.Result or a ServerError. It is the one place every request
// path (QUERY, EXECUTE, BATCH, PREPARE) converges on so each has
// identical error-surfacing behavior.
func decodeResponse(header protocol.Header, body []byte) (*protocol.Result, error) {
	switch header.Opcode {
	case protocol.OpResult:
		return protocol.ParseResult(body)
	case protocol.OpError:
		eb, err := protocol.ParseErrorBody(body)
		if err != nil {
			return nil, err
		}
		return nil, errorBodyToServerError(eb)
	default:
		return nil, &protocolViolation{Msg: "unexpected opcode in response to a request"}
	}
}

func errorBodyToServerError(eb *protocol.ErrorBody) *serverError {
	return &serverError{
		Code:        uint32(eb.Code),
		Message:     eb.Message,
		Consistency: uint16(eb.Consistency),
		Required:    eb.Required,
		Alive:       eb.Alive,
		Received:    eb.Received,
		BlockFor:    eb.BlockFor,
		WriteType:   eb.WriteType,
		DataPresent: eb.DataPresent,
		Keyspace:    eb.Keyspace,
		Table:       eb.Table,
	}
}

// Query runs a Simple statement: the query text is sent inline with its
// values, with no prepared-cache involvement.
func Query(ctx context.Context, conn *Connection, text string, params protocol.QueryParams) (*protocol.Result, error) {
	header, body, err := conn.SendWithTimeout(ctx, protocol.OpQuery, protocol.QueryBody(text, params), 0)
	if err != nil {
		return nil, err
	}
	return decodeResponse(header, body)
}

// Prepare sends PREPARE for text and returns the entry to cache.
func Prepare(ctx context.Context, conn *Connection, text string) (PreparedEntry, error) {
	header, body, err := conn.SendWithTimeout(ctx, protocol.OpPrepare, protocol.PrepareBody(text), 0)
	if err != nil {
		return PreparedEntry{}, err
	}
	res, err := decodeResponse(header, body)
	if err != nil {
		return PreparedEntry{}, err
	}
	if res.Kind != protocol.ResultPrepared || res.Prepared == nil {
		return PreparedEntry{}, &protocolViolation{Msg: "PREPARE did not return a prepared RESULT"}
	}
	return PreparedEntry{
		ID:            res.Prepared.ID,
		BoundColumns:  res.Prepared.BoundColumns,
		ResultColumns: res.Prepared.ResultColumns,
	}, nil
}

// ParamsFunc builds the QueryParams to EXECUTE with, given the
// PreparedEntry the statement text currently resolves to. ExecutePrepared
// calls it again after a re-prepare, so a caller that binds values
// against entry.BoundColumns always encodes against the column metadata
// the id it is about to execute against was actually issued with.
type ParamsFunc func(entry PreparedEntry) (protocol.QueryParams, error)

// ExecutePrepared runs a Prepared statement: text is looked up in cache
// (single-flighting a PREPARE on a miss), then EXECUTE is sent against
// the resulting id. If the server reports the id unprepared, exactly one
// re-prepare-and-retry is attempted before surfacing the ServerError.
func ExecutePrepared(ctx context.Context, conn *Connection, cache *PreparedCache, text string, buildParams ParamsFunc) (*protocol.Result, error) {
	prepareFn := func(ctx context.Context, text string) (PreparedEntry, error) {
		return Prepare(ctx, conn, text)
	}

	entry, err := cache.GetOrPrepare(ctx, text, prepareFn)
	if err != nil {
		return nil, err
	}

	params, err := buildParams(entry)
	if err != nil {
		return nil, err
	}

	res, err := executeOnce(ctx, conn, entry.ID, params)
	if isUnprepared(err) {
		entry, reprepErr := cache.Reprepare(ctx, text, prepareFn)
		if reprepErr != nil {
			return nil, reprepErr
		}
		params, err = buildParams(entry)
		if err != nil {
			return nil, err
		}
		res, err = executeOnce(ctx, conn, entry.ID, params)
	}
	return res, err
}

func executeOnce(ctx context.Context, conn *Connection, preparedID []byte, params protocol.QueryParams) (*protocol.Result, error) {
	header, body, err := conn.SendWithTimeout(ctx, protocol.OpExecute, protocol.ExecuteBody(preparedID, params), 0)
	if err != nil {
		return nil, err
	}
	return decodeResponse(header, body)
}

func isUnprepared(err error) bool {
	se, ok := err.(*serverError)
	return ok && se.Code == uint32(protocol.ErrCodeUnprepared)
}
