package xandra

import (
	"github.com/lexhide/xandra/internal/protocol"
)

// Value is one bound value for a Simple or Prepared statement. Type is
// required whenever the statement has no server-provided column
// metadata to infer it from - that is, always for a Simple statement,
// and for a Prepared one only if the driver should not trust the bound
// column type it already has (it always does, so Prepared statements
// built with the typed constructors below never need Type set;
// ExecutePrepared, Stream, StreamPrepared and prepared Batch children
// resolve the wire type against the statement's cached
// bound-column metadata instead, by position or by Name for a named
// value, and Type is only a fallback for a statement with no such
// metadata).
type Value struct {
	Name   string
	Type   protocol.TypeInfo
	V      any
	notSet bool
}

// Named rebinds v to a named parameter. Only EXECUTE against a Prepared
// statement may use named values - a Simple statement is rejected with
// InvalidArguments, since it carries no bound-column metadata to match
// the name against.
func Named(name string, v Value) Value {
	v.Name = name
	return v
}

// Unset marks v "not set": the server keeps whatever value a column
// already has rather than overwriting it with NULL. Only meaningful
// against a Prepared statement.
func Unset(t protocol.TypeInfo) Value {
	return Value{Type: t, notSet: true}
}

// Null is an explicit NULL of type t.
func Null(t protocol.TypeInfo) Value { return Value{Type: t} }

func Ascii(v string) Value     { return Value{Type: protocol.Simple(protocol.KindAscii), V: v} }
func Text(v string) Value      { return Value{Type: protocol.Simple(protocol.KindText), V: v} }
func Blob(v []byte) Value      { return Value{Type: protocol.Simple(protocol.KindBlob), V: v} }
func Boolean(v bool) Value     { return Value{Type: protocol.Simple(protocol.KindBoolean), V: v} }
func Int(v int32) Value        { return Value{Type: protocol.Simple(protocol.KindInt), V: v} }
func BigInt(v int64) Value     { return Value{Type: protocol.Simple(protocol.KindBigint), V: v} }
func Counter(v int64) Value    { return Value{Type: protocol.Simple(protocol.KindCounter), V: v} }
func Smallint(v int16) Value   { return Value{Type: protocol.Simple(protocol.KindSmallint), V: v} }
func Tinyint(v int8) Value     { return Value{Type: protocol.Simple(protocol.KindTinyint), V: v} }
func Float(v float32) Value    { return Value{Type: protocol.Simple(protocol.KindFloat), V: v} }
func Double(v float64) Value   { return Value{Type: protocol.Simple(protocol.KindDouble), V: v} }
func Varint(v any) Value       { return Value{Type: protocol.Simple(protocol.KindVarint), V: v} }
func Decimal(v any) Value      { return Value{Type: protocol.Simple(protocol.KindDecimal), V: v} }
func UUID(v [16]byte) Value    { return Value{Type: protocol.Simple(protocol.KindUUID), V: v} }
func TimeUUID(v [16]byte) Value {
	return Value{Type: protocol.Simple(protocol.KindTimeUUID), V: v}
}
func Timestamp(v any) Value { return Value{Type: protocol.Simple(protocol.KindTimestamp), V: v} }
func DateValue(v any) Value { return Value{Type: protocol.Simple(protocol.KindDate), V: v} }
func TimeValue(v any) Value { return Value{Type: protocol.Simple(protocol.KindTime), V: v} }
func Duration(v any) Value  { return Value{Type: protocol.Simple(protocol.KindDuration), V: v} }
func Inet(v any) Value      { return Value{Type: protocol.Simple(protocol.KindInet), V: v} }

func List(elem protocol.TypeInfo, v any) Value {
	return Value{Type: protocol.ListOf(elem), V: v}
}
func Set(elem protocol.TypeInfo, v any) Value {
	return Value{Type: protocol.SetOf(elem), V: v}
}
func Map(k, v protocol.TypeInfo, m any) Value {
	return Value{Type: protocol.MapOf(k, v), V: m}
}

var hintKinds = buildHintKinds()

func buildHintKinds() map[string]protocol.Kind {
	kinds := []protocol.Kind{
		protocol.KindAscii, protocol.KindBigint, protocol.KindBlob, protocol.KindBoolean,
		protocol.KindCounter, protocol.KindDecimal, protocol.KindDouble, protocol.KindFloat,
		protocol.KindInet, protocol.KindInt, protocol.KindSmallint, protocol.KindText,
		protocol.KindTimestamp, protocol.KindTimeUUID, protocol.KindTinyint, protocol.KindUUID,
		protocol.KindVarint, protocol.KindDate, protocol.KindTime, protocol.KindDuration,
	}
	m := make(map[string]protocol.Kind, len(kinds))
	for _, k := range kinds {
		m[k.String()] = k
	}
	return m
}

// Hint builds a Value from the textual type-name hint form, e.g.
// Hint("int", 1) or Hint("bigint", int64(1)). It exists for Simple
// statements binding an integer-typed column, where there is no column
// metadata from the server to infer the wire type from a plain Go int.
func Hint(typeName string, v any) (Value, error) {
	kind, ok := hintKinds[typeName]
	if !ok {
		return Value{}, &InvalidArguments{Msg: "unknown type hint " + typeName}
	}
	return Value{Type: protocol.Simple(kind), V: v}, nil
}

func (v Value) toBound(typ protocol.TypeInfo) (protocol.BoundValue, error) {
	if v.notSet {
		return protocol.BoundValue{Name: v.Name, NotSet: true}, nil
	}
	if v.V == nil {
		return protocol.BoundValue{Name: v.Name}, nil
	}
	b, err := protocol.EncodeValue(v.V, typ)
	if err != nil {
		return protocol.BoundValue{}, err
	}
	return protocol.BoundValue{Name: v.Name, Bytes: b}, nil
}

// toBoundValues encodes every value against its own declared Type. Used
// for a Simple statement, which has no server-provided column metadata
// to resolve the wire type against instead.
func toBoundValues(values []Value) ([]protocol.BoundValue, error) {
	bound := make([]protocol.BoundValue, len(values))
	for i, v := range values {
		b, err := v.toBound(v.Type)
		if err != nil {
			return nil, err
		}
		bound[i] = b
	}
	return bound, nil
}

// toBoundValuesAgainst encodes every value against columns, a Prepared
// statement's cached bound-column metadata, rather than each Value's own
// Type - so Int(5) bound against a real bigint column is caught (or
// encoded correctly) instead of silently producing wrong-width bytes.
// Falls back to toBoundValues when columns is empty (e.g. a PREPARE
// whose server reported no bound parameters at all).
func toBoundValuesAgainst(values []Value, columns []protocol.ColumnSpec) ([]protocol.BoundValue, error) {
	if len(columns) == 0 {
		return toBoundValues(values)
	}
	if !anyNamed(values) && len(values) != len(columns) {
		return nil, &InvalidArguments{Msg: "wrong number of bound values for prepared statement"}
	}

	bound := make([]protocol.BoundValue, len(values))
	for i, v := range values {
		col, err := resolveBoundColumn(v, i, columns)
		if err != nil {
			return nil, err
		}
		b, err := v.toBound(col.Type)
		if err != nil {
			return nil, err
		}
		bound[i] = b
	}
	return bound, nil
}

func resolveBoundColumn(v Value, i int, columns []protocol.ColumnSpec) (protocol.ColumnSpec, error) {
	if v.Name == "" {
		if i >= len(columns) {
			return protocol.ColumnSpec{}, &InvalidArguments{Msg: "wrong number of bound values for prepared statement"}
		}
		return columns[i], nil
	}
	for _, col := range columns {
		if col.Name == v.Name {
			return col, nil
		}
	}
	return protocol.ColumnSpec{}, &InvalidArguments{Msg: "unknown bound parameter name " + v.Name}
}

func anyNamed(values []Value) bool {
	for _, v := range values {
		if v.Name != "" {
			return true
		}
	}
	return false
}

// PreparedStatement is a handle returned by (*Session).Prepare. It
// retains only the statement text - re-prepare-on-miss already keys off
// text in the shared cache, so there is never a stale id to hold here.
type PreparedStatement struct {
	text string
}

// BatchStatement is one child of a Batch call: either a Simple
// statement's text or a Prepared statement's handle, with its values.
type BatchStatement struct {
	text     string
	prepared *PreparedStatement
	values   []Value
}

// BatchQuery adds a Simple statement to a Batch.
func BatchQuery(text string, values ...Value) BatchStatement {
	return BatchStatement{text: text, values: values}
}

// BatchExecute adds a Prepared statement to a Batch.
func BatchExecute(stmt *PreparedStatement, values ...Value) BatchStatement {
	return BatchStatement{prepared: stmt, values: values}
}
