package protocol

import "fmt"

// Kind is one of the closed set of CQL type descriptors.
type Kind byte

const (
	KindAscii Kind = iota
	KindBigint
	KindBlob
	KindBoolean
	KindCounter
	KindDecimal
	KindDouble
	KindFloat
	KindInet
	KindInt
	KindSmallint
	KindText
	KindTimestamp
	KindTimeUUID
	KindTinyint
	KindUUID
	KindVarint
	KindDate
	KindTime
	KindDuration
	KindList
	KindSet
	KindMap
	KindTuple
	KindUDT
)

func (k Kind) String() string {
	switch k {
	case KindAscii:
		return "ascii"
	case KindBigint:
		return "bigint"
	case KindBlob:
		return "blob"
	case KindBoolean:
		return "boolean"
	case KindCounter:
		return "counter"
	case KindDecimal:
		return "decimal"
	case KindDouble:
		return "double"
	case KindFloat:
		return "float"
	case KindInet:
		return "inet"
	case KindInt:
		return "int"
	case KindSmallint:
		return "smallint"
	case KindText:
		return "text"
	case KindTimestamp:
		return "timestamp"
	case KindTimeUUID:
		return "timeuuid"
	case KindTinyint:
		return "tinyint"
	case KindUUID:
		return "uuid"
	case KindVarint:
		return "varint"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDuration:
		return "duration"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindTuple:
		return "tuple"
	case KindUDT:
		return "udt"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// UDTField is one named, typed field of a user-defined type, in
// declaration order.
type UDTField struct {
	Name string
	Type TypeInfo
}

// TypeInfo fully describes a CQL type, including the parametric ones.
type TypeInfo struct {
	Kind Kind

	// KindList, KindSet
	Elem *TypeInfo

	// KindMap
	KeyType *TypeInfo
	ValType *TypeInfo

	// KindTuple
	Elems []TypeInfo

	// KindUDT
	Keyspace string
	UDTName  string
	Fields   []UDTField
}

func Simple(k Kind) TypeInfo { return TypeInfo{Kind: k} }

func ListOf(elem TypeInfo) TypeInfo  { return TypeInfo{Kind: KindList, Elem: &elem} }
func SetOf(elem TypeInfo) TypeInfo   { return TypeInfo{Kind: KindSet, Elem: &elem} }
func MapOf(k, v TypeInfo) TypeInfo   { return TypeInfo{Kind: KindMap, KeyType: &k, ValType: &v} }
func TupleOf(elems ...TypeInfo) TypeInfo { return TypeInfo{Kind: KindTuple, Elems: elems} }

// EncodeValue renders a Go value as the content bytes for t (not
// including the outer [int length] prefix - callers append that via
// Writer.WriteValueBytes). A nil v must be handled by the caller before
// calling EncodeValue: it means NULL on the wire and has no typed
// encoding.
func EncodeValue(v any, t TypeInfo) ([]byte, error) {
	switch t.Kind {
	case KindAscii, KindText:
		return encodeText(v, t.Kind)
	case KindBlob:
		return encodeBlob(v)
	case KindBoolean:
		return encodeBoolean(v)
	case KindInt:
		return encodeInt32(v)
	case KindBigint, KindCounter, KindTimestamp:
		return encodeInt64(v)
	case KindSmallint:
		return encodeInt16(v)
	case KindTinyint:
		return encodeInt8(v)
	case KindFloat:
		return encodeFloat32(v)
	case KindDouble:
		return encodeFloat64(v)
	case KindUUID, KindTimeUUID:
		return encodeUUID(v)
	case KindInet:
		return encodeInet(v)
	case KindVarint:
		return encodeVarint(v)
	case KindDecimal:
		return encodeDecimal(v)
	case KindDate:
		return encodeDate(v)
	case KindTime:
		return encodeTimeOfDay(v)
	case KindDuration:
		return encodeDuration(v)
	case KindList, KindSet:
		return encodeList(v, t)
	case KindMap:
		return encodeMap(v, t)
	case KindTuple:
		return encodeTuple(v, t)
	case KindUDT:
		return encodeUDT(v, t)
	default:
		return nil, &MalformedValue{Type: t.Kind.String(), Msg: "unsupported type"}
	}
}

// DecodeValue parses b (the content bytes after the length prefix has
// already been consumed) into a Go value for t. A nil b must be handled
// by the caller: it represents NULL and has no typed decoding here,
// except that tuples and UDTs decode missing trailing fields as nil
// rather than rejecting them.
func DecodeValue(b []byte, t TypeInfo) (any, error) {
	switch t.Kind {
	case KindAscii, KindText:
		return decodeText(b, t.Kind)
	case KindBlob:
		return decodeBlob(b)
	case KindBoolean:
		return decodeBoolean(b)
	case KindInt:
		return decodeInt32(b)
	case KindBigint, KindCounter, KindTimestamp:
		return decodeInt64(b)
	case KindSmallint:
		return decodeInt16(b)
	case KindTinyint:
		return decodeInt8(b)
	case KindFloat:
		return decodeFloat32(b)
	case KindDouble:
		return decodeFloat64(b)
	case KindUUID, KindTimeUUID:
		return decodeUUID(b)
	case KindInet:
		return decodeInet(b)
	case KindVarint:
		return decodeVarint(b)
	case KindDecimal:
		return decodeDecimal(b)
	case KindDate:
		return decodeDate(b)
	case KindTime:
		return decodeTimeOfDay(b)
	case KindDuration:
		return decodeDuration(b)
	case KindList, KindSet:
		return decodeList(b, t)
	case KindMap:
		return decodeMap(b, t)
	case KindTuple:
		return decodeTuple(b, t)
	case KindUDT:
		return decodeUDT(b, t)
	default:
		return nil, &MalformedValue{Type: t.Kind.String(), Msg: "unsupported type"}
	}
}
