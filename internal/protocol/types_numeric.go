package protocol

import (
	"encoding/binary"
	"math"
)

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		return int64(n), true
	default:
		return 0, false
	}
}

func encodeBoolean(v any) ([]byte, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, &MalformedValue{Type: "boolean", Msg: "value is not a bool"}
	}
	if b {
		return []byte{0x01}, nil
	}
	return []byte{0x00}, nil
}

func decodeBoolean(b []byte) (any, error) {
	if len(b) != 1 {
		return nil, &MalformedValue{Type: "boolean", Msg: "expected exactly 1 byte"}
	}
	return b[0] != 0x00, nil
}

func encodeInt8(v any) ([]byte, error) {
	n, ok := toInt64(v)
	if !ok {
		return nil, &MalformedValue{Type: "tinyint", Msg: "value is not an integer"}
	}
	return []byte{byte(int8(n))}, nil
}

func decodeInt8(b []byte) (any, error) {
	if len(b) != 1 {
		return nil, &MalformedValue{Type: "tinyint", Msg: "expected exactly 1 byte"}
	}
	return int8(b[0]), nil
}

func encodeInt16(v any) ([]byte, error) {
	n, ok := toInt64(v)
	if !ok {
		return nil, &MalformedValue{Type: "smallint", Msg: "value is not an integer"}
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(int16(n)))
	return buf, nil
}

func decodeInt16(b []byte) (any, error) {
	if len(b) != 2 {
		return nil, &MalformedValue{Type: "smallint", Msg: "expected exactly 2 bytes"}
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func encodeInt32(v any) ([]byte, error) {
	n, ok := toInt64(v)
	if !ok {
		return nil, &MalformedValue{Type: "int", Msg: "value is not an integer"}
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(int32(n)))
	return buf, nil
}

func decodeInt32(b []byte) (any, error) {
	if len(b) != 4 {
		return nil, &MalformedValue{Type: "int", Msg: "expected exactly 4 bytes"}
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func encodeInt64(v any) ([]byte, error) {
	n, ok := toInt64(v)
	if !ok {
		return nil, &MalformedValue{Type: "bigint", Msg: "value is not an integer"}
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf, nil
}

func decodeInt64(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, &MalformedValue{Type: "bigint", Msg: "expected exactly 8 bytes"}
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func encodeFloat32(v any) ([]byte, error) {
	f, ok := v.(float32)
	if !ok {
		if f64, ok2 := v.(float64); ok2 {
			f = float32(f64)
		} else {
			return nil, &MalformedValue{Type: "float", Msg: "value is not a float32"}
		}
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(f))
	return buf, nil
}

func decodeFloat32(b []byte) (any, error) {
	if len(b) != 4 {
		return nil, &MalformedValue{Type: "float", Msg: "expected exactly 4 bytes"}
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func encodeFloat64(v any) ([]byte, error) {
	f, ok := v.(float64)
	if !ok {
		if f32, ok2 := v.(float32); ok2 {
			f = float64(f32)
		} else {
			return nil, &MalformedValue{Type: "double", Msg: "value is not a float64"}
		}
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f))
	return buf, nil
}

func decodeFloat64(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, &MalformedValue{Type: "double", Msg: "expected exactly 8 bytes"}
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}
