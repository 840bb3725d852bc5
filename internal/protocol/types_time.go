package protocol

import (
	"encoding/binary"
	"time"
)

// dateEpochOffset is the value of the date type at 1970-01-01.
const dateEpochOffset uint32 = 1 << 31

// encodeDate accepts a time.Time (truncated to its UTC calendar day), a
// uint32 taken as already in the wire form (days since 1970-01-01 plus
// 2^31), or any other integer taken as signed days since 1970-01-01, to
// which 2^31 is added.
func encodeDate(v any) ([]byte, error) {
	var days uint32
	switch d := v.(type) {
	case time.Time:
		epochDay := d.UTC().Truncate(24 * time.Hour).Unix() / int64(24*60*60)
		days = uint32(epochDay + int64(dateEpochOffset))
	case uint32:
		days = d
	default:
		if i, ok := toInt64(v); ok {
			days = uint32(i + int64(dateEpochOffset))
		} else {
			return nil, &MalformedValue{Type: "date", Msg: "value is not a time.Time or integer day offset"}
		}
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, days)
	return buf, nil
}

func decodeDate(b []byte) (any, error) {
	if len(b) != 4 {
		return nil, &MalformedValue{Type: "date", Msg: "expected exactly 4 bytes"}
	}
	raw := binary.BigEndian.Uint32(b)
	epochDay := int64(raw) - int64(dateEpochOffset)
	return time.Unix(epochDay*24*60*60, 0).UTC(), nil
}

// encodeTimeOfDay accepts a time.Duration since midnight, or a raw
// nanosecond count.
func encodeTimeOfDay(v any) ([]byte, error) {
	var nanos int64
	switch t := v.(type) {
	case time.Duration:
		nanos = int64(t)
	default:
		if i, ok := toInt64(v); ok {
			nanos = i
		} else {
			return nil, &MalformedValue{Type: "time", Msg: "value is not a time.Duration or integer nanosecond count"}
		}
	}
	if nanos < 0 || nanos >= 24*60*60*1e9 {
		return nil, &MalformedValue{Type: "time", Msg: "nanoseconds since midnight out of range"}
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(nanos))
	return buf, nil
}

func decodeTimeOfDay(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, &MalformedValue{Type: "time", Msg: "expected exactly 8 bytes"}
	}
	return time.Duration(binary.BigEndian.Uint64(b)), nil
}

// Duration is the CQL duration type: months/days are kept separate from
// nanoseconds because a month has no fixed length.
type Duration struct {
	Months      int32
	Days        int32
	Nanoseconds int64
}

func encodeDuration(v any) ([]byte, error) {
	d, ok := v.(Duration)
	if !ok {
		return nil, &MalformedValue{Type: "duration", Msg: "value is not a Duration"}
	}
	out := encodeSignedVarintZigZag(int64(d.Months))
	out = append(out, encodeSignedVarintZigZag(int64(d.Days))...)
	out = append(out, encodeSignedVarintZigZag(d.Nanoseconds)...)
	return out, nil
}

func decodeDuration(b []byte) (any, error) {
	months, rest, err := decodeSignedVarintZigZag(b)
	if err != nil {
		return nil, &MalformedValue{Type: "duration", Msg: err.Error()}
	}
	days, rest, err := decodeSignedVarintZigZag(rest)
	if err != nil {
		return nil, &MalformedValue{Type: "duration", Msg: err.Error()}
	}
	nanos, _, err := decodeSignedVarintZigZag(rest)
	if err != nil {
		return nil, &MalformedValue{Type: "duration", Msg: err.Error()}
	}
	return Duration{Months: int32(months), Days: int32(days), Nanoseconds: nanos}, nil
}

// encodeSignedVarintZigZag encodes n using the protocol's zig-zag +
// base-128 varint scheme used for the three duration fields.
func encodeSignedVarintZigZag(n int64) []byte {
	u := uint64((n << 1) ^ (n >> 63))
	var buf []byte
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			break
		}
	}
	return buf
}

func decodeSignedVarintZigZag(b []byte) (int64, []byte, error) {
	var u uint64
	var shift uint
	for i, c := range b {
		u |= uint64(c&0x7F) << shift
		if c&0x80 == 0 {
			n := int64(u>>1) ^ -(int64(u) & 1)
			return n, b[i+1:], nil
		}
		shift += 7
		if shift > 63 {
			return 0, nil, &MalformedValue{Type: "duration", Msg: "varint field too long"}
		}
	}
	return 0, nil, &MalformedValue{Type: "duration", Msg: "truncated varint field"}
}
