package protocol

import (
	"encoding/binary"

	"gopkg.in/inf.v0"
)

// encodeDecimal lays out decimal as [int scale][varint unscaled value].
// The arithmetic of decimals is out of scope here - this only needs
// inf.Dec's unscaled-value/scale accessors
// to produce the byte layout, never anything that rounds or compares.
func encodeDecimal(v any) ([]byte, error) {
	d, ok := v.(*inf.Dec)
	if !ok {
		if dv, ok2 := v.(inf.Dec); ok2 {
			d = &dv
		} else {
			return nil, &MalformedValue{Type: "decimal", Msg: "value is not an *inf.Dec"}
		}
	}

	scaleBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(scaleBuf, uint32(int32(d.Scale())))

	unscaled := encodeBigInt(d.UnscaledBig())
	return append(scaleBuf, unscaled...), nil
}

func decodeDecimal(b []byte) (any, error) {
	if len(b) < 4 {
		return nil, &MalformedValue{Type: "decimal", Msg: "expected at least 4 bytes for the scale"}
	}
	scale := inf.Scale(int32(binary.BigEndian.Uint32(b[:4])))
	unscaled := decodeBigInt(b[4:])
	return inf.NewDecBig(unscaled, scale), nil
}
