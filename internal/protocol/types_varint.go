package protocol

import "math/big"

// encodeBigInt renders n as a signed big-endian two's-complement integer
// of minimal length.
func encodeBigInt(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{0x00}
	}

	if n.Sign() > 0 {
		b := n.Bytes()
		// If the high bit of the first byte is set, the value would read
		// as negative in two's-complement; prepend a zero byte.
		if b[0]&0x80 != 0 {
			b = append([]byte{0x00}, b...)
		}
		return b
	}

	// Negative: two's-complement of the minimal byte length that still
	// has its sign bit set. BitLen reports the magnitude's bit length,
	// which needs one extra bit for the sign - except when the magnitude
	// is itself exactly 2^(bitLen-1), the one case where that sign bit
	// was already included (e.g. -128 is the 8-bit two's-complement
	// minimum, not a 9-bit value).
	bitLen := n.BitLen()
	byteLen := bitLen/8 + 1
	if bitLen%8 == 0 {
		pow2 := new(big.Int).Lsh(big.NewInt(1), uint(bitLen-1))
		if new(big.Int).Neg(n).Cmp(pow2) == 0 {
			byteLen--
		}
	}
	twos := new(big.Int).Add(n, new(big.Int).Lsh(big.NewInt(1), uint(byteLen*8)))
	b := twos.Bytes()
	for len(b) < byteLen {
		b = append([]byte{0x00}, b...)
	}
	return b
}

func decodeBigInt(b []byte) *big.Int {
	n := new(big.Int)
	if len(b) == 0 {
		return n
	}
	if b[0]&0x80 == 0 {
		n.SetBytes(b)
		return n
	}
	// Negative: invert the bytes, add one and negate, i.e. undo the two's
	// complement back to a sign-magnitude big.Int.
	inverted := make([]byte, len(b))
	for i, c := range b {
		inverted[i] = ^c
	}
	n.SetBytes(inverted)
	n.Add(n, big.NewInt(1))
	n.Neg(n)
	return n
}

func encodeVarint(v any) ([]byte, error) {
	switch n := v.(type) {
	case *big.Int:
		return encodeBigInt(n), nil
	case big.Int:
		return encodeBigInt(&n), nil
	default:
		if i, ok := toInt64(v); ok {
			return encodeBigInt(big.NewInt(i)), nil
		}
		return nil, &MalformedValue{Type: "varint", Msg: "value is not a *big.Int or integer"}
	}
}

func decodeVarint(b []byte) (any, error) {
	return decodeBigInt(b), nil
}
