package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4Compressor implements Compressor using the LZ4 block format. Per the
// CQL native protocol, an LZ4-compressed body is prefixed with a 4-byte
// big-endian length of the uncompressed payload, since LZ4 blocks (unlike
// snappy's format) do not self-describe their decompressed size.
type LZ4Compressor struct{}

func (LZ4Compressor) Algorithm() string { return "lz4" }

func (LZ4Compressor) Compress(p []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(p))
	dst := make([]byte, 4+bound)
	binary.BigEndian.PutUint32(dst[:4], uint32(len(p)))

	var c lz4.Compressor
	n, err := c.CompressBlock(p, dst[4:])
	if err != nil {
		return nil, fmt.Errorf("xandra: lz4 compress: %w", err)
	}
	if n == 0 && len(p) > 0 {
		return nil, fmt.Errorf("xandra: lz4 compress: incompressible input")
	}
	return dst[:4+n], nil
}

func (LZ4Compressor) Decompress(p []byte) ([]byte, error) {
	if len(p) < 4 {
		return nil, &MalformedValue{Type: "lz4", Msg: "compressed body shorter than the 4-byte length prefix"}
	}
	uncompressedLen := binary.BigEndian.Uint32(p[:4])
	dst := make([]byte, uncompressedLen)
	n, err := lz4.UncompressBlock(p[4:], dst)
	if err != nil {
		return nil, fmt.Errorf("xandra: lz4 decompress: %w", err)
	}
	return dst[:n], nil
}
