package protocol

import "github.com/golang/snappy"

// SnappyCompressor implements Compressor using google's snappy algorithm,
// the same dependency gocql itself vendors for this purpose.
type SnappyCompressor struct{}

func (SnappyCompressor) Algorithm() string { return "snappy" }

func (SnappyCompressor) Compress(p []byte) ([]byte, error) {
	return snappy.Encode(nil, p), nil
}

func (SnappyCompressor) Decompress(p []byte) ([]byte, error) {
	return snappy.Decode(nil, p)
}
