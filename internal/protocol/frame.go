package protocol

import (
	"encoding/binary"
	"fmt"
)

// HeaderLength is the fixed size of a CQL native protocol v4 frame header.
const HeaderLength = 9

// Header is the 9-byte frame header.
type Header struct {
	Version byte
	Flags   byte
	Stream  int16
	Opcode  Opcode
	Length  uint32
}

// Frame is a decoded header paired with its (possibly already
// decompressed) body.
type Frame struct {
	Header Header
	Body   []byte
}

// Compressor is the polymorphic compression capability negotiated over
// OPTIONS/STARTUP.
type Compressor interface {
	Algorithm() string
	Compress(p []byte) ([]byte, error)
	Decompress(p []byte) ([]byte, error)
}

// EncodeHeader serializes a 9-byte header for the given stream/opcode with
// the body length left at zero; callers patch the length once the body
// (and optional compression) is known, via PatchLength.
func EncodeHeader(version byte, flags byte, stream int16, op Opcode) []byte {
	buf := make([]byte, HeaderLength)
	buf[0] = version
	buf[1] = flags
	binary.BigEndian.PutUint16(buf[2:4], uint16(stream))
	buf[4] = byte(op)
	return buf
}

// PatchLength writes the body length into a header previously produced by
// EncodeHeader.
func PatchLength(header []byte, length int) {
	binary.BigEndian.PutUint32(header[5:9], uint32(length))
}

// EncodeRequest serializes a full request frame: header + body, applying
// compression when compressor is non-nil and op is neither STARTUP nor
// OPTIONS.
func EncodeRequest(stream int16, op Opcode, body []byte, compressor Compressor) ([]byte, error) {
	flags := byte(0)
	outBody := body

	if compressor != nil && op != OpStartup && op != OpOptions {
		compressed, err := compressor.Compress(body)
		if err != nil {
			return nil, fmt.Errorf("xandra: compress request: %w", err)
		}
		outBody = compressed
		flags |= HeaderFlagCompression
	}

	header := EncodeHeader(ProtocolVersionRequest, flags, stream, op)
	PatchLength(header, len(outBody))
	return append(header, outBody...), nil
}

// DecodeHeader parses a 9-byte header already read off the wire.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLength {
		return Header{}, &ProtocolViolation{Msg: "short frame header"}
	}
	version := buf[0]
	if version&0x80 == 0 {
		return Header{}, &ProtocolViolation{Msg: fmt.Sprintf("response version 0x%02x does not have the high bit set", version)}
	}
	return Header{
		Version: version,
		Flags:   buf[1],
		Stream:  int16(binary.BigEndian.Uint16(buf[2:4])),
		Opcode:  Opcode(buf[4]),
		Length:  binary.BigEndian.Uint32(buf[5:9]),
	}, nil
}

// DecodeBody decompresses (if flagged) the raw bytes that followed a
// header, returning a ready-to-parse message body.
func DecodeBody(header Header, raw []byte, compressor Compressor) ([]byte, error) {
	if uint32(len(raw)) != header.Length {
		return nil, &ProtocolViolation{Msg: fmt.Sprintf("body length mismatch: header says %d, have %d", header.Length, len(raw))}
	}

	if header.Flags&HeaderFlagCompression != 0 {
		if compressor == nil {
			return nil, &ProtocolViolation{Msg: "compressed frame but no compressor negotiated"}
		}
		return compressor.Decompress(raw)
	}

	return raw, nil
}

// MaxFrameBodyLength guards against a maliciously or corruptly huge
// length field before the driver attempts to allocate a read buffer for
// it.
const MaxFrameBodyLength = 256 * 1024 * 1024

func ValidateBodyLength(length uint32) error {
	if length > MaxFrameBodyLength {
		return &ProtocolViolation{Msg: fmt.Sprintf("frame body length %d exceeds maximum %d", length, MaxFrameBodyLength)}
	}
	return nil
}
