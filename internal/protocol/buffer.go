package protocol

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Writer accumulates the body of a single request message using the
// native protocol's primitive encodings. It never allocates per
// primitive; callers build one Writer per outgoing message.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 128)}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteByte(b byte) { w.buf = append(w.buf, b) }

func (w *Writer) WriteShort(n uint16) {
	w.buf = append(w.buf, byte(n>>8), byte(n))
}

func (w *Writer) WriteInt(n int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(n))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) WriteLong(n int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(n))
	w.buf = append(w.buf, tmp[:]...)
}

// WriteString writes [string]: [short length][bytes].
func (w *Writer) WriteString(s string) {
	w.WriteShort(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteLongString writes [long string]: [int length][bytes].
func (w *Writer) WriteLongString(s string) {
	w.WriteInt(int32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes [bytes]: [int n][n bytes], n=-1 means null.
func (w *Writer) WriteBytes(b []byte) {
	if b == nil {
		w.WriteInt(-1)
		return
	}
	w.WriteInt(int32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteValueBytes writes the request-body value encoding from :
// length -1 for NULL, -2 for "not set", else the content length.
func (w *Writer) WriteValueBytes(b []byte, notSet bool) {
	if notSet {
		w.WriteInt(-2)
		return
	}
	if b == nil {
		w.WriteInt(-1)
		return
	}
	w.WriteInt(int32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteShortBytes writes [short bytes]: [short n][n bytes].
func (w *Writer) WriteShortBytes(b []byte) {
	w.WriteShort(uint16(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteUUID(b [16]byte) {
	w.buf = append(w.buf, b[:]...)
}

// WriteInet writes [inet]: [byte n][n bytes address] (no port).
func (w *Writer) WriteInet(ip net.IP) {
	v4 := ip.To4()
	if v4 != nil {
		w.WriteByte(4)
		w.buf = append(w.buf, v4...)
		return
	}
	v6 := ip.To16()
	w.WriteByte(16)
	w.buf = append(w.buf, v6...)
}

// WriteInetAddr writes [inet] with a trailing [int port], the address
// layout EVENT bodies carry.
func (w *Writer) WriteInetAddr(ip net.IP, port int32) {
	w.WriteInet(ip)
	w.WriteInt(port)
}

func (w *Writer) WriteStringList(list []string) {
	w.WriteShort(uint16(len(list)))
	for _, s := range list {
		w.WriteString(s)
	}
}

func (w *Writer) WriteStringMap(m map[string]string) {
	w.WriteShort(uint16(len(m)))
	for k, v := range m {
		w.WriteString(k)
		w.WriteString(v)
	}
}

// WriteStringMultimap writes a [string multimap]: the layout a SUPPORTED
// response body uses. The driver itself never sends one - only
// SupportedBody, on the test harness side that plays the server, needs it.
func (w *Writer) WriteStringMultimap(m map[string][]string) {
	w.WriteShort(uint16(len(m)))
	for k, v := range m {
		w.WriteString(k)
		w.WriteStringList(v)
	}
}

// Reader consumes the body of a single response message. All Read*
// methods panic with a readError on short buffers; Recover turns this
// into a regular error so callers never see a panic escape the package.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

type readError struct{ err error }

func (r *Reader) need(n int) {
	if r.Remaining() < n {
		panic(readError{fmt.Errorf("need %d bytes, have %d", n, r.Remaining())})
	}
}

func (r *Reader) ReadByte() byte {
	r.need(1)
	b := r.buf[r.pos]
	r.pos++
	return b
}

func (r *Reader) ReadShort() uint16 {
	r.need(2)
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v
}

func (r *Reader) ReadInt() int32 {
	r.need(4)
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return int32(v)
}

func (r *Reader) ReadLong() int64 {
	r.need(8)
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return int64(v)
}

func (r *Reader) ReadString() string {
	n := int(r.ReadShort())
	r.need(n)
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s
}

func (r *Reader) ReadLongString() string {
	n := int(r.ReadInt())
	r.need(n)
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s
}

// ReadBytes reads [bytes]; a nil return distinguishes NULL (n=-1) from
// empty (n=0).
func (r *Reader) ReadBytes() []byte {
	n := int(r.ReadInt())
	if n < 0 {
		return nil
	}
	r.need(n)
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b
}

func (r *Reader) ReadShortBytes() []byte {
	n := int(r.ReadShort())
	r.need(n)
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b
}

func (r *Reader) ReadUUID() [16]byte {
	r.need(16)
	var u [16]byte
	copy(u[:], r.buf[r.pos:r.pos+16])
	r.pos += 16
	return u
}

// ReadInet reads a [byte n][n bytes] address with no port.
func (r *Reader) ReadInet() net.IP {
	n := int(r.ReadByte())
	r.need(n)
	ip := make(net.IP, n)
	copy(ip, r.buf[r.pos:r.pos+n])
	r.pos += n
	return ip
}

// ReadInetAddr reads [inet] with a trailing [int port].
func (r *Reader) ReadInetAddr() (net.IP, int32) {
	ip := r.ReadInet()
	port := r.ReadInt()
	return ip, port
}

func (r *Reader) ReadStringList() []string {
	n := int(r.ReadShort())
	out := make([]string, n)
	for i := range out {
		out[i] = r.ReadString()
	}
	return out
}

func (r *Reader) ReadStringMap() map[string]string {
	n := int(r.ReadShort())
	out := make(map[string]string, n)
	for i := 0; i < n; i++ {
		k := r.ReadString()
		v := r.ReadString()
		out[k] = v
	}
	return out
}

func (r *Reader) ReadStringMultimap() map[string][]string {
	n := int(r.ReadShort())
	out := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		k := r.ReadString()
		v := r.ReadStringList()
		out[k] = v
	}
	return out
}

// Recover turns a panic raised by need() into a returned error. Call via
// defer at the top of any exported Parse* function.
func Recover(err *error) {
	if r := recover(); r != nil {
		if re, ok := r.(readError); ok {
			*err = &ProtocolViolation{Msg: re.err.Error()}
			return
		}
		panic(r)
	}
}
