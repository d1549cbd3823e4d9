package packet

import (
	"encoding/binary"
	"math"
	"sync"
	"unicode/utf8"
)

// MaxStringLen bounds an encoded string in bytes.
const MaxStringLen = 32767

// Writer accumulates a replication payload.
// Fixed-width values are little-endian; strings are a varint byte length
// followed by UTF-8.
type Writer struct {
	buf []byte
}

var writerPool = sync.Pool{
	New: func() any {
		return &Writer{buf: make([]byte, 0, 512)}
	},
}

// Get returns an empty Writer from the pool.
func Get() *Writer {
	w := writerPool.Get().(*Writer)
	w.Reset()
	return w
}

// Put returns the Writer to the pool. Neither the Writer nor a slice from
// Bytes may be used afterwards.
func (w *Writer) Put() {
	writerPool.Put(w)
}

// NewWriter creates a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// WriteByte appends b. It never fails; the error satisfies io.ByteWriter.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

func (w *Writer) WriteInt8(val int8) {
	w.buf = append(w.buf, byte(val))
}

// WriteBool writes 1 or 0.
func (w *Writer) WriteBool(val bool) {
	var b byte
	if val {
		b = 1
	}
	w.buf = append(w.buf, b)
}

func (w *Writer) WriteInt(val int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(val))
}

func (w *Writer) WriteUint(val uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, val)
}

// WriteFloat writes the IEEE 754 bits, so NaN payloads and signed zeros
// survive.
func (w *Writer) WriteFloat(val float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(val))
}

// WriteVarUint writes val in 1 to 5 bytes, seven bits at a time.
func (w *Writer) WriteVarUint(val uint32) {
	w.buf = binary.AppendUvarint(w.buf, uint64(val))
}

// WriteString writes s as a length-prefixed UTF-8 string. Identifiers use
// the same encoding. Strings longer than MaxStringLen are cut at the last
// rune boundary that fits.
func (w *Writer) WriteString(s string) {
	if len(s) > MaxStringLen {
		n := MaxStringLen
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	w.WriteVarUint(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// Bytes returns the accumulated data. The slice aliases the writer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset empties the writer, keeping its capacity.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}
