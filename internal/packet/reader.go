package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// ErrShortBuffer is wrapped by every read that runs past the end of data.
var ErrShortBuffer = errors.New("packet: short buffer")

// Reader decodes a payload produced by Writer. Reads never panic; a failed
// read leaves the position unchanged.
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) need(n int, what string) error {
	if n > len(r.data)-r.pos {
		return fmt.Errorf("reading %s at %d of %d: %w", what, r.pos, len(r.data), ErrShortBuffer)
	}
	return nil
}

func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1, "byte"); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) ReadInt8() (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err
}

// ReadBool reads one byte; any non-zero value is true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

func (r *Reader) ReadUint() (uint32, error) {
	if err := r.need(4, "uint32"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadInt() (int32, error) {
	v, err := r.ReadUint()
	return int32(v), err
}

func (r *Reader) ReadFloat() (float32, error) {
	v, err := r.ReadUint()
	return math.Float32frombits(v), err
}

// ReadVarUint reads a value written by WriteVarUint.
func (r *Reader) ReadVarUint() (uint32, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	switch {
	case n == 0:
		return 0, fmt.Errorf("reading varint at %d of %d: %w", r.pos, len(r.data), ErrShortBuffer)
	case n < 0 || v > math.MaxUint32:
		return 0, fmt.Errorf("reading varint at %d: overflow", r.pos)
	}
	r.pos += n
	return uint32(v), nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	start := r.pos
	n, err := r.ReadVarUint()
	if err != nil {
		return "", err
	}
	if n > MaxStringLen {
		r.pos = start
		return "", fmt.Errorf("reading string at %d: length %d exceeds %d", start, n, MaxStringLen)
	}
	if err := r.need(int(n), "string"); err != nil {
		r.pos = start
		return "", err
	}
	raw := r.data[r.pos : r.pos+int(n)]
	if !utf8.Valid(raw) {
		r.pos = start
		return "", fmt.Errorf("reading string at %d: invalid UTF-8", start)
	}
	r.pos += int(n)
	return string(raw), nil
}

// ReadBytes returns the next n bytes without copying. Callers must not
// modify them.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("reading %d bytes: negative count", n)
	}
	if err := r.need(n, "bytes"); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Position returns the current read position.
func (r *Reader) Position() int {
	return r.pos
}
