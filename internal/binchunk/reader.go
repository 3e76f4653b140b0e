package binchunk

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Reader is a forward-only cursor over an in-memory chunk.
// It is not safe for concurrent use; give each goroutine its own Reader.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader positioned at the start of data.
// The Reader never hands out slices that alias data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current byte offset.
func (r *Reader) Pos() int {
	return r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// need fails with KindOutOfData when fewer than n bytes remain.
func (r *Reader) need(n uint64, what string) error {
	if n > uint64(r.Len()) {
		return outOfData(r.pos, fmt.Sprintf("reading %s needs %d bytes, %d left", what, n, r.Len()))
	}
	return nil
}

// Peek returns a copy of the next n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("binchunk: negative peek %d", n)
	}
	if err := r.need(uint64(n), "peek"); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:])
	return out, nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1, "byte"); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4, "uint32"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8, "uint64"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadInteger reads a lua_Integer: eight bytes reinterpreted as int64.
func (r *Reader) ReadInteger() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadNumber reads a lua_Number: eight bytes reinterpreted as an IEEE-754 double.
func (r *Reader) ReadNumber() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBytes copies the next n bytes.
func (r *Reader) ReadBytes(n uint64) ([]byte, error) {
	if err := r.need(n, "bytes"); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:])
	r.pos += int(n)
	return out, nil
}

// ReadString reads a size-prefixed string.
//
// The size byte is 0 for the empty string, 0xFF when the real size follows
// as a uint64, and the size itself otherwise. The size counts a trailing
// NUL that is not stored, so size-1 bytes of payload follow.
func (r *Reader) ReadString() (string, error) {
	start := r.pos
	b, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	size := uint64(b)
	switch size {
	case 0:
		return "", nil
	case 0xFF:
		size, err = r.ReadUint64()
		if err != nil {
			return "", err
		}
		if size == 0 {
			return "", malformed(ReasonStringLength, start, "long string with zero size")
		}
	}

	payload, err := r.ReadBytes(size - 1)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(payload) {
		return "", malformed(ReasonEncoding, start, "string is not valid UTF-8")
	}
	return string(payload), nil
}
