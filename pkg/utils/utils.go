package utils

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrShortRead is returned when the stream ends in the middle of a value
var ErrShortRead = errors.New("unexpected end of stream")

// Reader reads file-native values. The byte order and pointer width are
// chosen once from the file header and carried by the Reader itself, so
// several files can be decoded at the same time.
type Reader struct {
	r       io.ReadSeeker
	order   binary.ByteOrder
	ptrSize int
	scratch [8]byte
}

// NewReader wraps r. Until SetFormat is called values are read little-endian
// with 8-byte pointers.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r, order: binary.LittleEndian, ptrSize: 8}
}

// SetFormat selects the byte order and pointer width for all following reads
func (r *Reader) SetFormat(order binary.ByteOrder, ptrSize int) {
	r.order = order
	r.ptrSize = ptrSize
}

// Order returns the active byte order
func (r *Reader) Order() binary.ByteOrder {
	return r.order
}

// PointerSize returns the active pointer width in bytes
func (r *Reader) PointerSize() int {
	return r.ptrSize
}

// Pos returns the current stream offset
func (r *Reader) Pos() (int64, error) {
	return r.r.Seek(0, io.SeekCurrent)
}

// Seek moves to an absolute stream offset
func (r *Reader) Seek(pos int64) error {
	_, err := r.r.Seek(pos, io.SeekStart)
	return err
}

// Skip advances n bytes without reading them. Skipping past the end is
// reported as a short read.
func (r *Reader) Skip(n int64) error {
	cur, err := r.available(n)
	if err != nil {
		return err
	}
	_, err = r.r.Seek(cur+n, io.SeekStart)
	return err
}

// ReadBytes reads exactly n bytes. The length is checked against the rest of
// the stream before anything is allocated.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if _, err := r.available(int64(n)); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// available checks that n more bytes exist and returns the current offset.
// The position is unchanged on return.
func (r *Reader) available(n int64) (int64, error) {
	cur, err := r.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.r.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	if n < 0 || n > end-cur {
		return 0, fmt.Errorf("need %d bytes at offset %d, %d left: %w", n, cur, end-cur, ErrShortRead)
	}
	return cur, nil
}

// ReadFixedString reads n bytes and cuts the result at the first NUL
func (r *Reader) ReadFixedString(n int) (string, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return CString(buf), nil
}

// ReadCString reads bytes up to and excluding a NUL terminator
func (r *Reader) ReadCString() (string, error) {
	var sb strings.Builder
	for {
		c, err := r.ReadU8()
		if err != nil {
			return "", err
		}
		if c == 0 {
			return sb.String(), nil
		}
		sb.WriteByte(c)
	}
}

// ReadU8 reads one byte
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.readFull(r.scratch[:1]); err != nil {
		return 0, err
	}
	return r.scratch[0], nil
}

// ReadU16 reads a 16-bit value in file byte order
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.readFull(r.scratch[:2]); err != nil {
		return 0, err
	}
	return r.order.Uint16(r.scratch[:2]), nil
}

// ReadU32 reads a 32-bit value in file byte order
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.readFull(r.scratch[:4]); err != nil {
		return 0, err
	}
	return r.order.Uint32(r.scratch[:4]), nil
}

// ReadU64 reads a 64-bit value in file byte order
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.readFull(r.scratch[:8]); err != nil {
		return 0, err
	}
	return r.order.Uint64(r.scratch[:8]), nil
}

// ReadF32 reads an IEEE-754 single
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

// ReadF64 reads an IEEE-754 double
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

// ReadAddress reads a pointer-width value
func (r *Reader) ReadAddress() (uint64, error) {
	if r.ptrSize == 4 {
		v, err := r.ReadU32()
		return uint64(v), err
	}
	return r.ReadU64()
}

func (r *Reader) readFull(buf []byte) error {
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrShortRead
		}
		return err
	}
	return nil
}

// CString returns b up to the first NUL
func CString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// IsPrintable reports whether c is a printable low-ASCII character
func IsPrintable(c byte) bool {
	return c >= 0x20 && c <= 0x7e
}

// BinaryLiteral renders v as a 0b-prefixed literal with bits digits
func BinaryLiteral(v uint64, bits int) string {
	s := strconv.FormatUint(v, 2)
	if len(s) < bits {
		s = strings.Repeat("0", bits-len(s)) + s
	}
	return "0b" + s
}

// HexBytes renders b as space separated two-digit lowercase hex
func HexBytes(b []byte) string {
	const digits = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(digits[c>>4])
		sb.WriteByte(digits[c&0x0f])
	}
	return sb.String()
}

// XMLName turns an arbitrary schema string into a valid XML element name
func XMLName(s string) string {
	if s == "" {
		return "_"
	}
	b := []byte(s)
	for i, c := range b {
		ok := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if i > 0 {
			ok = ok || c == '-' || c == '.' || (c >= '0' && c <= '9')
		}
		if !ok {
			b[i] = '_'
		}
	}
	// "3d" becomes "_3d", not "_d"
	if s[0] >= '0' && s[0] <= '9' {
		return "_" + s[:1] + string(b[1:])
	}
	return string(b)
}
