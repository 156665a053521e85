package utils

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderByteOrder(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}

	r := NewReader(bytes.NewReader(data))
	v, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), v)

	r = NewReader(bytes.NewReader(data))
	r.SetFormat(binary.BigEndian, 4)
	v, err = r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), v)
}

func TestReadAddress(t *testing.T) {
	data := []byte{1, 0, 0, 0, 0, 0, 0, 0}

	r := NewReader(bytes.NewReader(data))
	r.SetFormat(binary.LittleEndian, 4)
	a, err := r.ReadAddress()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a)
	pos, _ := r.Pos()
	assert.Equal(t, int64(4), pos)

	r = NewReader(bytes.NewReader(data))
	a, err = r.ReadAddress()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a)
	pos, _ = r.Pos()
	assert.Equal(t, int64(8), pos)
}

func TestShortRead(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}))
	_, err := r.ReadU32()
	assert.ErrorIs(t, err, ErrShortRead)

	r = NewReader(bytes.NewReader(nil))
	_, err = r.ReadU8()
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestSkip(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3, 4}))
	require.NoError(t, r.Skip(3))
	c, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(4), c)

	require.NoError(t, r.Seek(1))
	assert.ErrorIs(t, r.Skip(4), ErrShortRead)
	pos, _ := r.Pos()
	assert.Equal(t, int64(1), pos)
}

func TestReadBytesBeyondEnd(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3, 4}))
	require.NoError(t, r.Seek(1))

	_, err := r.ReadBytes(1 << 40)
	assert.ErrorIs(t, err, ErrShortRead)
	_, err = r.ReadBytes(-1)
	assert.ErrorIs(t, err, ErrShortRead)
	pos, _ := r.Pos()
	assert.Equal(t, int64(1), pos)

	b, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4}, b)
}

func TestStrings(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("abc\x00def\x00\x00\x00")))
	s, err := r.ReadCString()
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
	s, err = r.ReadFixedString(6)
	require.NoError(t, err)
	assert.Equal(t, "def", s)

	_, err = NewReader(bytes.NewReader([]byte("open"))).ReadCString()
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestFloats(t *testing.T) {
	var buf []byte
	buf = binary.BigEndian.AppendUint32(buf, 0x3fc00000)
	buf = binary.BigEndian.AppendUint64(buf, 0xc004000000000000)
	r := NewReader(bytes.NewReader(buf))
	r.SetFormat(binary.BigEndian, 8)

	f, err := r.ReadF32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f)
	d, err := r.ReadF64()
	require.NoError(t, err)
	assert.Equal(t, -2.5, d)
}

func TestBinaryLiteral(t *testing.T) {
	assert.Equal(t, "0b00000101", BinaryLiteral(5, 8))
	assert.Equal(t, "0b0000000000000000", BinaryLiteral(0, 16))
	assert.Equal(t, "0b11111111", BinaryLiteral(0xff, 8))
}

func TestHexBytes(t *testing.T) {
	assert.Equal(t, "00 7f ff", HexBytes([]byte{0x00, 0x7f, 0xff}))
	assert.Equal(t, "", HexBytes(nil))
}

func TestXMLName(t *testing.T) {
	tests := map[string]string{
		"":           "_",
		"ob":         "ob",
		"mat_nr":     "mat_nr",
		"3d":         "_3d",
		"a b":        "a_b",
		"DATA":       "DATA",
		"RE\x00\x01": "RE__",
		"-x":         "_x",
	}
	for in, want := range tests {
		assert.Equal(t, want, XMLName(in), "input %q", in)
	}
}

func TestIsPrintable(t *testing.T) {
	assert.True(t, IsPrintable(' '))
	assert.True(t, IsPrintable('~'))
	assert.False(t, IsPrintable(0x1f))
	assert.False(t, IsPrintable(0x7f))
	assert.False(t, IsPrintable(0xc3))
}
