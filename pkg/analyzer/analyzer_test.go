package analyzer

import (
	"testing"

	"blend-lens/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBlock(t *testing.T) {
	h := DefaultHeuristics()
	tests := []struct {
		name      string
		data      []byte
		width     int
		shortName string
		want      Encoding
	}{
		{"text padded with zeros", []byte("abc\x00\x00\x00"), 6, "data", EncodingASCII},
		{"all zeros", make([]byte, 8), 8, "data", EncodingASCII},
		{"text rows", []byte("ab\x00cd\x00"), 3, "data", EncodingASCII},
		{"binary in string field", []byte{'a', 0, 'b', 0}, 4, "name", EncodingMixed},
		{"binary in dir field", []byte{0xff, 0}, 2, "dir", EncodingMixed},
		{"binary in *str field", []byte{0x01}, 1, "idstr", EncodingMixed},
		{"binary elsewhere", []byte{0x01, 0x02}, 2, "rgba", EncodingHex},
		{"high bytes elsewhere", []byte("caf\xc3\xa9"), 5, "data", EncodingHex},
		{"second row broken", []byte("ok\x00\x01\x02\x03"), 3, "pad_data", EncodingHex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.ClassifyBlock(tt.data, tt.width, tt.shortName))
		})
	}
}

func TestRows(t *testing.T) {
	assert.True(t, IsTextRow([]byte("abc\x00\x00")))
	assert.True(t, IsTextRow(nil))
	assert.False(t, IsTextRow([]byte("a\x00b")))
	assert.Equal(t, "abc", ASCIIRow([]byte("abc\x00\x00")))

	assert.Equal(t, `a\0b`, MixedRow([]byte{'a', 0, 'b', 0, 0}))
	assert.Equal(t, `\\\001\377`, MixedRow([]byte{'\\', 1, 0xff}))
	assert.Equal(t, "", MixedRow(make([]byte, 4)))
}

func TestHeuristics(t *testing.T) {
	h := DefaultHeuristics()

	assert.True(t, h.IsStringLike("Name"))
	assert.True(t, h.IsStringLike("filepath"))
	assert.True(t, h.IsStringLike("file"))
	assert.False(t, h.IsStringLike("files"))
	assert.True(t, h.IsStringLike("tipstr"))

	assert.True(t, h.IsFlagLike("flag"))
	assert.True(t, h.IsFlagLike("dtype"))
	assert.True(t, h.IsFlagLike("visibility_flag"))
	assert.False(t, h.IsFlagLike("totvert"))
}

func TestPadding(t *testing.T) {
	h := DefaultHeuristics()
	for _, name := range []string{"pad", "pad1", "_pad", "__pad2", "pad32"} {
		assert.True(t, h.IsPadding(name), name)
	}
	for _, name := range []string{"padding", "spad", "pad_x", "page"} {
		assert.False(t, h.IsPadding(name), name)
	}

	require.NoError(t, h.SetPaddingPattern(`^(pad|_?gap)\d*$`))
	assert.True(t, h.IsPadding("_gap4"))
	assert.False(t, h.IsPadding("_pad"))
	assert.Error(t, h.SetPaddingPattern("("))

	var zero Heuristics
	assert.True(t, zero.IsPadding("_pad"))
}

func TestBlockWarnings(t *testing.T) {
	schema := &types.Schema{
		TypeNames:   []string{"int", "Foo"},
		TypeLengths: []uint16{4, 8},
		TypeStructs: []int{types.NoStruct, 0},
		Structs:     []types.Structure{{Type: 1}},
	}

	assert.Empty(t, BlockWarnings(types.Block{Code: "DATA", Size: 16, Count: 2}, schema))

	w := BlockWarnings(types.Block{Code: "DATA", Size: 12, Count: 2}, schema)
	require.Len(t, w, 1)
	assert.Equal(t, "SIZE_MISMATCH", w[0].Code)
	assert.Contains(t, w[0].Message, "Foo")

	w = BlockWarnings(types.Block{Code: "DATA", Size: 0, Count: 0}, schema)
	require.Len(t, w, 1)
	assert.Equal(t, "EMPTY_BLOCK", w[0].Code)

	// Index range is the printer's concern, no warning here
	assert.Empty(t, BlockWarnings(types.Block{Code: "DATA", SDNAIndex: 9, Count: 1}, schema))
}
