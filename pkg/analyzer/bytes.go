package analyzer

import (
	"fmt"
	"strings"

	"blend-lens/pkg/utils"
)

// Encoding is the rendering chosen for a char block
type Encoding string

const (
	EncodingASCII Encoding = "ascii"
	EncodingMixed Encoding = "mixed"
	EncodingHex   Encoding = "hex"
)

// ClassifyBlock picks the rendering for height rows of width bytes.
// Rows that are printable text padded with zeros render as ascii; other
// blocks render as mixed when the field name looks like a string, hex
// otherwise.
func (h *Heuristics) ClassifyBlock(data []byte, width int, shortName string) Encoding {
	allText := true
	for start := 0; start < len(data); start += width {
		if !IsTextRow(data[start:min(start+width, len(data))]) {
			allText = false
			break
		}
	}
	switch {
	case allText:
		return EncodingASCII
	case h.IsStringLike(shortName):
		return EncodingMixed
	default:
		return EncodingHex
	}
}

// IsTextRow reports whether row is printable low-ASCII followed only by NULs
func IsTextRow(row []byte) bool {
	i := 0
	for i < len(row) && utils.IsPrintable(row[i]) {
		i++
	}
	for ; i < len(row); i++ {
		if row[i] != 0 {
			return false
		}
	}
	return true
}

// ASCIIRow returns the text of a row produced by IsTextRow
func ASCIIRow(row []byte) string {
	return utils.CString(row)
}

// MixedRow escapes a row up to its last nonzero byte. Printable bytes
// stay as they are, NUL becomes \0, backslash becomes \\ and everything
// else a three-digit octal escape.
func MixedRow(row []byte) string {
	last := len(row) - 1
	for last >= 0 && row[last] == 0 {
		last--
	}
	var sb strings.Builder
	for _, c := range row[:last+1] {
		switch {
		case c == 0:
			sb.WriteString(`\0`)
		case c == '\\':
			sb.WriteString(`\\`)
		case utils.IsPrintable(c):
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, `\%03o`, c)
		}
	}
	return sb.String()
}
