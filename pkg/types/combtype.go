package types

import (
	"errors"
	"strconv"
	"strings"
)

// CombType is a field name decoded into pointer and array information.
// "*next" is a pointer, "co[3]" has Width 3, "mat[4][4]" has Width 4 and Height 4.
type CombType struct {
	IsPointer bool
	Width     int
	Height    int
	ShortName string
	// Suffix is the pointer/array notation appended to the type name for display
	Suffix string
}

// Scalar is the CombType used for a whole block instance
var Scalar = CombType{Width: 1, Height: 1}

// ParseCombType parses a raw name-table entry
func ParseCombType(name string) CombType {
	ct := CombType{Width: 1, Height: 1}
	rest := name

	// Function pointer: (*func)()
	if strings.HasPrefix(rest, "(*") {
		ct.IsPointer = true
		ct.Suffix = "*"
		rest = rest[2:]
	} else {
		stars := len(rest) - len(strings.TrimLeft(rest, "*"))
		if stars > 0 {
			ct.IsPointer = true
			ct.Suffix = rest[:stars]
			rest = rest[stars:]
		}
	}

	end := 0
	for end < len(rest) && isIdentByte(rest[end]) {
		end++
	}
	ct.ShortName = rest[:end]

	dims, notation := parseExtents(rest[end:])
	switch len(dims) {
	case 0:
	case 1:
		ct.Width = dims[0]
	default:
		ct.Width, ct.Height = dims[0], dims[1]
	}
	ct.Suffix += notation
	return ct
}

// MaxSlots bounds the number of values a single field may hold
const MaxSlots = 1 << 20

// Slots returns the number of values the field holds
func (ct CombType) Slots() int {
	return ct.Width * ct.Height
}

// Oversized reports whether the extents exceed MaxSlots. Slots must not be
// used on an oversized CombType.
func (ct CombType) Oversized() bool {
	return ct.Width > MaxSlots || ct.Height > MaxSlots ||
		int64(ct.Width)*int64(ct.Height) > MaxSlots
}

// IsScalar reports whether the field has no array extents
func (ct CombType) IsScalar() bool {
	return ct.Width == 1 && ct.Height == 1
}

// parseExtents reads up to two leading "[N]" groups. Anything else ends the scan.
// Values above MaxSlots, including ones too large for an int, are kept as
// MaxSlots+1 so Oversized catches them.
func parseExtents(s string) ([]int, string) {
	var dims []int
	consumed := 0
	for len(dims) < 2 {
		rest := s[consumed:]
		if !strings.HasPrefix(rest, "[") {
			break
		}
		closing := strings.IndexByte(rest, ']')
		if closing < 0 {
			break
		}
		n, err := strconv.ParseUint(rest[1:closing], 10, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			break
		}
		if n < 1 {
			break
		}
		dims = append(dims, int(min(n, MaxSlots+1)))
		consumed += closing + 1
	}
	return dims, s[:consumed]
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
