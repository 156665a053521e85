package printer

import (
	"strconv"
	"strings"

	"blend-lens/pkg/analyzer"
	"blend-lens/pkg/parser"
	"blend-lens/pkg/types"
	"blend-lens/pkg/utils"
)

// maxDepth bounds struct-in-struct nesting. Only a schema with a structure
// containing itself by value gets this deep.
const maxDepth = 64

// maxIdle bounds the values a document may produce without consuming
// input: zero-size structure instances and zero-length primitives
const maxIdle = 1 << 16

const (
	redactedPointer = "0xDEADBEEF"
	nullPointer     = "NULL"
	unknownValue    = "???"
)

// decodeKind is how a value is read and rendered
type decodeKind int

const (
	kindPointer   decodeKind = iota // addresses, never followed
	kindCharFlag                    // single char shown as bits
	kindCharBlock                   // char array: text, escaped text or hex
	kindNumeric                     // other primitives
	kindStruct                      // compound type, recurse into fields
)

func (k decodeKind) String() string {
	switch k {
	case kindPointer:
		return "pointer"
	case kindCharFlag:
		return "char-flag"
	case kindCharBlock:
		return "char-block"
	case kindNumeric:
		return "numeric"
	case kindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

func (p *Printer) kindOf(typeIndex int, ct types.CombType) decodeKind {
	switch {
	case ct.IsPointer:
		return kindPointer
	case p.file.Schema.StructFor(typeIndex) != types.NoStruct:
		return kindStruct
	case p.file.Schema.TypeNames[typeIndex] == "char":
		if ct.IsScalar() {
			return kindCharFlag
		}
		return kindCharBlock
	default:
		return kindNumeric
	}
}

// decode reads one field value of type typeIndex shaped by ct and writes
// it into the currently open element
func (p *Printer) decode(typeIndex int, ct types.CombType) error {
	switch p.kindOf(typeIndex, ct) {
	case kindPointer:
		return p.decodePointers(ct)
	case kindCharFlag:
		return p.decodeCharFlag()
	case kindCharBlock:
		return p.decodeCharBlock(ct)
	case kindNumeric:
		return p.decodeNumeric(typeIndex, ct)
	default:
		return p.decodeStruct(typeIndex, ct)
	}
}

func (p *Printer) decodePointers(ct types.CombType) error {
	parts := make([]string, 0, min(ct.Slots(), 64))
	for i := 0; i < ct.Slots(); i++ {
		addr, err := p.r.ReadAddress()
		if err != nil {
			return p.fail(err, "read pointer %q", ct.ShortName)
		}
		switch {
		case addr == 0:
			parts = append(parts, nullPointer)
		case p.opts.RawPointers:
			parts = append(parts, "0x"+strconv.FormatUint(addr, 16))
		default:
			parts = append(parts, redactedPointer)
		}
	}
	return p.sink.Text(strings.Join(parts, " "))
}

func (p *Printer) decodeCharFlag() error {
	c, err := p.r.ReadU8()
	if err != nil {
		return p.fail(err, "read char")
	}
	return p.sink.Text(utils.BinaryLiteral(uint64(c), 8))
}

func (p *Printer) decodeCharBlock(ct types.CombType) error {
	data, err := p.r.ReadBytes(ct.Slots())
	if err != nil {
		return p.fail(err, "read char[%d] %q", ct.Slots(), ct.ShortName)
	}

	enc := p.opts.Heuristics.ClassifyBlock(data, ct.Width, ct.ShortName)
	if err := p.sink.Attr("encoding", string(enc)); err != nil {
		return err
	}
	if enc == analyzer.EncodingHex {
		return p.sink.Text(utils.HexBytes(data))
	}

	for row := 0; row < ct.Height; row++ {
		line := data[row*ct.Width : (row+1)*ct.Width]
		text := analyzer.ASCIIRow(line)
		if enc == analyzer.EncodingMixed {
			text = analyzer.MixedRow(line)
		}
		if err := p.element("string", func() error { return p.sink.Text(text) }); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) decodeNumeric(typeIndex int, ct types.CombType) error {
	s := p.file.Schema
	name := s.TypeNames[typeIndex]
	length := int(s.TypeLengths[typeIndex])
	asFlag := ct.IsScalar() && p.opts.Heuristics.IsFlagLike(ct.ShortName)
	if length == 0 {
		if err := p.idle(ct.Slots()); err != nil {
			return err
		}
	}

	var sb strings.Builder
	for i := 0; i < ct.Slots(); i++ {
		v, err := p.readScalar(name, length, asFlag)
		if err != nil {
			return err
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(v)
	}
	return p.sink.Text(sb.String())
}

// readScalar reads one primitive. Its width comes from the type-length
// table; float and double are the only floating point types.
func (p *Printer) readScalar(typeName string, length int, asFlag bool) (string, error) {
	unsigned := strings.HasPrefix(typeName, "u")

	switch length {
	case 0:
		// Indeterminate size, nothing is consumed
		return unknownValue, nil
	case 1:
		v, err := p.r.ReadU8()
		if err != nil {
			return "", p.fail(err, "read %s", typeName)
		}
		return formatInt(uint64(v), int64(int8(v)), 8, unsigned, asFlag), nil
	case 2:
		v, err := p.r.ReadU16()
		if err != nil {
			return "", p.fail(err, "read %s", typeName)
		}
		return formatInt(uint64(v), int64(int16(v)), 16, unsigned, asFlag), nil
	case 4:
		if typeName == "float" {
			f, err := p.r.ReadF32()
			if err != nil {
				return "", p.fail(err, "read %s", typeName)
			}
			return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
		}
		v, err := p.r.ReadU32()
		if err != nil {
			return "", p.fail(err, "read %s", typeName)
		}
		return formatInt(uint64(v), int64(int32(v)), 32, unsigned, asFlag), nil
	case 8:
		if typeName == "double" {
			f, err := p.r.ReadF64()
			if err != nil {
				return "", p.fail(err, "read %s", typeName)
			}
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		}
		v, err := p.r.ReadU64()
		if err != nil {
			return "", p.fail(err, "read %s", typeName)
		}
		return formatInt(v, int64(v), 64, unsigned, asFlag), nil
	default:
		return "", p.fail(parser.ErrSchemaInconsistent, "type %q has unsupported length %d", typeName, length)
	}
}

func formatInt(u uint64, s int64, bits int, unsigned, asFlag bool) string {
	switch {
	case asFlag:
		return utils.BinaryLiteral(u, bits)
	case unsigned:
		return strconv.FormatUint(u, 10)
	default:
		return strconv.FormatInt(s, 10)
	}
}

func (p *Printer) decodeStruct(typeIndex int, ct types.CombType) error {
	if p.depth >= maxDepth {
		return p.fail(parser.ErrSchemaInconsistent, "structure %q nested deeper than %d",
			p.file.Schema.TypeNames[typeIndex], maxDepth)
	}
	p.depth++
	defer func() { p.depth-- }()

	st := p.file.Schema.Structs[p.file.Schema.StructFor(typeIndex)]
	fields := func() error {
		for _, f := range st.Fields {
			if err := p.decodeField(f); err != nil {
				return err
			}
		}
		return nil
	}

	if ct.IsScalar() {
		return fields()
	}
	return p.repeat(uint64(ct.Slots()), func() error { return p.element("elem", fields) })
}

// repeat runs instance n times
func (p *Printer) repeat(n uint64, instance func() error) error {
	for i := uint64(0); i < n; i++ {
		start, err := p.r.Pos()
		if err != nil {
			return p.fail(err, "tell")
		}
		if err := instance(); err != nil {
			return err
		}
		end, err := p.r.Pos()
		if err != nil {
			return p.fail(err, "tell")
		}
		if end == start {
			if err := p.idle(1); err != nil {
				return err
			}
		}
	}
	return nil
}

// idle charges n values produced without consuming input
func (p *Printer) idle(n int) error {
	p.idleCount += n
	if p.idleCount > maxIdle {
		return p.fail(parser.ErrSchemaInconsistent,
			"more than %d values without data behind them", maxIdle)
	}
	return nil
}

func (p *Printer) decodeField(f types.Field) error {
	s := p.file.Schema
	ct := p.combs[f.Name]
	typeIndex := int(f.Type)

	// Padding is consumed but never shown
	if p.opts.Heuristics.IsPadding(ct.ShortName) {
		n := p.fieldSize(typeIndex, ct)
		if err := p.r.Skip(int64(n)); err != nil {
			return p.fail(err, "skip %d padding bytes of %q", n, ct.ShortName)
		}
		return nil
	}

	return p.element(utils.XMLName(ct.ShortName), func() error {
		if err := p.sink.Attr("type", s.TypeNames[typeIndex]+ct.Suffix); err != nil {
			return err
		}
		return p.decode(typeIndex, ct)
	})
}

// fieldSize is the number of bytes a field occupies on disk
func (p *Printer) fieldSize(typeIndex int, ct types.CombType) int {
	s := p.file.Schema
	var one int
	switch {
	case ct.IsPointer:
		one = p.r.PointerSize()
	case s.StructFor(typeIndex) != types.NoStruct:
		one = s.StructSize(s.StructFor(typeIndex))
	default:
		one = int(s.TypeLengths[typeIndex])
	}
	return one * ct.Slots()
}

func (p *Printer) fail(cause error, detail string, args ...any) error {
	pos, _ := p.r.Pos()
	return parser.Fail(parser.PhaseData, pos, cause, detail, args...)
}
