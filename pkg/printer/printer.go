package printer

import (
	"encoding/hex"
	"io"
	"strconv"

	"blend-lens/pkg/analyzer"
	"blend-lens/pkg/parser"
	"blend-lens/pkg/types"
	"blend-lens/pkg/utils"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"go.uber.org/zap"
)

// Options selects what goes into the document
type Options struct {
	// TypeCatalog emits the types and structures tables before the data
	TypeCatalog bool
	// Data emits the decoded data blocks
	Data bool
	// RawPointers prints stored addresses instead of a placeholder
	RawPointers bool
	// BlockDigest adds a SHA-256 of each block payload
	BlockDigest bool
	Heuristics  *analyzer.Heuristics
}

// DefaultOptions prints the catalog and the data with redacted pointers
func DefaultOptions() Options {
	return Options{
		TypeCatalog: true,
		Data:        true,
		Heuristics:  analyzer.DefaultHeuristics(),
	}
}

// Printer renders a parsed file. It reads block payloads back from the
// source the file was parsed from.
type Printer struct {
	file  *types.File
	r     *utils.Reader
	opts  Options
	sink  Sink
	combs []types.CombType
	depth int
	// idleCount is charged by idle
	idleCount int
}

// New creates a printer for file, reading payloads from src
func New(file *types.File, src io.ReadSeeker, opts Options) *Printer {
	if opts.Heuristics == nil {
		opts.Heuristics = analyzer.DefaultHeuristics()
	}
	r := utils.NewReader(src)
	r.SetFormat(file.Header.ByteOrder(), file.Header.PointerSize)

	// Field names are parsed once, indexed like the name table
	combs := make([]types.CombType, len(file.Schema.Names))
	for i, name := range file.Schema.Names {
		combs[i] = types.ParseCombType(name)
	}
	return &Printer{file: file, r: r, opts: opts, combs: combs}
}

// Convert parses src and prints it into sink. The sink is not closed.
func Convert(src io.ReadSeeker, sink Sink, opts Options) error {
	file, err := parser.Parse(src)
	if err != nil {
		return err
	}
	return New(file, src, opts).Print(sink)
}

// Print writes the whole document
func (p *Printer) Print(sink Sink) error {
	p.sink = sink
	p.idleCount = 0
	defer func() { p.sink = nil }()

	if err := sink.StartElement("blend"); err != nil {
		return err
	}
	if err := p.printHeader(); err != nil {
		return err
	}
	if p.opts.TypeCatalog {
		if err := p.printCatalog(); err != nil {
			return err
		}
	}
	if p.opts.Data {
		for i, b := range p.file.Blocks {
			if err := p.printBlock(b); err != nil {
				return err
			}
			Logger().Debug("block printed", zap.Int("index", i), zap.String("code", b.Code))
		}
	}
	return sink.EndElement()
}

func (p *Printer) printHeader() error {
	h := p.file.Header
	return p.element("header", func() error {
		return p.attrs(
			"identifier", h.Identifier,
			"pointer-size", strconv.Itoa(h.PointerSize),
			"endianness", string([]byte{h.Endianness}),
			"version-number", h.Version,
		)
	})
}

func (p *Printer) printCatalog() error {
	s := p.file.Schema
	err := p.element("types", func() error {
		for i, name := range s.TypeNames {
			err := p.element("type", func() error {
				return p.attrs("name", name, "length", strconv.Itoa(int(s.TypeLengths[i])))
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return p.element("structures", func() error {
		for i, st := range s.Structs {
			err := p.element("structure", func() error {
				if err := p.attrs("type", s.TypeNames[st.Type], "size", strconv.Itoa(s.StructSize(i))); err != nil {
					return err
				}
				for _, f := range st.Fields {
					err := p.element("field", func() error {
						return p.attrs("type", s.TypeNames[f.Type], "name", s.Names[f.Name])
					})
					if err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Printer) printBlock(b types.Block) error {
	s := p.file.Schema
	if int(b.SDNAIndex) >= len(s.Structs) {
		return parser.Fail(parser.PhaseData, b.Offset, parser.ErrSchemaInconsistent,
			"block %s refers to structure %d of %d", b.Code, b.SDNAIndex, len(s.Structs))
	}
	for _, w := range analyzer.BlockWarnings(b, s) {
		Logger().Warn("block warning",
			zap.String("code", w.Code),
			zap.String("block", b.Code),
			zap.Int64("offset", b.Offset),
			zap.String("detail", w.Message),
		)
	}

	var digest string
	if p.opts.BlockDigest {
		payload, err := p.readAt(b.Offset, int(b.Size))
		if err != nil {
			return err
		}
		digest = hex.EncodeToString(chainhash.HashB(payload))
	}

	if err := p.r.Seek(b.Offset); err != nil {
		return parser.Fail(parser.PhaseData, b.Offset, err, "seek to block %s", b.Code)
	}

	structType := int(s.Structs[b.SDNAIndex].Type)
	return p.element(utils.XMLName(b.Code), func() error {
		if err := p.sink.Attr("sdna", s.TypeNames[structType]); err != nil {
			return err
		}
		if p.opts.RawPointers {
			if err := p.sink.Attr("old-memory-address", strconv.FormatUint(b.OldAddress, 16)); err != nil {
				return err
			}
		}
		if digest != "" {
			if err := p.sink.Attr("digest", digest); err != nil {
				return err
			}
		}
		instance := func() error { return p.decode(structType, types.Scalar) }
		if b.Count == 1 {
			return instance()
		}
		return p.repeat(uint64(b.Count), func() error {
			return p.element("elem", instance)
		})
	})
}

func (p *Printer) readAt(offset int64, n int) ([]byte, error) {
	if err := p.r.Seek(offset); err != nil {
		return nil, parser.Fail(parser.PhaseData, offset, err, "seek")
	}
	buf, err := p.r.ReadBytes(n)
	if err != nil {
		return nil, parser.Fail(parser.PhaseData, offset, err, "read %d bytes", n)
	}
	return buf, nil
}

// element wraps body in a start/end pair
func (p *Printer) element(name string, body func() error) error {
	if err := p.sink.StartElement(name); err != nil {
		return err
	}
	if err := body(); err != nil {
		return err
	}
	return p.sink.EndElement()
}

// attrs sets key/value pairs on the current element
func (p *Printer) attrs(kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := p.sink.Attr(kv[i], kv[i+1]); err != nil {
			return err
		}
	}
	return nil
}
