// Package blendtest builds small synthetic .blend files for tests.
package blendtest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Field is a structure member given by type name and raw field name
type Field struct {
	Type string
	Name string
}

// F is shorthand for Field{typ, name}
func F(typ, name string) Field {
	return Field{Type: typ, Name: name}
}

type structDef struct {
	typ    int
	fields [][2]int
}

type block struct {
	code    string
	sdna    int
	count   int
	payload []byte
}

// Builder assembles a file: header, data blocks, DNA1 and ENDB
type Builder struct {
	PointerSize int
	BigEndian   bool
	Magic       string
	Version     string
	// OmitSchema leaves out the DNA1 block
	OmitSchema bool

	names   []string
	types   []string
	lengths []uint16
	structs []structDef
	blocks  []block
}

// New returns a builder with the given pointer width (4 or 8)
func New(pointerSize int, bigEndian bool) *Builder {
	return &Builder{
		PointerSize: pointerSize,
		BigEndian:   bigEndian,
		Magic:       "BLENDER",
		Version:     "300",
	}
}

// Order returns the byte order of the file being built
func (b *Builder) Order() binary.ByteOrder {
	if b.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Type adds a type (or returns the existing index) with its byte length
func (b *Builder) Type(name string, length uint16) int {
	for i, t := range b.types {
		if t == name {
			return i
		}
	}
	b.types = append(b.types, name)
	b.lengths = append(b.lengths, length)
	return len(b.types) - 1
}

// Name adds a field name (or returns the existing index)
func (b *Builder) Name(name string) int {
	for i, n := range b.names {
		if n == name {
			return i
		}
	}
	b.names = append(b.names, name)
	return len(b.names) - 1
}

// Primitives adds the usual SDNA primitives with their lengths
func (b *Builder) Primitives() {
	b.Type("char", 1)
	b.Type("uchar", 1)
	b.Type("short", 2)
	b.Type("ushort", 2)
	b.Type("int", 4)
	b.Type("float", 4)
	b.Type("double", 8)
	b.Type("int64_t", 8)
	b.Type("uint64_t", 8)
	b.Type("void", 0)
}

// Struct declares a structure of the given size and returns its index.
// Field types must have been added with Type or Struct before.
func (b *Builder) Struct(name string, size uint16, fields ...Field) int {
	def := structDef{typ: b.Type(name, size)}
	b.lengths[def.typ] = size
	for _, f := range fields {
		def.fields = append(def.fields, [2]int{b.Type(f.Type, 0), b.Name(f.Name)})
	}
	b.structs = append(b.structs, def)
	return len(b.structs) - 1
}

// ClaimType adds a structure for an already claimed type, producing an
// inconsistent schema
func (b *Builder) ClaimType(name string) {
	b.structs = append(b.structs, structDef{typ: b.Type(name, 0)})
}

// Block appends a data block referring to structure sdna
func (b *Builder) Block(code string, sdna, count int, payload []byte) {
	b.blocks = append(b.blocks, block{code: code, sdna: sdna, count: count, payload: payload})
}

// Payload returns a writer for block contents in the file's format
func (b *Builder) Payload() *Payload {
	var order binary.AppendByteOrder = binary.LittleEndian
	if b.BigEndian {
		order = binary.BigEndian
	}
	return &Payload{order: order, ptrSize: b.PointerSize}
}

// Bytes renders the file
func (b *Builder) Bytes() []byte {
	var out bytes.Buffer
	out.WriteString(b.Magic)
	if b.PointerSize == 4 {
		out.WriteByte('_')
	} else {
		out.WriteByte('-')
	}
	if b.BigEndian {
		out.WriteByte('V')
	} else {
		out.WriteByte('v')
	}
	out.WriteString(b.Version)

	for i, blk := range b.blocks {
		b.writeBlockHeader(&out, blk.code, len(blk.payload), uint64(0x1000+i*0x100), blk.sdna, blk.count)
		out.Write(blk.payload)
	}
	if !b.OmitSchema {
		sdna := b.SDNA()
		b.writeBlockHeader(&out, "DNA1", len(sdna), 0, 0, 1)
		out.Write(sdna)
		b.writeBlockHeader(&out, "ENDB", 0, 0, 0, 0)
	}
	return out.Bytes()
}

// SDNA renders the schema payload
func (b *Builder) SDNA() []byte {
	p := b.Payload()
	p.Raw([]byte("SDNA"))

	p.Raw([]byte("NAME"))
	p.U32(uint32(len(b.names)))
	for _, n := range b.names {
		p.Raw(append([]byte(n), 0))
	}
	p.Align()

	p.Raw([]byte("TYPE"))
	p.U32(uint32(len(b.types)))
	for _, t := range b.types {
		p.Raw(append([]byte(t), 0))
	}
	p.Align()

	p.Raw([]byte("TLEN"))
	for _, l := range b.lengths {
		p.U16(l)
	}
	p.Align()

	p.Raw([]byte("STRC"))
	p.U32(uint32(len(b.structs)))
	for _, s := range b.structs {
		p.U16(uint16(s.typ))
		p.U16(uint16(len(s.fields)))
		for _, f := range s.fields {
			p.U16(uint16(f[0]))
			p.U16(uint16(f[1]))
		}
	}
	return p.Bytes()
}

func (b *Builder) writeBlockHeader(out *bytes.Buffer, code string, size int, addr uint64, sdna, count int) {
	p := b.Payload()
	var tag [4]byte
	copy(tag[:], code)
	p.Raw(tag[:])
	p.U32(uint32(size))
	p.Ptr(addr)
	p.U32(uint32(sdna))
	p.U32(uint32(count))
	out.Write(p.Bytes())
}

// Payload writes values in a file's byte order and pointer width
type Payload struct {
	order   binary.AppendByteOrder
	ptrSize int
	buf     []byte
}

// Raw appends bytes as they are
func (p *Payload) Raw(b []byte) *Payload {
	p.buf = append(p.buf, b...)
	return p
}

// Text appends s zero-padded to n bytes
func (p *Payload) Text(s string, n int) *Payload {
	field := make([]byte, n)
	copy(field, s)
	return p.Raw(field)
}

// U8 appends a byte
func (p *Payload) U8(v uint8) *Payload {
	p.buf = append(p.buf, v)
	return p
}

// U16 appends a 16-bit value
func (p *Payload) U16(v uint16) *Payload {
	p.buf = p.order.AppendUint16(p.buf, v)
	return p
}

// U32 appends a 32-bit value
func (p *Payload) U32(v uint32) *Payload {
	p.buf = p.order.AppendUint32(p.buf, v)
	return p
}

// I32 appends a signed 32-bit value
func (p *Payload) I32(v int32) *Payload {
	return p.U32(uint32(v))
}

// U64 appends a 64-bit value
func (p *Payload) U64(v uint64) *Payload {
	p.buf = p.order.AppendUint64(p.buf, v)
	return p
}

// F32 appends a float
func (p *Payload) F32(v float32) *Payload {
	return p.U32(math.Float32bits(v))
}

// F64 appends a double
func (p *Payload) F64(v float64) *Payload {
	return p.U64(math.Float64bits(v))
}

// Ptr appends a pointer-width address
func (p *Payload) Ptr(v uint64) *Payload {
	if p.ptrSize == 4 {
		return p.U32(uint32(v))
	}
	return p.U64(v)
}

// Align pads with zeros to a multiple of four
func (p *Payload) Align() *Payload {
	for len(p.buf)%4 != 0 {
		p.buf = append(p.buf, 0)
	}
	return p
}

// Bytes returns the written data
func (p *Payload) Bytes() []byte {
	return p.buf
}
