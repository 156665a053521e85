package types

import "encoding/binary"

// Magic is the identifier every uncompressed .blend file starts with
const Magic = "BLENDER"

// SchemaCode is the block code of the embedded SDNA block
const SchemaCode = "DNA1"

// NoStruct marks a type-table entry that is a primitive, not a structure
const NoStruct = -1

// Header represents the fixed 12-byte file header
type Header struct {
	Identifier  string `json:"identifier"`
	PointerSize int    `json:"pointer_size"`
	Endianness  byte   `json:"endianness"`
	Version     string `json:"version"`
}

// ByteOrder returns the byte order selected by the endianness flag
func (h Header) ByteOrder() binary.ByteOrder {
	if h.Endianness == 'V' {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Block represents one length-prefixed file block. Offset is the stream
// position right after the block header.
type Block struct {
	Code       string `json:"code"`
	Size       uint32 `json:"size"`
	OldAddress uint64 `json:"old_address"`
	SDNAIndex  uint32 `json:"sdna_index"`
	Count      uint32 `json:"count"`
	Offset     int64  `json:"offset"`
}

// Field is one member of a structure, both indices point into the schema tables
type Field struct {
	Type uint16 `json:"type"`
	Name uint16 `json:"name"`
}

// Structure is a compound type as declared in the STRC section
type Structure struct {
	Type   uint16  `json:"type"`
	Fields []Field `json:"fields"`
}

// Schema holds the decoded SDNA tables. All slices are indexed by the
// on-disk indices and never change after loading.
type Schema struct {
	Names       []string    `json:"names"`
	TypeNames   []string    `json:"type_names"`
	TypeLengths []uint16    `json:"type_lengths"`
	TypeStructs []int       `json:"type_structs"`
	Structs     []Structure `json:"structs"`
}

// StructFor returns the structure index for a type, or NoStruct
func (s *Schema) StructFor(typeIndex int) int {
	if typeIndex < 0 || typeIndex >= len(s.TypeStructs) {
		return NoStruct
	}
	return s.TypeStructs[typeIndex]
}

// StructName returns the type name of a structure
func (s *Schema) StructName(structIndex int) string {
	return s.TypeNames[s.Structs[structIndex].Type]
}

// StructSize returns the declared byte size of a structure
func (s *Schema) StructSize(structIndex int) int {
	return int(s.TypeLengths[s.Structs[structIndex].Type])
}

// File is the result of the schema loading pass
type File struct {
	Header Header  `json:"header"`
	Blocks []Block `json:"blocks"`
	Schema *Schema `json:"schema"`
}

// Warning represents a non-fatal decode diagnostic
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ErrorInfo represents an error response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
