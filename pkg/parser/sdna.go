package parser

import (
	"blend-lens/pkg/types"
	"blend-lens/pkg/utils"
)

// ParseSDNA decodes the payload of the DNA1 block. r must be positioned at
// the start of the payload.
//
// Layout:
//
//	"SDNA"
//	"NAME" u32 count, count NUL-terminated names
//	"TYPE" u32 count, count NUL-terminated type names
//	"TLEN" u16 length per type
//	"STRC" u32 count, per structure: u16 type, u16 field count,
//	       field count × (u16 type, u16 name)
//
// Every tag may be preceded by zero padding up to a 4-byte boundary.
func ParseSDNA(r *utils.Reader) (*types.Schema, error) {
	s := &types.Schema{}

	if err := readAlignedIdent(r, "SDNA"); err != nil {
		return nil, err
	}

	// Names
	if err := readAlignedIdent(r, "NAME"); err != nil {
		return nil, err
	}
	names, err := readStringTable(r, "name")
	if err != nil {
		return nil, err
	}
	s.Names = names

	// Type names
	if err := readAlignedIdent(r, "TYPE"); err != nil {
		return nil, err
	}
	typeNames, err := readStringTable(r, "type")
	if err != nil {
		return nil, err
	}
	s.TypeNames = typeNames

	// Type lengths, one per type
	if err := readAlignedIdent(r, "TLEN"); err != nil {
		return nil, err
	}
	s.TypeLengths = make([]uint16, len(typeNames))
	s.TypeStructs = make([]int, len(typeNames))
	for i := range typeNames {
		pos, _ := r.Pos()
		if s.TypeLengths[i], err = r.ReadU16(); err != nil {
			return nil, Fail(PhaseSchema, pos, err, "read length of type %d", i)
		}
		s.TypeStructs[i] = types.NoStruct
	}

	// Structures
	if err := readAlignedIdent(r, "STRC"); err != nil {
		return nil, err
	}
	pos, _ := r.Pos()
	count, err := r.ReadU32()
	if err != nil {
		return nil, Fail(PhaseSchema, pos, err, "read structure count")
	}
	s.Structs = make([]types.Structure, 0, int(min(count, 1<<16)))
	for i := uint32(0); i < count; i++ {
		st, err := readStructure(r, s, int(i))
		if err != nil {
			return nil, err
		}
		s.Structs = append(s.Structs, st)
	}
	return s, nil
}

func readStructure(r *utils.Reader, s *types.Schema, index int) (types.Structure, error) {
	pos, _ := r.Pos()
	typ, err := r.ReadU16()
	if err != nil {
		return types.Structure{}, Fail(PhaseSchema, pos, err, "read type of structure %d", index)
	}
	if int(typ) >= len(s.TypeNames) {
		return types.Structure{}, Fail(PhaseSchema, pos, ErrSchemaInconsistent,
			"structure %d refers to type %d of %d", index, typ, len(s.TypeNames))
	}
	if prev := s.TypeStructs[typ]; prev != types.NoStruct {
		return types.Structure{}, Fail(PhaseSchema, pos, ErrSchemaInconsistent,
			"type %q claimed by structures %d and %d", s.TypeNames[typ], prev, index)
	}
	s.TypeStructs[typ] = index

	nfields, err := r.ReadU16()
	if err != nil {
		return types.Structure{}, Fail(PhaseSchema, pos, err, "read field count of %q", s.TypeNames[typ])
	}

	st := types.Structure{Type: typ, Fields: make([]types.Field, 0, nfields)}
	for j := 0; j < int(nfields); j++ {
		fpos, _ := r.Pos()
		var f types.Field
		if f.Type, err = r.ReadU16(); err != nil {
			return types.Structure{}, Fail(PhaseSchema, fpos, err, "read field %d of %q", j, s.TypeNames[typ])
		}
		if f.Name, err = r.ReadU16(); err != nil {
			return types.Structure{}, Fail(PhaseSchema, fpos, err, "read field %d of %q", j, s.TypeNames[typ])
		}
		if int(f.Type) >= len(s.TypeNames) || int(f.Name) >= len(s.Names) {
			return types.Structure{}, Fail(PhaseSchema, fpos, ErrSchemaInconsistent,
				"field %d of %q out of range (type %d, name %d)", j, s.TypeNames[typ], f.Type, f.Name)
		}
		if types.ParseCombType(s.Names[f.Name]).Oversized() {
			return types.Structure{}, Fail(PhaseSchema, fpos, ErrSchemaInconsistent,
				"field %q of %q has more than %d elements", s.Names[f.Name], s.TypeNames[typ], types.MaxSlots)
		}
		st.Fields = append(st.Fields, f)
	}
	return st, nil
}

func readStringTable(r *utils.Reader, what string) ([]string, error) {
	pos, _ := r.Pos()
	count, err := r.ReadU32()
	if err != nil {
		return nil, Fail(PhaseSchema, pos, err, "read %s count", what)
	}
	table := make([]string, 0, int(min(count, 1<<16)))
	for i := uint32(0); i < count; i++ {
		s, err := r.ReadCString()
		if err != nil {
			return nil, Fail(PhaseSchema, pos, err, "read %s %d of %d", what, i, count)
		}
		table = append(table, s)
	}
	return table, nil
}

// readAlignedIdent scans at most four bytes for the first nonzero byte; it
// and the three bytes after it must spell ident.
func readAlignedIdent(r *utils.Reader, ident string) error {
	pos, _ := r.Pos()
	for i := 0; i < 4; i++ {
		c, err := r.ReadU8()
		if err != nil {
			return Fail(PhaseSchema, pos, err, "look for %q", ident)
		}
		if c == 0 {
			continue
		}
		rest, err := r.ReadBytes(3)
		if err != nil {
			return Fail(PhaseSchema, pos, err, "look for %q", ident)
		}
		if got := string(append([]byte{c}, rest...)); got != ident {
			return Fail(PhaseSchema, pos, ErrSchemaInconsistent, "expected %q, found %q", ident, got)
		}
		return nil
	}
	return Fail(PhaseSchema, pos, ErrSchemaInconsistent, "%q not found within 4 bytes", ident)
}
