package parser

import (
	"io"

	"blend-lens/pkg/types"
	"blend-lens/pkg/utils"

	"go.uber.org/zap"
)

// Parse reads the file header, enumerates the blocks and decodes the
// embedded schema. The returned File is immutable; block payloads are not
// read, only their offsets are recorded.
func Parse(r io.ReadSeeker) (*types.File, error) {
	br := utils.NewReader(r)
	if err := br.Seek(0); err != nil {
		return nil, Fail(PhaseHeader, 0, err, "seek to start")
	}

	header, err := ParseHeader(br)
	if err != nil {
		return nil, err
	}

	blocks, schema, err := scanBlocks(br)
	if err != nil {
		return nil, err
	}

	Logger().Info("schema loaded",
		zap.String("version", header.Version),
		zap.Int("pointer_size", header.PointerSize),
		zap.Int("blocks", len(blocks)),
		zap.Int("names", len(schema.Names)),
		zap.Int("types", len(schema.TypeNames)),
		zap.Int("structs", len(schema.Structs)),
	)

	return &types.File{Header: header, Blocks: blocks, Schema: schema}, nil
}

// ParseHeader reads the 12-byte header and switches r to the file's byte
// order and pointer width.
func ParseHeader(r *utils.Reader) (types.Header, error) {
	identifier, err := r.ReadFixedString(len(types.Magic))
	if err != nil {
		return types.Header{}, Fail(PhaseHeader, 0, err, "read identifier")
	}
	if identifier != types.Magic {
		// Compressed files start with a gzip or zstd signature instead.
		return types.Header{}, Fail(PhaseHeader, 0, ErrUnsupportedFormat,
			"identifier %q is not %q; compressed .blend files must be unpacked first", identifier, types.Magic)
	}

	ptrFlag, err := r.ReadU8()
	if err != nil {
		return types.Header{}, Fail(PhaseHeader, 7, err, "read pointer size")
	}
	endianness, err := r.ReadU8()
	if err != nil {
		return types.Header{}, Fail(PhaseHeader, 8, err, "read endianness")
	}
	version, err := r.ReadFixedString(3)
	if err != nil {
		return types.Header{}, Fail(PhaseHeader, 9, err, "read version")
	}

	header := types.Header{
		Identifier:  identifier,
		PointerSize: 8,
		Endianness:  endianness,
		Version:     version,
	}
	if ptrFlag == '_' {
		header.PointerSize = 4
	}
	r.SetFormat(header.ByteOrder(), header.PointerSize)
	return header, nil
}

// ReadBlockHeader reads one block header and records the payload offset
func ReadBlockHeader(r *utils.Reader) (types.Block, error) {
	var b types.Block
	var err error
	if b.Code, err = r.ReadFixedString(4); err != nil {
		return b, err
	}
	if b.Size, err = r.ReadU32(); err != nil {
		return b, err
	}
	if b.OldAddress, err = r.ReadAddress(); err != nil {
		return b, err
	}
	if b.SDNAIndex, err = r.ReadU32(); err != nil {
		return b, err
	}
	if b.Count, err = r.ReadU32(); err != nil {
		return b, err
	}
	b.Offset, err = r.Pos()
	return b, err
}

// scanBlocks walks the block list up to and including the schema block.
// The schema block is always the last one scanned.
func scanBlocks(r *utils.Reader) ([]types.Block, *types.Schema, error) {
	var blocks []types.Block
	for {
		start, err := r.Pos()
		if err != nil {
			return nil, nil, Fail(PhaseBlocks, 0, err, "tell")
		}

		// Running out of input on a block boundary means the schema never came
		if _, err := r.ReadU8(); err != nil {
			return nil, nil, Fail(PhaseBlocks, start, ErrMissingSchema, "after %d blocks", len(blocks))
		}
		if err := r.Seek(start); err != nil {
			return nil, nil, Fail(PhaseBlocks, start, err, "seek")
		}

		b, err := ReadBlockHeader(r)
		if err != nil {
			return nil, nil, Fail(PhaseBlocks, start, err, "read block header")
		}

		if b.Code == types.SchemaCode {
			schema, err := ParseSDNA(r)
			if err != nil {
				return nil, nil, err
			}
			return blocks, schema, nil
		}

		if err := r.Skip(int64(b.Size)); err != nil {
			return nil, nil, Fail(PhaseBlocks, b.Offset, err, "skip %s payload of %d bytes", b.Code, b.Size)
		}
		Logger().Debug("block",
			zap.String("code", b.Code),
			zap.Uint32("size", b.Size),
			zap.Uint32("sdna", b.SDNAIndex),
			zap.Uint32("count", b.Count),
			zap.Int64("offset", b.Offset),
		)
		blocks = append(blocks, b)
	}
}
