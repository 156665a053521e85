package analyzer

import (
	"fmt"

	"blend-lens/pkg/types"
)

// BlockWarnings checks a data block against the schema. None of these stop
// decoding; the printer logs them and carries on.
func BlockWarnings(b types.Block, schema *types.Schema) []types.Warning {
	warnings := make([]types.Warning, 0)

	// EMPTY_BLOCK: nothing to print
	if b.Count == 0 {
		warnings = append(warnings, types.Warning{Code: "EMPTY_BLOCK"})
	}

	// SIZE_MISMATCH: payload length differs from count * struct size
	if int(b.SDNAIndex) < len(schema.Structs) {
		want := uint64(b.Count) * uint64(schema.StructSize(int(b.SDNAIndex)))
		if want != uint64(b.Size) {
			warnings = append(warnings, types.Warning{
				Code: "SIZE_MISMATCH",
				Message: fmt.Sprintf("%s: %d * %s(%d) = %d bytes, block holds %d",
					b.Code, b.Count, schema.StructName(int(b.SDNAIndex)),
					schema.StructSize(int(b.SDNAIndex)), want, b.Size),
			})
		}
	}

	return warnings
}
