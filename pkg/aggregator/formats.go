package aggregator

import "go-aggr/pkg/format"

// Format tags of every persisted shape in this package. Stored plans and
// partial states outlive the binary that wrote them, so a tag is never
// reused: changing a layout means adding a tag, and keeping the old one
// readable or letting the store invalidate what was written under it.
const (
	// [tag][isMax bool][present bool][value encoding, to the end]
	FormatExtremum format.ID = 0x0A01

	// [tag][count uint64][sums]
	FormatVarPop  format.ID = 0x0A11
	FormatVarSamp format.ID = 0x0A12

	// [tag][sum float64][sum of squares float64]
	FormatVarianceSums format.ID = 0x0A13

	// [tag][name][input column][output column][distinct bool]
	FormatInfoV1 format.ID = 0x0A21

	// [tag][name][input column][output column][flags uint8]
	// [input type bytes][result type bytes] (types only when flagHasTypes)
	FormatInfoV2 format.ID = 0x0A22

	// [tag][count int32][count info encodings]
	FormatInfoList format.ID = 0x0A31
)
