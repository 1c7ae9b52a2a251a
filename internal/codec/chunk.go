package codec

import (
	"github.com/synnergy-labs/slpindexer/internal/errs"
	"github.com/synnergy-labs/slpindexer/internal/model"
)

// headerOverhead is the constant cost of the "_slpN://" prefix, used to
// compute how much varia budget is left for metadata before a smartbridge
// must be split (spec.md §4.1). The fixed section's hex doubling is applied
// separately in ChunkBudget.
const headerOverhead = len("_slp2://")

// ChunkBudget returns the maximum number of raw metadata bytes (before
// length-prefix framing) that fit in one smartbridge alongside a fixed
// section of fixedWidth bytes and a one-byte chunk counter, per spec.md
// §4.1's "≤ 256 − header − 2·(fixed+chunk_byte)" rule.
func ChunkBudget(fixedWidth int) int {
	budget := MaxWireLength - headerOverhead - 2*(fixedWidth+1)
	if budget < 0 {
		return 0
	}
	return budget
}

// ChunkMetadata splits pairs across as many independent metadata chunks as
// needed so each chunk's packed form fits within budget raw bytes. A single
// pair larger than budget is not split: it is placed alone in its own
// chunk, which then exceeds budget. Chunks are returned in order; the caller assigns them increasing `ch` starting
// at 1 and links them only by tokenId (spec.md §4.1).
func ChunkMetadata(pairs []model.MetaPair, budget int) ([][]model.MetaPair, error) {
	if budget <= 0 {
		return nil, errs.New(errs.InvalidSmartbridge, "no metadata budget remains for this fixed width")
	}
	var chunks [][]model.MetaPair
	var current []model.MetaPair
	currentLen := 0
	for _, p := range pairs {
		pairLen := 2 + len(p.Key) + len(p.Value) // two length-prefix bytes
		if currentLen+pairLen > budget && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
			currentLen = 0
		}
		current = append(current, p)
		currentLen += pairLen
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	if len(chunks) == 0 {
		chunks = [][]model.MetaPair{{}}
	}
	return chunks, nil
}
