package gateway

import (
	"sort"

	"meshledger.dev/node/identity"
)

// NetPosition is the net settleable amount owed between this node's owner
// and one counterparty. A positive NetAmount means the counterparty owes
// the owner; negative means the owner owes the counterparty.
type NetPosition struct {
	Counterparty identity.DID `json:"counterparty"`
	NetAmount    int64        `json:"net_amount"`
	Entries      int          `json:"entries"`
}

// Batch is a deterministic snapshot of settleable net positions, ready to
// be handed to an external settlement rail. Extraction never mutates the
// vault or mesh state it reads from.
type Batch struct {
	ExtractedAtMs uint64        `json:"extracted_at_ms"`
	Owner         identity.DID  `json:"owner"`
	Positions     []NetPosition `json:"positions"`
}

// TotalNet sums every position's NetAmount. Zero for a fully netted batch.
func (b Batch) TotalNet() int64 {
	var total int64
	for _, p := range b.Positions {
		total += p.NetAmount
	}
	return total
}

// sortPositions orders positions by counterparty DID string so repeated
// extraction over identical inputs yields byte-identical batches.
func sortPositions(positions []NetPosition) {
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Counterparty.String() < positions[j].Counterparty.String()
	})
}
