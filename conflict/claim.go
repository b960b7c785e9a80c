package conflict

import (
	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
	"meshledger.dev/node/vault"
)

// SpendingClaim binds a UTXO to the IOU that claims to spend it, plus the
// witnesses (peer NodeIds) that have reported seeing the claim.
type SpendingClaim struct {
	UTXOID        vault.UTXOID
	SpendingIOUID iou.ID
	Spender       identity.DID
	TimestampMs   uint64
	Witnesses     map[identity.NodeID]struct{}
}

// WitnessCount reports the number of distinct witnesses recorded.
func (c SpendingClaim) WitnessCount() int { return len(c.Witnesses) }

// withWitness returns a copy of c with witness added to its witness set.
func (c SpendingClaim) withWitness(witness identity.NodeID) SpendingClaim {
	merged := make(map[identity.NodeID]struct{}, len(c.Witnesses)+1)
	for w := range c.Witnesses {
		merged[w] = struct{}{}
	}
	merged[witness] = struct{}{}
	c.Witnesses = merged
	return c
}

// unionWitnesses returns a copy of c with every witness from other folded in.
func (c SpendingClaim) unionWitnesses(other SpendingClaim) SpendingClaim {
	merged := make(map[identity.NodeID]struct{}, len(c.Witnesses)+len(other.Witnesses))
	for w := range c.Witnesses {
		merged[w] = struct{}{}
	}
	for w := range other.Witnesses {
		merged[w] = struct{}{}
	}
	c.Witnesses = merged
	return c
}
