package conflict

import (
	"encoding/json"

	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
	"meshledger.dev/node/vault"
)

// claimSnapshot is the JSON-serializable form of a single SpendingClaim.
type claimSnapshot struct {
	UTXOID        vault.UTXOID      `json:"utxo_id"`
	SpendingIOUID string            `json:"spending_iou_id"`
	Spender       identity.DID      `json:"spender"`
	TimestampMs   uint64            `json:"timestamp_ms"`
	Witnesses     []identity.NodeID `json:"witnesses"`
}

type snapshot struct {
	Claims        []claimSnapshot `json:"claims"`
	ConflictCount int             `json:"conflict_count"`
}

// ToBytes serializes every recorded claim plus the current conflict count.
// The claims of one UTXO are written in insertion order; the order of the
// UTXOs follows map iteration and is not stable between calls.
func (d *Detector) ToBytes() ([]byte, error) {
	s := snapshot{ConflictCount: d.conflictCount}
	for _, entries := range d.claims {
		for _, e := range entries {
			witnesses := make([]identity.NodeID, 0, len(e.claim.Witnesses))
			for w := range e.claim.Witnesses {
				witnesses = append(witnesses, w)
			}
			s.Claims = append(s.Claims, claimSnapshot{
				UTXOID:        e.claim.UTXOID,
				SpendingIOUID: e.claim.SpendingIOUID.String(),
				Spender:       e.claim.Spender,
				TimestampMs:   e.claim.TimestampMs,
				Witnesses:     witnesses,
			})
		}
	}
	return json.Marshal(s)
}

// FromBytes rebuilds a Detector from the format produced by ToBytes.
func FromBytes(b []byte) (*Detector, error) {
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, conflictErrWrap(ErrDeserializationFailed, "decode conflict detector snapshot", err)
	}
	d := New()
	for _, cs := range s.Claims {
		id, err := iou.IDFromHex(cs.SpendingIOUID)
		if err != nil {
			return nil, conflictErrWrap(ErrDeserializationFailed, "decode spending iou id", err)
		}
		witnesses := make(map[identity.NodeID]struct{}, len(cs.Witnesses))
		for _, w := range cs.Witnesses {
			witnesses[w] = struct{}{}
		}
		entry := claimEntry{
			claim: SpendingClaim{
				UTXOID:        cs.UTXOID,
				SpendingIOUID: id,
				Spender:       cs.Spender,
				TimestampMs:   cs.TimestampMs,
				Witnesses:     witnesses,
			},
			seq: d.nextSeq,
		}
		d.nextSeq++
		d.claims[cs.UTXOID] = append(d.claims[cs.UTXOID], entry)
	}
	d.conflictCount = s.ConflictCount
	return d, nil
}
