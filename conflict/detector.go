package conflict

import (
	"meshledger.dev/node/iou"
	"meshledger.dev/node/vault"
)

// claimEntry wraps a SpendingClaim with its insertion sequence, used to
// break FirstSeen ties deterministically when two claims share a
// timestamp.
type claimEntry struct {
	claim SpendingClaim
	seq   uint64
}

// Detector tracks spending claims per UTXO and counts conflicts: the count
// rises by one for every distinct claim added to a UTXO that already had a
// claim, and falls by one for each ClearConflict that leaves at most one.
type Detector struct {
	claims        map[vault.UTXOID][]claimEntry
	conflictCount int
	nextSeq       uint64
}

// New creates an empty conflict detector.
func New() *Detector {
	return &Detector{claims: make(map[vault.UTXOID][]claimEntry)}
}

// ConflictCount returns the conflict counter. A UTXO with n distinct claims
// contributes n-1 to it, so it equals the number of conflicting UTXOs only
// while no UTXO has more than two claims.
func (d *Detector) ConflictCount() int { return d.conflictCount }

// Claims returns a snapshot of the claims recorded for utxo, in insertion
// order.
func (d *Detector) Claims(utxo vault.UTXOID) []SpendingClaim {
	entries := d.claims[utxo]
	out := make([]SpendingClaim, len(entries))
	for i, e := range entries {
		out[i] = e.claim
	}
	return out
}

// RegisterClaim records claim against its UTXO.
//
//   - If no claim exists yet for this UTXO: insert, return nil.
//   - If an existing claim has the same SpendingIOUID: idempotent no-op,
//     except witnesses from claim are unioned in.
//   - Otherwise: both claims are retained, ConflictCount is bumped, and a
//     *DoubleSpendError is returned naming the first and second claims.
func (d *Detector) RegisterClaim(claim SpendingClaim) error {
	existing := d.claims[claim.UTXOID]
	for i, e := range existing {
		if e.claim.SpendingIOUID == claim.SpendingIOUID {
			existing[i].claim = e.claim.unionWitnesses(claim)
			d.claims[claim.UTXOID] = existing
			return nil
		}
	}

	entry := claimEntry{claim: claim, seq: d.nextSeq}
	d.nextSeq++

	if len(existing) == 0 {
		d.claims[claim.UTXOID] = []claimEntry{entry}
		return nil
	}

	d.claims[claim.UTXOID] = append(existing, entry)
	d.conflictCount++
	return &DoubleSpendError{
		UTXOID:      claim.UTXOID,
		Type:        SameUTXODifferentRecipient,
		FirstClaim:  existing[0].claim,
		SecondClaim: claim,
	}
}

// ResolutionStrategy selects among conflicting claims for the same UTXO.
type ResolutionStrategy int

const (
	// FirstSeen picks the claim with the minimum TimestampMs, breaking ties
	// by insertion order.
	FirstSeen ResolutionStrategy = iota
	// MostWitnesses picks the claim with the highest witness count.
	MostWitnesses
)

// ResolveConflict applies strategy to the claims recorded for utxo. Returns
// false if there are no claims for that UTXO.
func (d *Detector) ResolveConflict(utxo vault.UTXOID, strategy ResolutionStrategy) (SpendingClaim, bool) {
	entries := d.claims[utxo]
	if len(entries) == 0 {
		return SpendingClaim{}, false
	}

	best := entries[0]
	for _, e := range entries[1:] {
		switch strategy {
		case MostWitnesses:
			if e.claim.WitnessCount() > best.claim.WitnessCount() {
				best = e
			}
		default: // FirstSeen
			if e.claim.TimestampMs < best.claim.TimestampMs ||
				(e.claim.TimestampMs == best.claim.TimestampMs && e.seq < best.seq) {
				best = e
			}
		}
	}
	return best.claim, true
}

// MergeResult reports the outcome of merging another detector's claims in.
type MergeResult struct {
	NewClaims         int
	ConflictsDetected int
}

// Merge folds other's claims into d. For each (utxo, claim) pair in other:
// an identical (utxo, spending_iou_id) claim has its witnesses unioned in
// place; otherwise, if any other claim already exists for that UTXO,
// ConflictCount is bumped and the claim is inserted as a new, distinct
// claim for that UTXO.
func (d *Detector) Merge(other *Detector) MergeResult {
	var result MergeResult
	for utxo, entries := range other.claims {
		for _, incoming := range entries {
			existing := d.claims[utxo]
			merged := false
			for i, e := range existing {
				if e.claim.SpendingIOUID == incoming.claim.SpendingIOUID {
					existing[i].claim = e.claim.unionWitnesses(incoming.claim)
					d.claims[utxo] = existing
					merged = true
					break
				}
			}
			if merged {
				continue
			}

			entry := claimEntry{claim: incoming.claim, seq: d.nextSeq}
			d.nextSeq++
			if len(existing) > 0 {
				d.conflictCount++
				result.ConflictsDetected++
			}
			d.claims[utxo] = append(existing, entry)
			result.NewClaims++
		}
	}
	return result
}

// ClearConflict retains only the claims for utxo whose SpendingIOUID equals
// winningIOU. If at most one claim remains, ConflictCount is decremented
// (saturating at 0).
func (d *Detector) ClearConflict(utxo vault.UTXOID, winningIOU iou.ID) {
	entries := d.claims[utxo]
	kept := make([]claimEntry, 0, len(entries))
	for _, e := range entries {
		if e.claim.SpendingIOUID == winningIOU {
			kept = append(kept, e)
		}
	}
	d.claims[utxo] = kept
	if len(kept) <= 1 && d.conflictCount > 0 {
		d.conflictCount--
	}
}
