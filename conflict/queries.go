package conflict

import (
	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
	"meshledger.dev/node/vault"
)

// HasConflict reports whether utxo currently has more than one distinct
// claim outstanding.
func (d *Detector) HasConflict(utxo vault.UTXOID) bool {
	return len(d.claims[utxo]) > 1
}

// GetConflictsForUTXO returns the claims for utxo, but only when there is
// more than one: a single outstanding claim is not a conflict.
func (d *Detector) GetConflictsForUTXO(utxo vault.UTXOID) []SpendingClaim {
	entries := d.claims[utxo]
	if len(entries) <= 1 {
		return nil
	}
	return d.Claims(utxo)
}

// ConflictingUTXOs returns every UTXO id that currently has more than one
// distinct claim outstanding.
func (d *Detector) ConflictingUTXOs() []vault.UTXOID {
	var out []vault.UTXOID
	for id, entries := range d.claims {
		if len(entries) > 1 {
			out = append(out, id)
		}
	}
	return out
}

// AddWitnessToClaim records witness against the claim identified by
// (utxo, iouID). Reports whether a matching claim was found.
func (d *Detector) AddWitnessToClaim(utxo vault.UTXOID, iouID iou.ID, witness identity.NodeID) bool {
	entries := d.claims[utxo]
	for i, e := range entries {
		if e.claim.SpendingIOUID == iouID {
			entries[i].claim = e.claim.withWitness(witness)
			d.claims[utxo] = entries
			return true
		}
	}
	return false
}
