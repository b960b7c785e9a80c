package gateway

import (
	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
	"meshledger.dev/node/mesh"
	"meshledger.dev/node/vault"
)

// Extractor produces settlement batches for one node's vault. It reads two
// sources: the vault's own append-only history (transactions this node has
// already applied) and the gossiped mesh state's sender/recipient indexes
// (IOUs this node is party to that the mesh has seen but the vault has not
// yet applied, e.g. an announcement still in flight). Only the interface
// for extracting settleable batches is in scope here; submitting a batch to
// an external rail is left to the embedder.
type Extractor struct {
	v     *vault.Vault
	state *mesh.MeshState
	owner identity.DID
}

// NewExtractor builds an Extractor for v's owner, cross-referencing state.
func NewExtractor(v *vault.Vault, state *mesh.MeshState) (*Extractor, error) {
	if v == nil {
		return nil, gatewayErr(ErrNilVault, "vault is nil")
	}
	if state == nil {
		return nil, gatewayErr(ErrNilMeshState, "mesh state is nil")
	}
	return &Extractor{v: v, state: state, owner: identity.FromPublicKey(v.Owner())}, nil
}

// ExtractBatch walks the vault history and the mesh indexes and produces a
// deterministic, idempotent net-position batch. Calling it twice with
// unchanged inputs yields an identical Batch (modulo ExtractedAtMs).
func (e *Extractor) ExtractBatch(nowMs uint64) Batch {
	net := make(map[string]*NetPosition)
	seen := make(map[iou.ID]struct{})

	get := func(cp identity.DID) *NetPosition {
		key := cp.String()
		p, ok := net[key]
		if !ok {
			p = &NetPosition{Counterparty: cp}
			net[key] = p
		}
		return p
	}

	for _, rec := range e.v.History() {
		seen[rec.IOUID] = struct{}{}
		p := get(rec.Counterparty)
		if rec.Direction == vault.DirectionReceived {
			p.NetAmount += int64(rec.Amount)
		} else {
			p.NetAmount -= int64(rec.Amount)
		}
		p.Entries++
	}

	for _, id := range e.state.BySender(e.owner) {
		if _, ok := seen[id]; ok {
			continue
		}
		entry, ok := e.state.Entry(id)
		if !ok {
			continue
		}
		seen[id] = struct{}{}
		p := get(entry.Signed.IOU.Recipient)
		p.NetAmount -= int64(entry.Signed.IOU.Amount)
		p.Entries++
	}
	for _, id := range e.state.ByRecipient(e.owner) {
		if _, ok := seen[id]; ok {
			continue
		}
		entry, ok := e.state.Entry(id)
		if !ok {
			continue
		}
		seen[id] = struct{}{}
		p := get(entry.Signed.IOU.Sender)
		p.NetAmount += int64(entry.Signed.IOU.Amount)
		p.Entries++
	}

	positions := make([]NetPosition, 0, len(net))
	for _, p := range net {
		positions = append(positions, *p)
	}
	sortPositions(positions)

	return Batch{ExtractedAtMs: nowMs, Owner: e.owner, Positions: positions}
}
