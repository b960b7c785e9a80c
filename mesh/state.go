package mesh

import (
	"time"

	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
)

// MergeResult reports the outcome of merging another mesh state in.
type MergeResult struct {
	NewEntries     int
	TotalAfterMerge int
}

// MeshState is a node's CRDT view of the IOUs it has observed: a grow-only
// set plus secondary indexes derived from it. Indexes are never persisted;
// they are rebuilt from the ious set on deserialize and after every merge.
type MeshState struct {
	nodeID identity.NodeID
	ious   *gSet
	version uint64

	iouIndex      map[iou.ID]IOUEntry
	senderIndex   map[identity.DID][]iou.ID
	recipientIndex map[identity.DID][]iou.ID

	validator *iou.Validator
	now       func() time.Time
}

// New creates an empty mesh state for nodeID.
func New(nodeID identity.NodeID) *MeshState {
	return &MeshState{
		nodeID:        nodeID,
		ious:          newGSet(),
		iouIndex:      make(map[iou.ID]IOUEntry),
		senderIndex:   make(map[identity.DID][]iou.ID),
		recipientIndex: make(map[identity.DID][]iou.ID),
		validator:     iou.NewValidator(),
		now:           time.Now,
	}
}

// WithClock overrides the wall clock used for received_at_ms timestamps;
// intended for deterministic tests.
func (m *MeshState) WithClock(now func() time.Time) *MeshState {
	m.now = now
	return m
}

// WithValidator overrides the IOU validator used by AddIOU.
func (m *MeshState) WithValidator(v *iou.Validator) *MeshState {
	m.validator = v
	return m
}

func (m *MeshState) NodeID() identity.NodeID { return m.nodeID }
func (m *MeshState) Version() uint64         { return m.version }

// Contains reports whether id has already been added to this state.
func (m *MeshState) Contains(id iou.ID) bool { return m.ious.contains(id) }

// AllEntries returns a snapshot of every IOUEntry currently held.
func (m *MeshState) AllEntries() []IOUEntry { return m.ious.all() }

// Len returns the number of distinct IOUs held.
func (m *MeshState) Len() int { return m.ious.len() }

// AddIOU validates and inserts signed into the G-Set, updates the derived
// indexes incrementally, and bumps version. Rejects DuplicateIOU if the id
// is already a member, or ValidationFailed (wrapping the IOUValidator
// error) if signed does not verify.
func (m *MeshState) AddIOU(signed iou.SignedIOU, senderPubkey identity.PublicKey) error {
	id := signed.ID()
	if m.ious.contains(id) {
		return meshErr(ErrDuplicateIOU, "iou already present in mesh state")
	}
	if err := m.validator.Validate(signed, senderPubkey); err != nil {
		return meshErrWrap(ErrValidationFailed, "iou failed validation", err)
	}

	entry := IOUEntry{
		Signed:       signed,
		SenderPubkey: senderPubkey,
		ReceivedAtMs: uint64(m.now().UnixMilli()),
	}
	m.ious.insert(entry)
	m.indexEntry(entry)
	m.version++
	return nil
}

func (m *MeshState) indexEntry(entry IOUEntry) {
	id := entry.ID()
	m.iouIndex[id] = entry
	sender := entry.Signed.IOU.Sender
	recipient := entry.Signed.IOU.Recipient
	m.senderIndex[sender] = append(m.senderIndex[sender], id)
	m.recipientIndex[recipient] = append(m.recipientIndex[recipient], id)
}

// rebuildIndexes discards and recomputes iouIndex/senderIndex/recipientIndex
// from the current G-Set contents. Used by Merge and FromBytes, where
// recomputing from scratch is simpler and safer than trying to patch the
// indexes incrementally.
func (m *MeshState) rebuildIndexes() {
	m.iouIndex = make(map[iou.ID]IOUEntry)
	m.senderIndex = make(map[identity.DID][]iou.ID)
	m.recipientIndex = make(map[identity.DID][]iou.ID)
	for _, entry := range m.ious.all() {
		m.indexEntry(entry)
	}
}

// Merge unions other's G-Set into this state. If any entries were new,
// indexes are rebuilt from scratch and version is bumped.
func (m *MeshState) Merge(other *MeshState) MergeResult {
	added := m.ious.merge(other.ious)
	if len(added) > 0 {
		m.rebuildIndexes()
		m.version++
	}
	return MergeResult{NewEntries: len(added), TotalAfterMerge: m.ious.len()}
}

// Delta returns the entries in this state whose id is not present in
// other's set. The gossip engine does not call it: its sync responses carry
// AllEntries.
func (m *MeshState) Delta(other *MeshState) []IOUEntry {
	return m.ious.delta(other.ious)
}

// BySender returns the ids of every IOU entry whose sender DID equals sender.
func (m *MeshState) BySender(sender identity.DID) []iou.ID {
	ids := m.senderIndex[sender]
	out := make([]iou.ID, len(ids))
	copy(out, ids)
	return out
}

// ByRecipient returns the ids of every IOU entry whose recipient DID equals
// recipient.
func (m *MeshState) ByRecipient(recipient identity.DID) []iou.ID {
	ids := m.recipientIndex[recipient]
	out := make([]iou.ID, len(ids))
	copy(out, ids)
	return out
}

// Entry looks up a single IOUEntry by id.
func (m *MeshState) Entry(id iou.ID) (IOUEntry, bool) {
	e, ok := m.iouIndex[id]
	return e, ok
}
