package mesh

import (
	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
)

// IOUEntry wraps a signed IOU with mesh-local metadata. Equality and hashing
// for G-Set purposes are on the IOU id alone: two entries for the same IOU
// id are the same element regardless of when each node first saw it.
type IOUEntry struct {
	Signed       iou.SignedIOU
	SenderPubkey identity.PublicKey
	ReceivedAtMs uint64
}

// ID returns the element identity used by the G-Set: the underlying IOU id.
func (e IOUEntry) ID() iou.ID { return e.Signed.ID() }

// gSet is a grow-only set of IOUEntry keyed by IOU id. Insert is idempotent;
// merge is the set union and is commutative, associative, and idempotent by
// construction.
type gSet struct {
	entries map[iou.ID]IOUEntry
}

func newGSet() *gSet {
	return &gSet{entries: make(map[iou.ID]IOUEntry)}
}

// contains reports whether id is already a member.
func (s *gSet) contains(id iou.ID) bool {
	_, ok := s.entries[id]
	return ok
}

// insert adds entry if its id is not already present. Returns true if this
// call changed the set (mirrors CRDT "new element" semantics).
func (s *gSet) insert(entry IOUEntry) bool {
	if s.contains(entry.ID()) {
		return false
	}
	s.entries[entry.ID()] = entry
	return true
}

// merge unions other into s in place, returning the entries that were new
// to s. Repeating merge with the same other is a no-op (idempotent); the
// operation is commutative and associative because set union is.
func (s *gSet) merge(other *gSet) []IOUEntry {
	var added []IOUEntry
	for id, entry := range other.entries {
		if _, ok := s.entries[id]; !ok {
			s.entries[id] = entry
			added = append(added, entry)
		}
	}
	return added
}

// delta returns entries in s whose id is absent from other.
func (s *gSet) delta(other *gSet) []IOUEntry {
	var out []IOUEntry
	for id, entry := range s.entries {
		if _, ok := other.entries[id]; !ok {
			out = append(out, entry)
		}
	}
	return out
}

func (s *gSet) all() []IOUEntry {
	out := make([]IOUEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	return out
}

func (s *gSet) len() int { return len(s.entries) }
