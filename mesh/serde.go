package mesh

import (
	"encoding/json"

	"meshledger.dev/node/identity"
)

// snapshot is the JSON-serializable form persisted at the storage key
// "ledger:mesh_state". Only {node_id, ious, version} are persisted; the
// secondary indexes are derived and rebuilt on load.
type snapshot struct {
	NodeID  identity.NodeID `json:"node_id"`
	IOUs    []IOUEntry      `json:"ious"`
	Version uint64          `json:"version"`
}

// ToBytes serializes node_id, the G-Set contents, and version. Field order
// in the snapshot struct is fixed; the order of entries within ious follows
// map iteration and is not fixed between calls.
func (m *MeshState) ToBytes() ([]byte, error) {
	s := snapshot{
		NodeID:  m.nodeID,
		IOUs:    m.ious.all(),
		Version: m.version,
	}
	return json.Marshal(s)
}

// FromBytes rebuilds a MeshState from the format produced by ToBytes,
// recomputing the secondary indexes from the restored G-Set.
func FromBytes(b []byte) (*MeshState, error) {
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, meshErrWrap(ErrDeserializationFailed, "decode mesh state snapshot", err)
	}
	m := New(s.NodeID)
	for _, entry := range s.IOUs {
		m.ious.insert(entry)
	}
	m.version = s.Version
	m.rebuildIndexes()
	return m, nil
}
