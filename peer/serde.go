package peer

import (
	"encoding/json"

	"meshledger.dev/node/identity"
)

// snapshot is the JSON-serializable form of a Registry: the peer list plus
// the registry's own node id, which FromBytes uses to rebuild the registry
// so that AddPeer still rejects that id.
type snapshot struct {
	MyNodeID identity.NodeID `json:"my_node_id"`
	Peers    []Info          `json:"peers"`
}

// ToBytes serializes the registry's peer list and its own node id.
func (r *Registry) ToBytes() ([]byte, error) {
	s := snapshot{MyNodeID: r.myNodeID, Peers: r.Peers()}
	return json.Marshal(s)
}

// FromBytes rebuilds a Registry from the format produced by ToBytes.
func FromBytes(b []byte) (*Registry, error) {
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, peerErrWrap(ErrDeserializationFailed, "decode peer registry snapshot", err)
	}
	r := New(s.MyNodeID)
	for _, info := range s.Peers {
		r.peers[info.NodeID] = info
	}
	return r, nil
}
