// Package peer tracks the mesh's known peer set: reachable addresses,
// liveness, observed mesh version, and round-trip latency.
package peer

import (
	cryptorand "crypto/rand"
	"math/big"
	"time"

	"meshledger.dev/node/identity"
)

// State is a peer's last-observed liveness state.
type State uint8

const (
	StateUnknown State = iota
	StateAlive
	StateStale
)

func (s State) String() string {
	switch s {
	case StateAlive:
		return "alive"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

const maxRTTSamples = 10

// Info describes one known peer.
type Info struct {
	NodeID         identity.NodeID
	Address        string
	State          State
	KnownVersion   uint64
	LastSeenMs     uint64
	RTTSamplesMs   []uint64
	FailedAttempts int
}

// AverageRTTMs returns the arithmetic mean of the retained RTT samples, or 0
// if none have been recorded.
func (i Info) AverageRTTMs() float64 {
	if len(i.RTTSamplesMs) == 0 {
		return 0
	}
	var sum uint64
	for _, s := range i.RTTSamplesMs {
		sum += s
	}
	return float64(sum) / float64(len(i.RTTSamplesMs))
}

// Registry is the set of peers known to this node.
type Registry struct {
	myNodeID identity.NodeID
	peers    map[identity.NodeID]Info
	now      func() time.Time
}

// New creates an empty registry for myNodeID. Attempts to add myNodeID
// itself are rejected by AddPeer.
func New(myNodeID identity.NodeID) *Registry {
	return &Registry{
		myNodeID: myNodeID,
		peers:    make(map[identity.NodeID]Info),
		now:      time.Now,
	}
}

// WithClock overrides the wall clock used for last-seen timestamps;
// intended for deterministic tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func (r *Registry) nowMs() uint64 { return uint64(r.now().UnixMilli()) }

// AddPeer inserts a new peer or, if nodeID is already known, overwrites its
// address and touches last_seen. Rejects adding the registry's own node id.
func (r *Registry) AddPeer(nodeID identity.NodeID, address string) error {
	if nodeID == r.myNodeID {
		return peerErr(ErrCannotAddSelf, "cannot add own node id as a peer")
	}
	existing, ok := r.peers[nodeID]
	if !ok {
		r.peers[nodeID] = Info{
			NodeID:     nodeID,
			Address:    address,
			State:      StateAlive,
			LastSeenMs: r.nowMs(),
		}
		return nil
	}
	existing.Address = address
	existing.State = StateAlive
	existing.LastSeenMs = r.nowMs()
	r.peers[nodeID] = existing
	return nil
}

// RemovePeer drops nodeID from the registry, if present.
func (r *Registry) RemovePeer(nodeID identity.NodeID) {
	delete(r.peers, nodeID)
}

// Get returns the registered Info for nodeID.
func (r *Registry) Get(nodeID identity.NodeID) (Info, bool) {
	info, ok := r.peers[nodeID]
	return info, ok
}

// Peers returns a snapshot of every known peer.
func (r *Registry) Peers() []Info {
	out := make([]Info, 0, len(r.peers))
	for _, info := range r.peers {
		out = append(out, info)
	}
	return out
}

// Len reports the number of known peers.
func (r *Registry) Len() int { return len(r.peers) }

// RemoveStalePeers drops every peer whose last_seen is older than
// timeoutSecs relative to the registry's clock. Returns the count removed.
func (r *Registry) RemoveStalePeers(timeoutSecs uint64) int {
	cutoff := r.nowMs() - timeoutSecs*1000
	n := 0
	for id, info := range r.peers {
		if info.LastSeenMs < cutoff {
			delete(r.peers, id)
			n++
		}
	}
	return n
}

// SelectRandomPeers uniformly samples up to k distinct peers via a
// Fisher-Yates shuffle drawn from the process CSPRNG, mirroring the
// teacher pack's shufflePeerInfo pattern (orbas1-Synnergy's
// core/peer_management.go).
func (r *Registry) SelectRandomPeers(k int) ([]Info, error) {
	all := r.Peers()
	if k > len(all) {
		k = len(all)
	}
	for i := len(all) - 1; i > 0; i-- {
		jBig, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, peerErrWrap(ErrDeserializationFailed, "shuffle peers", err)
		}
		j := int(jBig.Int64())
		all[i], all[j] = all[j], all[i]
	}
	return all[:k], nil
}

// PeersBehindVersion returns every peer whose KnownVersion is strictly less
// than v.
func (r *Registry) PeersBehindVersion(v uint64) []Info {
	var out []Info
	for _, info := range r.peers {
		if info.KnownVersion < v {
			out = append(out, info)
		}
	}
	return out
}

// RecordRTT appends a sample to nodeID's sliding RTT window, keeping only
// the most recent maxRTTSamples entries.
func (r *Registry) RecordRTT(nodeID identity.NodeID, ms uint64) error {
	info, ok := r.peers[nodeID]
	if !ok {
		return peerErr(ErrPeerNotFound, "peer not found")
	}
	info.RTTSamplesMs = append(info.RTTSamplesMs, ms)
	if len(info.RTTSamplesMs) > maxRTTSamples {
		info.RTTSamplesMs = info.RTTSamplesMs[len(info.RTTSamplesMs)-maxRTTSamples:]
	}
	r.peers[nodeID] = info
	return nil
}

// UpdateKnownVersion records the latest version a peer is known to have
// reported, observed from a Heartbeat or SyncResponse.
func (r *Registry) UpdateKnownVersion(nodeID identity.NodeID, version uint64) error {
	info, ok := r.peers[nodeID]
	if !ok {
		return peerErr(ErrPeerNotFound, "peer not found")
	}
	info.KnownVersion = version
	r.peers[nodeID] = info
	return nil
}
