// Package protocol defines the wire-level message variants exchanged
// between mesh nodes and the scheme for deriving a stable, content-addressed
// message id used for gossip dedup.
package protocol

import (
	"crypto/sha256"
	"encoding/binary"

	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
	"meshledger.dev/node/mesh"
)

// Variant tags the concrete message type carried by Message.
type Variant string

const (
	VariantSyncRequest      Variant = "sync_request"
	VariantSyncResponse     Variant = "sync_response"
	VariantIOUAnnouncement  Variant = "iou_announcement"
	VariantPeerAnnouncement Variant = "peer_announcement"
	VariantHeartbeat        Variant = "heartbeat"
)

// Message is the tagged union of everything a node can send a peer.
type Message interface {
	Variant() Variant
	// ID returns the message's deterministic, content-addressed identity,
	// used by the gossip engine's seen-message dedup table.
	ID() [32]byte
}

// SyncRequest asks a peer to report entries beyond known_version.
type SyncRequest struct {
	Sender       identity.NodeID
	KnownVersion uint64
}

func (m SyncRequest) Variant() Variant { return VariantSyncRequest }

func (m SyncRequest) ID() [32]byte {
	h := sha256.New()
	h.Write([]byte("msg:"))
	h.Write([]byte(VariantSyncRequest))
	h.Write(m.Sender.Bytes())
	h.Write(u64le(m.KnownVersion))
	return sum(h)
}

// SyncResponse answers a SyncRequest with the responder's full (or
// sufficiently complete) entry set as of current_version.
type SyncResponse struct {
	Sender         identity.NodeID
	CurrentVersion uint64
	Entries        []mesh.IOUEntry
}

func (m SyncResponse) Variant() Variant { return VariantSyncResponse }

func (m SyncResponse) ID() [32]byte {
	h := sha256.New()
	h.Write([]byte("msg:"))
	h.Write([]byte(VariantSyncResponse))
	h.Write(m.Sender.Bytes())
	h.Write(u64le(m.CurrentVersion))
	return sum(h)
}

// IOUAnnouncement propagates a single signed IOU across the mesh, hop by
// hop, up to MaxHops.
type IOUAnnouncement struct {
	Signed       iou.SignedIOU
	SenderPubkey identity.PublicKey
	Hops         uint8
	MaxHops      uint8
}

func (m IOUAnnouncement) Variant() Variant { return VariantIOUAnnouncement }

// ID is SHA256("iou_ann:" || iou_id), deliberately independent of Hops so
// re-hopped copies of the same announcement dedup against the underlying
// IOU rather than against a fresh hop count each time.
func (m IOUAnnouncement) ID() [32]byte {
	h := sha256.New()
	h.Write([]byte("iou_ann:"))
	id := m.Signed.ID()
	h.Write(id.Bytes())
	return sum(h)
}

// IncrementHop bumps Hops by one and returns the updated announcement.
func (m IOUAnnouncement) IncrementHop() IOUAnnouncement {
	m.Hops++
	return m
}

// ShouldStopPropagation reports whether this announcement has reached its
// hop ceiling and must not be forwarded again.
func (m IOUAnnouncement) ShouldStopPropagation() bool {
	return m.Hops >= m.MaxHops
}

// PeerAnnouncement advertises a node's reachable address.
type PeerAnnouncement struct {
	NodeID      identity.NodeID
	Address     string
	TimestampMs uint64
}

func (m PeerAnnouncement) Variant() Variant { return VariantPeerAnnouncement }

func (m PeerAnnouncement) ID() [32]byte {
	h := sha256.New()
	h.Write([]byte("msg:"))
	h.Write([]byte(VariantPeerAnnouncement))
	h.Write(m.NodeID.Bytes())
	h.Write(u64le(m.TimestampMs))
	return sum(h)
}

// Heartbeat advertises a node's liveness and current mesh version.
type Heartbeat struct {
	Sender      identity.NodeID
	Version     uint64
	TimestampMs uint64
}

func (m Heartbeat) Variant() Variant { return VariantHeartbeat }

func (m Heartbeat) ID() [32]byte {
	h := sha256.New()
	h.Write([]byte("msg:"))
	h.Write([]byte(VariantHeartbeat))
	h.Write(m.Sender.Bytes())
	h.Write(u64le(m.Version))
	h.Write(u64le(m.TimestampMs))
	return sum(h)
}

func u64le(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}

func sum(h interface{ Sum([]byte) []byte }) [32]byte {
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
