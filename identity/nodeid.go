package identity

import (
	"crypto/sha256"
	cryptorand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// NodeIDSize is the width of a mesh node identifier.
const NodeIDSize = 32

// NodeID is a 32-byte node identifier. Spec.md §6 permits either a random
// value or SHA256("nodeid:" || pubkey32); both must be accepted.
type NodeID [NodeIDSize]byte

// RandomNodeID draws a fresh NodeID from the CSPRNG.
func RandomNodeID() (NodeID, error) {
	var id NodeID
	if _, err := cryptorand.Read(id[:]); err != nil {
		return NodeID{}, fmt.Errorf("identity: random node id: %w", err)
	}
	return id, nil
}

// NodeIDFromPublicKey derives a deterministic NodeID as
// SHA256("nodeid:" || pubkey32).
func NodeIDFromPublicKey(pub PublicKey) NodeID {
	h := sha256.New()
	h.Write([]byte("nodeid:"))
	h.Write(pub.Bytes())
	var id NodeID
	copy(id[:], h.Sum(nil))
	return id
}

// NodeIDFromBytes wraps an arbitrary 32-byte value; spec.md §6 requires
// implementations accept any 32-byte NodeID, not only derived ones.
func NodeIDFromBytes(b []byte) (NodeID, error) {
	var id NodeID
	if len(b) != NodeIDSize {
		return id, fmt.Errorf("identity: node id must be %d bytes, got %d", NodeIDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (n NodeID) Bytes() []byte {
	out := make([]byte, NodeIDSize)
	copy(out, n[:])
	return out
}

func (n NodeID) String() string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 0, NodeIDSize*2)
	for _, b := range n {
		out = append(out, hextable[b>>4], hextable[b&0x0f])
	}
	return string(out)
}

// MarshalJSON encodes a NodeID as a lowercase hex string.
func (n NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON decodes a NodeID from a lowercase hex string.
func (n *NodeID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	id, err := NodeIDFromBytes(raw)
	if err != nil {
		return err
	}
	*n = id
	return nil
}

// Fingerprint is a non-normative SHA3-256 digest of label, ":" and a
// labeled secondary keypair's public key, kept separate from the normative
// SHA-256 ids used for IOUs and UTXOs. Nothing in this repository calls it;
// the storage package's "identity:keypair:<label>" key does not use it.
func Fingerprint(label string, pub PublicKey) [32]byte {
	h := sha3.New256()
	h.Write([]byte(label))
	h.Write([]byte(":"))
	h.Write(pub.Bytes())
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
