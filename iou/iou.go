// Package iou implements the canonical signed payment record: its immutable
// fields, replay-safe canonical signing bytes, builder, validator, and wire
// codec.
package iou

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"meshledger.dev/node/identity"
)

// ID is the SHA-256 digest of an IOU's canonical signing bytes.
type ID [32]byte

func (id ID) Bytes() []byte {
	out := make([]byte, 32)
	copy(out, id[:])
	return out
}

func (id ID) String() string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 0, 64)
	for _, b := range id {
		out = append(out, hextable[b>>4], hextable[b&0x0f])
	}
	return string(out)
}

// IDFromHex parses a 64-character lowercase hex string produced by
// ID.String().
func IDFromHex(s string) (ID, error) {
	var id ID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("iou: invalid id hex: %w", err)
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("iou: id must be 32 bytes, got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MarshalJSON encodes an ID as its hex string form.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON decodes an ID from its hex string form.
func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := IDFromHex(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IOU is the immutable payment record "sender pays recipient amount".
type IOU struct {
	Sender        identity.DID
	Recipient     identity.DID
	Amount        uint64
	Nonce         uint64
	TimestampSecs uint64
}

// SigningBytes produces the canonical, length-prefixed, little-endian byte
// sequence that is signed and hashed. This format is part of the external
// interface: it must be reproduced bit-exactly by any implementation.
//
//	u32 LE len(sender_str)    || sender_str bytes
//	u32 LE len(recipient_str) || recipient_str bytes
//	u64 LE amount
//	u64 LE nonce
//	u64 LE timestamp_secs
func (i IOU) SigningBytes() []byte {
	senderStr := i.Sender.String()
	recipientStr := i.Recipient.String()

	out := make([]byte, 0, 8+len(senderStr)+len(recipientStr)+24)
	out = appendU32le(out, uint32(len(senderStr)))
	out = append(out, senderStr...)
	out = appendU32le(out, uint32(len(recipientStr)))
	out = append(out, recipientStr...)
	out = appendU64le(out, i.Amount)
	out = appendU64le(out, i.Nonce)
	out = appendU64le(out, i.TimestampSecs)
	return out
}

// ID returns SHA256(SigningBytes()).
func (i IOU) ID() ID {
	sum := sha256.Sum256(i.SigningBytes())
	return ID(sum)
}

func appendU32le(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func appendU64le(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// SignedIOU pairs an IOU with the sender's signature over its canonical
// signing bytes.
type SignedIOU struct {
	IOU       IOU
	Signature identity.Signature
}

// ID is a convenience alias for SignedIOU.IOU.ID().
func (s SignedIOU) ID() ID {
	return s.IOU.ID()
}

// Equal compares field equality of the IOU and the raw signature bytes.
func (s SignedIOU) Equal(other SignedIOU) bool {
	return s.IOU == other.IOU && s.Signature == other.Signature
}
