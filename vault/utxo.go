// Package vault implements the per-node UTXO ledger: received and change
// outputs, spend selection, reservations, and expiring locks, layered over
// replay-suppressed IOU processing.
package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
)

// Kind distinguishes a UTXO created by receiving an IOU from one created as
// change when spending one.
type Kind uint8

const (
	KindReceived Kind = iota
	KindChange
)

func (k Kind) String() string {
	if k == KindChange {
		return "change"
	}
	return "received"
}

// UTXOID identifies a UTXO: SHA256(domain_tag || source_iou_id). Separate
// domain tags for Received vs Change prevent collisions between the
// received-UTXO and the change-UTXO produced when that same IOU is later
// spent.
type UTXOID [32]byte

const (
	domainTagReceived = "utxo:received:"
	domainTagChange   = "utxo:change:"
)

func computeUTXOID(kind Kind, sourceIOU iou.ID) UTXOID {
	tag := domainTagReceived
	if kind == KindChange {
		tag = domainTagChange
	}
	h := sha256.New()
	h.Write([]byte(tag))
	h.Write(sourceIOU.Bytes())
	var id UTXOID
	copy(id[:], h.Sum(nil))
	return id
}

func (id UTXOID) Bytes() []byte {
	out := make([]byte, 32)
	copy(out, id[:])
	return out
}

func (id UTXOID) String() string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 0, 64)
	for _, b := range id {
		out = append(out, hextable[b>>4], hextable[b&0x0f])
	}
	return string(out)
}

func utxoIDFromHex(s string) (UTXOID, error) {
	var id UTXOID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("vault: invalid utxo id hex: %w", err)
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("vault: utxo id must be 32 bytes, got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func iouIDFromHex(s string) (iou.ID, error) {
	return iou.IDFromHex(s)
}

// MarshalJSON encodes a UTXOID as its hex string form.
func (id UTXOID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON decodes a UTXOID from its hex string form.
func (id *UTXOID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := utxoIDFromHex(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// UTXO is an indivisible unit of a vault's owned balance.
type UTXO struct {
	ID           UTXOID
	Owner        identity.PublicKey
	Amount       uint64
	SourceIOUID  iou.ID
	Kind         Kind
	Locked       bool
}

func newUTXO(owner identity.PublicKey, amount uint64, source iou.ID, kind Kind) UTXO {
	return UTXO{
		ID:          computeUTXOID(kind, source),
		Owner:       owner,
		Amount:      amount,
		SourceIOUID: source,
		Kind:        kind,
	}
}

// SpentOutput records a UTXO's consumption by a spending IOU.
type SpentOutput struct {
	UTXOID        UTXOID
	SpendingIOUID iou.ID
	SpentAtSecs   uint64
}

// TransactionDirection tags a history entry as inbound or outbound.
type TransactionDirection uint8

const (
	DirectionReceived TransactionDirection = iota
	DirectionSent
)

func (d TransactionDirection) String() string {
	if d == DirectionSent {
		return "sent"
	}
	return "received"
}

// TransactionRecord is an append-only history entry.
type TransactionRecord struct {
	Direction   TransactionDirection
	IOUID       iou.ID
	Counterparty identity.DID
	Amount      uint64
	AtSecs      uint64
}

// LockInfo records an opportunistic expiry for a locked UTXO.
type LockInfo struct {
	ExpiresAtMs uint64
	Reason      string
}

// Reservation reduces available balance without removing a UTXO.
type Reservation struct {
	ID     uint64
	Amount uint64
}
