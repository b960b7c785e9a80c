package iou

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"time"

	"meshledger.dev/node/identity"
)

// Builder assembles a SignedIOU from a sender keypair and required/optional
// fields. Required: sender keypair, recipient DID, non-zero amount.
// Optional: nonce (default: 64-bit cryptographic random), timestamp
// (default: current Unix seconds).
type Builder struct {
	sender    *identity.Keypair
	recipient identity.DID
	hasRecipient bool
	amount    uint64
	hasAmount bool
	nonce     uint64
	hasNonce  bool
	timestamp uint64
	hasTimestamp bool
}

// NewBuilder starts a fresh, empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Sender(kp *identity.Keypair) *Builder {
	b.sender = kp
	return b
}

func (b *Builder) Recipient(did identity.DID) *Builder {
	b.recipient = did
	b.hasRecipient = true
	return b
}

func (b *Builder) Amount(amount uint64) *Builder {
	b.amount = amount
	b.hasAmount = true
	return b
}

func (b *Builder) Nonce(nonce uint64) *Builder {
	b.nonce = nonce
	b.hasNonce = true
	return b
}

func (b *Builder) Timestamp(secs uint64) *Builder {
	b.timestamp = secs
	b.hasTimestamp = true
	return b
}

// Build validates the accumulated fields, fills in defaults, and produces a
// SignedIOU signed by the sender keypair.
func (b *Builder) Build() (SignedIOU, error) {
	if b.sender == nil {
		return SignedIOU{}, iouErr(ErrMissingSender, "sender keypair is required")
	}
	if !b.hasRecipient {
		return SignedIOU{}, iouErr(ErrMissingRecipient, "recipient DID is required")
	}
	if !b.hasAmount {
		return SignedIOU{}, iouErr(ErrMissingAmount, "amount is required")
	}
	if b.amount == 0 {
		return SignedIOU{}, iouErr(ErrInvalidAmount, "amount must be non-zero")
	}

	senderDID := identity.FromPublicKey(b.sender.PublicKey())
	if senderDID.Equal(b.recipient) {
		return SignedIOU{}, iouErr(ErrSelfPayment, "sender and recipient must differ")
	}

	nonce := b.nonce
	if !b.hasNonce {
		var err error
		nonce, err = randomNonce()
		if err != nil {
			return SignedIOU{}, err
		}
	}

	timestamp := b.timestamp
	if !b.hasTimestamp {
		timestamp = uint64(time.Now().Unix())
	}

	record := IOU{
		Sender:        senderDID,
		Recipient:     b.recipient,
		Amount:        b.amount,
		Nonce:         nonce,
		TimestampSecs: timestamp,
	}
	sig := b.sender.Sign(record.SigningBytes())
	return SignedIOU{IOU: record, Signature: sig}, nil
}

func randomNonce() (uint64, error) {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return 0, iouErr(ErrRandSource, "failed to draw random nonce: "+err.Error())
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
