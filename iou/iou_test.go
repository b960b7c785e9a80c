package iou

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"meshledger.dev/node/identity"
)

func mustKeypair(t *testing.T) *identity.Keypair {
	t.Helper()
	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("identity.Generate: %v", err)
	}
	return kp
}

func TestSigningBytesLayout(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	record := IOU{
		Sender:        identity.FromPublicKey(alice.PublicKey()),
		Recipient:     identity.FromPublicKey(bob.PublicKey()),
		Amount:        100,
		Nonce:         1,
		TimestampSecs: 1700000000,
	}
	b := record.SigningBytes()

	off := 0
	senderLen := binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	senderStr := string(b[off : off+int(senderLen)])
	off += int(senderLen)
	if senderStr != record.Sender.String() {
		t.Fatalf("sender mismatch: %q vs %q", senderStr, record.Sender.String())
	}

	recipLen := binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	recipStr := string(b[off : off+int(recipLen)])
	off += int(recipLen)
	if recipStr != record.Recipient.String() {
		t.Fatalf("recipient mismatch: %q vs %q", recipStr, record.Recipient.String())
	}

	amount := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8
	nonce := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8
	ts := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8

	if amount != record.Amount || nonce != record.Nonce || ts != record.TimestampSecs {
		t.Fatalf("trailing fields mismatch: amount=%d nonce=%d ts=%d", amount, nonce, ts)
	}
	if off != len(b) {
		t.Fatalf("unexpected trailing bytes: off=%d len=%d", off, len(b))
	}
}

func TestIDIsSHA256OfSigningBytes(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	record := IOU{
		Sender:        identity.FromPublicKey(alice.PublicKey()),
		Recipient:     identity.FromPublicKey(bob.PublicKey()),
		Amount:        5,
		Nonce:         9,
		TimestampSecs: 1,
	}
	id1 := record.ID()
	id2 := record.ID()
	if id1 != id2 {
		t.Fatal("IOU.ID() is not stable across calls")
	}
	if id1 != ID(sha256.Sum256(record.SigningBytes())) {
		t.Fatal("IOU.ID() is not SHA256(SigningBytes())")
	}
}

func TestBuilderHappyPath(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())

	signed, err := NewBuilder().
		Sender(alice).
		Recipient(bobDID).
		Amount(100).
		Nonce(1).
		Timestamp(1700000000).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !identity.Verify(alice.PublicKey(), signed.IOU.SigningBytes(), signed.Signature) {
		t.Fatal("built IOU does not verify")
	}
}

func TestBuilderDefaultsNonceAndTimestamp(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())

	s1, err := NewBuilder().Sender(alice).Recipient(bobDID).Amount(1).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s2, err := NewBuilder().Sender(alice).Recipient(bobDID).Amount(1).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s1.IOU.Nonce == s2.IOU.Nonce {
		t.Fatal("expected distinct random nonces across builds")
	}
	if s1.IOU.TimestampSecs == 0 {
		t.Fatal("expected a non-zero default timestamp")
	}
}

func TestBuilderRejectsMissingFields(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())

	if _, err := NewBuilder().Recipient(bobDID).Amount(1).Build(); !isCode(err, ErrMissingSender) {
		t.Fatalf("expected ErrMissingSender, got %v", err)
	}
	if _, err := NewBuilder().Sender(alice).Amount(1).Build(); !isCode(err, ErrMissingRecipient) {
		t.Fatalf("expected ErrMissingRecipient, got %v", err)
	}
	if _, err := NewBuilder().Sender(alice).Recipient(bobDID).Build(); !isCode(err, ErrMissingAmount) {
		t.Fatalf("expected ErrMissingAmount, got %v", err)
	}
	if _, err := NewBuilder().Sender(alice).Recipient(bobDID).Amount(0).Build(); !isCode(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestBuilderRejectsSelfPayment(t *testing.T) {
	alice := mustKeypair(t)
	aliceDID := identity.FromPublicKey(alice.PublicKey())
	_, err := NewBuilder().Sender(alice).Recipient(aliceDID).Amount(1).Build()
	if !isCode(err, ErrSelfPayment) {
		t.Fatalf("expected ErrSelfPayment, got %v", err)
	}
}

func isCode(err error, code ErrorCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
