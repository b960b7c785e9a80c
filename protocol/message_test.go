package protocol

import (
	"testing"

	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
)

func mustKeypair(t *testing.T) *identity.Keypair {
	t.Helper()
	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("identity.Generate: %v", err)
	}
	return kp
}

func TestIOUAnnouncementIDIsStableAcrossHops(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())
	signed, err := iou.NewBuilder().Sender(alice).Recipient(bobDID).Amount(10).Nonce(1).Timestamp(1700000000).Build()
	if err != nil {
		t.Fatal(err)
	}

	ann := IOUAnnouncement{Signed: signed, SenderPubkey: alice.PublicKey(), Hops: 0, MaxHops: 6}
	id1 := ann.ID()
	hopped := ann.IncrementHop()
	id2 := hopped.ID()
	if id1 != id2 {
		t.Fatal("iou announcement id must not change across hops; dedup keys on the underlying iou id")
	}
}

func TestIOUAnnouncementLifecycle(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())
	signed, err := iou.NewBuilder().Sender(alice).Recipient(bobDID).Amount(10).Nonce(1).Timestamp(1700000000).Build()
	if err != nil {
		t.Fatal(err)
	}

	ann := IOUAnnouncement{Signed: signed, SenderPubkey: alice.PublicKey(), Hops: 5, MaxHops: 6}
	if ann.ShouldStopPropagation() {
		t.Fatal("5 hops of 6 max should not yet stop propagation")
	}
	ann = ann.IncrementHop()
	if ann.Hops != 6 {
		t.Fatalf("expected hops 6, got %d", ann.Hops)
	}
	if !ann.ShouldStopPropagation() {
		t.Fatal("6 hops of 6 max should stop propagation")
	}
}

func TestMessageIDsDifferPerVariantAndFields(t *testing.T) {
	sender, _ := identity.RandomNodeID()
	r1 := SyncRequest{Sender: sender, KnownVersion: 1}
	r2 := SyncRequest{Sender: sender, KnownVersion: 2}
	if r1.ID() == r2.ID() {
		t.Fatal("different known_version must produce different ids")
	}

	hb := Heartbeat{Sender: sender, Version: 1, TimestampMs: 100}
	sr := SyncRequest{Sender: sender, KnownVersion: 1}
	if hb.ID() == sr.ID() {
		t.Fatal("different variants must not collide even with overlapping field values")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sender, _ := identity.RandomNodeID()
	original := Heartbeat{Sender: sender, Version: 7, TimestampMs: 123456}

	encoded, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	hb, ok := decoded.(Heartbeat)
	if !ok {
		t.Fatalf("expected Heartbeat, got %T", decoded)
	}
	if hb.ID() != original.ID() {
		t.Fatal("round-tripped heartbeat must have the same id")
	}
}

func TestDecodeRejectsEmptyAndUnknownTag(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatal("expected error decoding empty input")
	}
	if _, err := Decode([]byte{0xff}); err == nil {
		t.Fatal("expected error decoding unknown tag")
	}
}

func TestEncodeDecodeIOUAnnouncementRoundTrip(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())
	signed, err := iou.NewBuilder().Sender(alice).Recipient(bobDID).Amount(25).Nonce(9).Timestamp(1700000001).Build()
	if err != nil {
		t.Fatal(err)
	}
	original := IOUAnnouncement{Signed: signed, SenderPubkey: alice.PublicKey(), Hops: 1, MaxHops: 6}

	encoded, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ann, ok := decoded.(IOUAnnouncement)
	if !ok {
		t.Fatalf("expected IOUAnnouncement, got %T", decoded)
	}
	if ann.Signed.ID() != original.Signed.ID() {
		t.Fatal("decoded announcement must carry the same underlying iou id")
	}
	if ann.Hops != original.Hops || ann.MaxHops != original.MaxHops {
		t.Fatalf("hop fields did not round trip: %+v vs %+v", ann, original)
	}
}
