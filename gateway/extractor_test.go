package gateway

import (
	"testing"

	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
	"meshledger.dev/node/mesh"
	"meshledger.dev/node/vault"
)

func mustKeypair(t *testing.T) *identity.Keypair {
	t.Helper()
	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("identity.Generate: %v", err)
	}
	return kp
}

func buildIOU(t *testing.T, sender *identity.Keypair, recipient identity.DID, amount, nonce, ts uint64) iou.SignedIOU {
	t.Helper()
	signed, err := iou.NewBuilder().Sender(sender).Recipient(recipient).Amount(amount).Nonce(nonce).Timestamp(ts).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return signed
}

func TestExtractBatchNetsVaultHistory(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())
	aliceDID := identity.FromPublicKey(alice.PublicKey())

	bobVault := vault.New(bob.PublicKey())
	signed := buildIOU(t, alice, bobDID, 100, 1, 1700000000)
	if err := bobVault.ReceiveIOU(signed, alice.PublicKey()); err != nil {
		t.Fatalf("ReceiveIOU: %v", err)
	}

	state := mesh.New(identity.NodeID{})
	ex, err := NewExtractor(bobVault, state)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	batch := ex.ExtractBatch(1700000001000)
	if len(batch.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(batch.Positions))
	}
	pos := batch.Positions[0]
	if !pos.Counterparty.Equal(aliceDID) {
		t.Fatalf("expected counterparty alice, got %s", pos.Counterparty)
	}
	if pos.NetAmount != 100 {
		t.Fatalf("expected net amount 100, got %d", pos.NetAmount)
	}
	if batch.TotalNet() != 100 {
		t.Fatalf("expected total net 100, got %d", batch.TotalNet())
	}
}

func TestExtractBatchIncludesPendingMeshEntries(t *testing.T) {
	bob := mustKeypair(t)
	carol := mustKeypair(t)
	carolDID := identity.FromPublicKey(carol.PublicKey())

	bobVault := vault.New(bob.PublicKey())

	// bob owes carol 40, but it only exists as a gossiped announcement, not
	// yet applied to bob's local vault history.
	pending := buildIOU(t, bob, carolDID, 40, 1, 1700000000)
	state := mesh.New(identity.NodeID{})
	if err := state.AddIOU(pending, bob.PublicKey()); err != nil {
		t.Fatalf("AddIOU: %v", err)
	}

	ex, err := NewExtractor(bobVault, state)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	batch := ex.ExtractBatch(1700000001000)
	if len(batch.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(batch.Positions))
	}
	if batch.Positions[0].NetAmount != -40 {
		t.Fatalf("expected bob owes carol 40, got %d", batch.Positions[0].NetAmount)
	}
	if !batch.Positions[0].Counterparty.Equal(carolDID) {
		t.Fatalf("expected counterparty carol, got %s", batch.Positions[0].Counterparty)
	}
}

func TestExtractBatchDoesNotDoubleCountAppliedEntries(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())

	bobVault := vault.New(bob.PublicKey())
	signed := buildIOU(t, alice, bobDID, 100, 1, 1700000000)
	if err := bobVault.ReceiveIOU(signed, alice.PublicKey()); err != nil {
		t.Fatalf("ReceiveIOU: %v", err)
	}

	state := mesh.New(identity.NodeID{})
	if err := state.AddIOU(signed, alice.PublicKey()); err != nil {
		t.Fatalf("AddIOU: %v", err)
	}

	ex, err := NewExtractor(bobVault, state)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	batch := ex.ExtractBatch(0)
	if len(batch.Positions) != 1 || batch.Positions[0].NetAmount != 100 {
		t.Fatalf("expected a single netted position of 100, got %+v", batch.Positions)
	}
}

func TestNewExtractorRejectsNil(t *testing.T) {
	state := mesh.New(identity.NodeID{})
	if _, err := NewExtractor(nil, state); err == nil {
		t.Fatal("expected error for nil vault")
	}
	bobVault := vault.New(mustKeypair(t).PublicKey())
	if _, err := NewExtractor(bobVault, nil); err == nil {
		t.Fatal("expected error for nil mesh state")
	}
}
