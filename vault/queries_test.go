package vault

import (
	"testing"

	"meshledger.dev/node/identity"
)

func TestCanAffordAndEstimateUTXOsNeeded(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())

	bobVault := New(bob.PublicKey())
	io1 := buildIOU(t, alice, bobDID, 30, 1, 1700000000)
	io2 := buildIOU(t, alice, bobDID, 50, 2, 1700000001)
	if err := bobVault.ReceiveIOU(io1, alice.PublicKey()); err != nil {
		t.Fatalf("ReceiveIOU io1: %v", err)
	}
	if err := bobVault.ReceiveIOU(io2, alice.PublicKey()); err != nil {
		t.Fatalf("ReceiveIOU io2: %v", err)
	}

	if !bobVault.CanAfford(80) {
		t.Fatal("expected vault to afford 80")
	}
	if bobVault.CanAfford(81) {
		t.Fatal("expected vault to not afford 81")
	}

	n, ok := bobVault.EstimateUTXOsNeeded(50)
	if !ok || n != 1 {
		t.Fatalf("expected exact-match single utxo, got n=%d ok=%v", n, ok)
	}
	n, ok = bobVault.EstimateUTXOsNeeded(60)
	if !ok || n != 2 {
		t.Fatalf("expected 2 utxos for 60, got n=%d ok=%v", n, ok)
	}
	if _, ok := bobVault.EstimateUTXOsNeeded(1000); ok {
		t.Fatal("expected false for an amount exceeding available balance")
	}
}

func TestUTXOSetSortedByAmount(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())

	bobVault := New(bob.PublicKey())
	for i, amt := range []uint64{50, 10, 30} {
		signed := buildIOU(t, alice, bobDID, amt, uint64(i), 1700000000+uint64(i))
		if err := bobVault.ReceiveIOU(signed, alice.PublicKey()); err != nil {
			t.Fatalf("ReceiveIOU %d: %v", i, err)
		}
	}
	sorted := bobVault.UTXOSetSortedByAmount()
	if len(sorted) != 3 {
		t.Fatalf("expected 3 utxos, got %d", len(sorted))
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Amount > sorted[i].Amount {
			t.Fatalf("utxos not sorted ascending: %+v", sorted)
		}
	}
}

func TestIsUTXOSpentAndWouldBeDoubleSpend(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	carol := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())
	carolDID := identity.FromPublicKey(carol.PublicKey())

	bobVault := New(bob.PublicKey())
	io1 := buildIOU(t, alice, bobDID, 100, 1, 1700000000)
	if err := bobVault.ReceiveIOU(io1, alice.PublicKey()); err != nil {
		t.Fatalf("ReceiveIOU: %v", err)
	}
	var theID UTXOID
	for id := range bobVault.utxos {
		theID = id
	}
	if bobVault.IsUTXOSpent(theID) || bobVault.WouldBeDoubleSpend(theID) {
		t.Fatal("fresh utxo must not be reported spent")
	}

	spend := buildIOU(t, bob, carolDID, 100, 2, 1700000001)
	if err := bobVault.RecordSentIOU(spend); err != nil {
		t.Fatalf("RecordSentIOU: %v", err)
	}
	if !bobVault.IsUTXOSpent(theID) {
		t.Fatal("expected utxo to be recorded spent")
	}
	if !bobVault.WouldBeDoubleSpend(theID) {
		t.Fatal("expected WouldBeDoubleSpend true for an already-spent utxo")
	}
	if _, ok := bobVault.GetSpentOutput(theID); !ok {
		t.Fatal("expected a spent output record")
	}
}

func TestLockInfoAndActiveLockCount(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())

	bobVault := New(bob.PublicKey())
	io1 := buildIOU(t, alice, bobDID, 100, 1, 1700000000)
	if err := bobVault.ReceiveIOU(io1, alice.PublicKey()); err != nil {
		t.Fatalf("ReceiveIOU: %v", err)
	}
	var theID UTXOID
	for id := range bobVault.utxos {
		theID = id
	}
	if bobVault.ActiveLockCount() != 0 {
		t.Fatal("expected no active locks initially")
	}
	if err := bobVault.LockUTXOWithTimeout(theID, 1700000999000, "settlement pending"); err != nil {
		t.Fatalf("LockUTXOWithTimeout: %v", err)
	}
	info, ok := bobVault.GetLockInfo(theID)
	if !ok {
		t.Fatal("expected lock info present")
	}
	if info.Reason != "settlement pending" {
		t.Fatalf("unexpected lock reason: %q", info.Reason)
	}
	if bobVault.ActiveLockCount() != 1 {
		t.Fatalf("expected 1 active lock, got %d", bobVault.ActiveLockCount())
	}
}

func TestReceivedAndSentTransactions(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	carol := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())
	carolDID := identity.FromPublicKey(carol.PublicKey())

	bobVault := New(bob.PublicKey())
	io1 := buildIOU(t, alice, bobDID, 100, 1, 1700000000)
	if err := bobVault.ReceiveIOU(io1, alice.PublicKey()); err != nil {
		t.Fatalf("ReceiveIOU: %v", err)
	}
	spend := buildIOU(t, bob, carolDID, 30, 2, 1700000001)
	if err := bobVault.RecordSentIOU(spend); err != nil {
		t.Fatalf("RecordSentIOU: %v", err)
	}

	received := bobVault.ReceivedTransactions()
	sent := bobVault.SentTransactions()
	if len(received) != 1 || received[0].Direction != DirectionReceived {
		t.Fatalf("unexpected received transactions: %+v", received)
	}
	if len(sent) != 1 || sent[0].Direction != DirectionSent {
		t.Fatalf("unexpected sent transactions: %+v", sent)
	}
}

func TestMemoryStatsReflectsTableSizes(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	bobDID := identity.FromPublicKey(bob.PublicKey())

	bobVault := New(bob.PublicKey())
	io1 := buildIOU(t, alice, bobDID, 100, 1, 1700000000)
	if err := bobVault.ReceiveIOU(io1, alice.PublicKey()); err != nil {
		t.Fatalf("ReceiveIOU: %v", err)
	}

	stats := bobVault.MemoryStats()
	if stats.UTXOCount != 1 || stats.ProcessedIOUCount != 1 || stats.TransactionCount != 1 {
		t.Fatalf("unexpected memory stats: %+v", stats)
	}
	if stats.EstimatedBytes <= 0 {
		t.Fatal("expected a positive estimated byte count")
	}
}
