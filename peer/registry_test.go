package peer

import (
	"testing"
	"time"

	"meshledger.dev/node/identity"
)

func randomNodeID(t *testing.T) identity.NodeID {
	t.Helper()
	id, err := identity.RandomNodeID()
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestAddPeerRejectsSelf(t *testing.T) {
	me := randomNodeID(t)
	r := New(me)
	err := r.AddPeer(me, "127.0.0.1:9000")
	if e, ok := err.(*Error); !ok || e.Code != ErrCannotAddSelf {
		t.Fatalf("expected ErrCannotAddSelf, got %v", err)
	}
}

func TestAddPeerOverwritesAddressAndTouches(t *testing.T) {
	me := randomNodeID(t)
	other := randomNodeID(t)
	fixed := time.Unix(1000, 0)
	r := New(me).WithClock(func() time.Time { return fixed })

	if err := r.AddPeer(other, "10.0.0.1:9000"); err != nil {
		t.Fatal(err)
	}
	fixed2 := time.Unix(2000, 0)
	r.now = func() time.Time { return fixed2 }
	if err := r.AddPeer(other, "10.0.0.2:9000"); err != nil {
		t.Fatal(err)
	}

	info, ok := r.Get(other)
	if !ok {
		t.Fatal("expected peer present")
	}
	if info.Address != "10.0.0.2:9000" {
		t.Fatalf("expected address overwritten, got %s", info.Address)
	}
	if info.LastSeenMs != uint64(fixed2.UnixMilli()) {
		t.Fatalf("expected last_seen touched, got %d", info.LastSeenMs)
	}
}

func TestRemoveStalePeers(t *testing.T) {
	me := randomNodeID(t)
	r := New(me)
	fresh := randomNodeID(t)
	stale := randomNodeID(t)

	r.now = func() time.Time { return time.Unix(0, 0) }
	if err := r.AddPeer(stale, "addr-stale"); err != nil {
		t.Fatal(err)
	}
	r.now = func() time.Time { return time.Unix(1000, 0) }
	if err := r.AddPeer(fresh, "addr-fresh"); err != nil {
		t.Fatal(err)
	}

	n := r.RemoveStalePeers(500)
	if n != 1 {
		t.Fatalf("expected 1 stale peer removed, got %d", n)
	}
	if _, ok := r.Get(stale); ok {
		t.Fatal("stale peer should have been removed")
	}
	if _, ok := r.Get(fresh); !ok {
		t.Fatal("fresh peer should remain")
	}
}

func TestSelectRandomPeersCapsAtK(t *testing.T) {
	me := randomNodeID(t)
	r := New(me)
	for i := 0; i < 5; i++ {
		if err := r.AddPeer(randomNodeID(t), "addr"); err != nil {
			t.Fatal(err)
		}
	}
	sel, err := r.SelectRandomPeers(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(sel) != 3 {
		t.Fatalf("expected 3 peers, got %d", len(sel))
	}
	seen := make(map[identity.NodeID]bool)
	for _, info := range sel {
		if seen[info.NodeID] {
			t.Fatal("duplicate peer selected")
		}
		seen[info.NodeID] = true
	}

	all, err := r.SelectRandomPeers(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("expected selection capped at registry size, got %d", len(all))
	}
}

func TestPeersBehindVersion(t *testing.T) {
	me := randomNodeID(t)
	r := New(me)
	p1 := randomNodeID(t)
	p2 := randomNodeID(t)
	if err := r.AddPeer(p1, "addr1"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddPeer(p2, "addr2"); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateKnownVersion(p1, 5); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateKnownVersion(p2, 10); err != nil {
		t.Fatal(err)
	}

	behind := r.PeersBehindVersion(8)
	if len(behind) != 1 || behind[0].NodeID != p1 {
		t.Fatalf("expected only p1 behind version 8, got %+v", behind)
	}
}

func TestRecordRTTCapsAtTenSamplesAndAverages(t *testing.T) {
	me := randomNodeID(t)
	r := New(me)
	p := randomNodeID(t)
	if err := r.AddPeer(p, "addr"); err != nil {
		t.Fatal(err)
	}
	for i := uint64(1); i <= 15; i++ {
		if err := r.RecordRTT(p, i*10); err != nil {
			t.Fatal(err)
		}
	}
	info, _ := r.Get(p)
	if len(info.RTTSamplesMs) != maxRTTSamples {
		t.Fatalf("expected %d retained samples, got %d", maxRTTSamples, len(info.RTTSamplesMs))
	}
	// Samples 6..15 (x10) should remain: 60,70,...,150, average = 105.
	if info.AverageRTTMs() != 105 {
		t.Fatalf("expected average 105, got %v", info.AverageRTTMs())
	}
}

func TestRecordRTTRejectsUnknownPeer(t *testing.T) {
	me := randomNodeID(t)
	r := New(me)
	err := r.RecordRTT(randomNodeID(t), 10)
	if e, ok := err.(*Error); !ok || e.Code != ErrPeerNotFound {
		t.Fatalf("expected ErrPeerNotFound, got %v", err)
	}
}

func TestSerdeRoundTrip(t *testing.T) {
	me := randomNodeID(t)
	r := New(me)
	p := randomNodeID(t)
	if err := r.AddPeer(p, "addr"); err != nil {
		t.Fatal(err)
	}

	b, err := r.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	restored, err := FromBytes(b)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if restored.Len() != r.Len() {
		t.Fatalf("peer count mismatch: %d vs %d", restored.Len(), r.Len())
	}
	if _, ok := restored.Get(p); !ok {
		t.Fatal("expected restored registry to contain the peer")
	}
}
