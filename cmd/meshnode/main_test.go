package main

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"

	"meshledger.dev/node/identity"
	"meshledger.dev/node/internal/obslog"
)

func testLogger() *logrus.Logger { return obslog.Discard() }

func TestMultiStringFlagSetAppends(t *testing.T) {
	var m multiStringFlag
	if err := m.Set("a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.Set("b"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := m.String(); got != "a,b" {
		t.Fatalf("string=%q, want %q", got, "a,b")
	}
}

func TestRunDryRunPrintsConfigAndExitsZero(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer
	code := run([]string{"--dry-run", "--datadir", dir, "--bind", "127.0.0.1:0"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr=%s)", code, errOut.String())
	}
	if out.Len() == 0 {
		t.Fatal("expected printed config on stdout")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer
	code := run([]string{"--dry-run", "--datadir", dir, "--bind", "not-an-address"}, &out, &errOut)
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if errOut.Len() == 0 {
		t.Fatal("expected stderr output describing the invalid config")
	}
}

func TestBootstrapAndCloseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer
	cfg, _, err := parseAndValidate([]string{"--datadir", dir, "--bind", "127.0.0.1:0"}, &out, &errOut)
	if err != nil {
		t.Fatalf("parseAndValidate: %v (stderr=%s)", err, errOut.String())
	}

	lg := testLogger()
	n, err := bootstrap(cfg, lg)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if n.nodeID == (identity.NodeID{}) {
		t.Fatal("expected a non-zero node id to be assigned")
	}
	n.close(lg)

	// reopening against the same datadir must recover the same node id.
	n2, err := bootstrap(cfg, lg)
	if err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	defer n2.close(lg)
	if n2.nodeID != n.nodeID {
		t.Fatal("expected node id to persist across restarts")
	}
}
