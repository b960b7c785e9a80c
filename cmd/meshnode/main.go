// Command meshnode runs one mesh-ledger node: it owns an identity, a vault,
// a mesh state replica, a peer registry, a conflict detector, and a gossip
// engine, wiring them to a WebSocket transport and a bbolt-backed store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"meshledger.dev/node/conflict"
	"meshledger.dev/node/config"
	"meshledger.dev/node/gossip"
	"meshledger.dev/node/identity"
	"meshledger.dev/node/internal/obslog"
	"meshledger.dev/node/mesh"
	"meshledger.dev/node/peer"
	"meshledger.dev/node/protocol"
	"meshledger.dev/node/storage"
	"meshledger.dev/node/transport"
	"meshledger.dev/node/vault"
)

// local, non-mandatory storage keys for subsystems spec.md §6 leaves to the
// embedder (the peer registry and conflict detector are persisted as
// supplemented features; see SPEC_FULL.md).
const (
	keyPeerRegistry     = "peer:registry"
	keyConflictDetector = "conflict:detector"
)

type multiStringFlag []string

func (m *multiStringFlag) String() string {
	if m == nil {
		return ""
	}
	return strings.Join(*m, ",")
}

func (m *multiStringFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// parseAndValidate parses flags into a config.Config, normalizes peers, and
// validates the result. dryRun reports whether --dry-run was passed.
func parseAndValidate(args []string, stdout, stderr io.Writer) (cfg config.Config, dryRun bool, err error) {
	defaults := config.DefaultConfig()
	var peersFlag multiStringFlag

	cfg = defaults
	fs := flag.NewFlagSet("meshnode", flag.ContinueOnError)
	fs.SetOutput(stderr)

	peerCSV := fs.String("peers", "", "bootstrap peers, comma-separated host:port")
	fs.Var(&peersFlag, "peer", "single bootstrap peer host:port (repeatable)")
	fs.StringVar(&cfg.Network, "network", defaults.Network, "network name")
	fs.StringVar(&cfg.DataDir, "datadir", defaults.DataDir, "node data directory")
	fs.StringVar(&cfg.BindAddr, "bind", defaults.BindAddr, "bind address host:port")
	fs.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "log level: debug|info|warn|error")
	fs.IntVar(&cfg.MaxPeers, "max-peers", defaults.MaxPeers, "max connected peers")
	fs.IntVar(&cfg.Fanout, "fanout", defaults.Fanout, "gossip fanout")
	fs.IntVar(&cfg.MaxHops, "max-hops", defaults.MaxHops, "max announcement hops")
	dryRunFlag := fs.Bool("dry-run", false, "print effective config and exit")
	if ferr := fs.Parse(args); ferr != nil {
		return cfg, false, ferr
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Peers = config.NormalizePeers(append([]string{*peerCSV}, peersFlag...)...)
	if verr := config.ValidateConfig(cfg); verr != nil {
		_, _ = fmt.Fprintf(stderr, "invalid config: %v\n", verr)
		return cfg, false, verr
	}
	return cfg, *dryRunFlag, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, dryRun, err := parseAndValidate(args, stdout, stderr)
	if err != nil {
		return 2
	}

	if err := printConfig(stdout, cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "config encode failed: %v\n", err)
		return 1
	}
	if dryRun {
		return 0
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		_, _ = fmt.Fprintf(stderr, "datadir create failed: %v\n", err)
		return 2
	}

	lg := obslog.New(cfg.LogLevel)

	n, err := bootstrap(cfg, lg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "bootstrap failed: %v\n", err)
		return 2
	}
	defer n.close(lg)

	if err := n.transport.Start(); err != nil {
		_, _ = fmt.Fprintf(stderr, "transport start failed: %v\n", err)
		return 2
	}
	for _, addr := range cfg.Peers {
		if _, err := n.transport.Connect(addr); err != nil {
			obslog.WithComponent(lg, "transport").Warnf("dial %s failed: %v", addr, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintln(stdout, "meshnode running")
	n.loop(ctx, cfg)
	_, _ = fmt.Fprintln(stdout, "meshnode stopped")
	return 0
}

// node bundles every subsystem one running process needs.
type node struct {
	store     storage.Store
	transport transport.Transport
	engine    *gossip.Engine
	registry  *peer.Registry
	detector  *conflict.Detector
	state     *mesh.MeshState
	vlt       *vault.Vault
	keypair   *identity.Keypair
	nodeID    identity.NodeID

	mu    sync.Mutex
	conns []transport.ConnectionID
}

func bootstrap(cfg config.Config, lg *logrus.Logger) (*node, error) {
	dbPath := cfg.DataDir + "/meshledger.db"
	store, err := storage.OpenBolt(dbPath)
	if err != nil {
		return nil, err
	}

	nodeID, err := storage.LoadOrCreateNodeID(store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	kp, err := loadOrCreateKeypair(store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	vlt, err := loadOrCreateVault(store, kp.PublicKey())
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	state, err := loadOrCreateMeshState(store, nodeID)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	registry, err := loadOrCreateRegistry(store, nodeID)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	detector, err := loadOrCreateDetector(store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	gossipCfg := gossip.Config{
		Fanout:                cfg.Fanout,
		MaxHops:               uint8(cfg.MaxHops),
		HeartbeatIntervalSecs: cfg.HeartbeatIntervalSecs,
		SeenTTLSecs:           cfg.SeenTTLSecs,
		MaxSeenMessages:       cfg.MaxSeenMessages,
	}
	engine := gossip.New(nodeID, state, gossipCfg)

	tr := transport.NewWSTransport(cfg.BindAddr)

	return &node{
		store:     store,
		transport: tr,
		engine:    engine,
		registry:  registry,
		detector:  detector,
		state:     state,
		vlt:       vlt,
		keypair:   kp,
		nodeID:    nodeID,
	}, nil
}

func loadOrCreateKeypair(s storage.Store) (*identity.Keypair, error) {
	raw, found, err := s.Get(storage.KeyIdentityKeypair)
	if err != nil {
		return nil, err
	}
	if found {
		return identity.FromSeed(raw)
	}
	kp, err := identity.Generate()
	if err != nil {
		return nil, err
	}
	seed := kp.Seed()
	if err := s.Put(storage.KeyIdentityKeypair, seed[:]); err != nil {
		return nil, err
	}
	return kp, nil
}

func loadOrCreateVault(s storage.Store, owner identity.PublicKey) (*vault.Vault, error) {
	raw, found, err := s.Get(storage.KeyVaultState)
	if err != nil {
		return nil, err
	}
	if found {
		return vault.FromBytes(raw)
	}
	return vault.New(owner), nil
}

func loadOrCreateMeshState(s storage.Store, nodeID identity.NodeID) (*mesh.MeshState, error) {
	raw, found, err := s.Get(storage.KeyLedgerMeshState)
	if err != nil {
		return nil, err
	}
	if found {
		return mesh.FromBytes(raw)
	}
	return mesh.New(nodeID), nil
}

func loadOrCreateRegistry(s storage.Store, nodeID identity.NodeID) (*peer.Registry, error) {
	raw, found, err := s.Get(keyPeerRegistry)
	if err != nil {
		return nil, err
	}
	if found {
		return peer.FromBytes(raw)
	}
	return peer.New(nodeID), nil
}

func loadOrCreateDetector(s storage.Store) (*conflict.Detector, error) {
	raw, found, err := s.Get(keyConflictDetector)
	if err != nil {
		return nil, err
	}
	if found {
		return conflict.FromBytes(raw)
	}
	return conflict.New(), nil
}

// loop drains transport events and runs the heartbeat/prune tickers until
// ctx is cancelled. It is the single-writer home for the gossip engine and
// mesh state: every call into them happens on this goroutine.
func (n *node) loop(ctx context.Context, cfg config.Config) {
	heartbeat := time.NewTicker(time.Duration(cfg.HeartbeatIntervalSecs) * time.Second)
	defer heartbeat.Stop()
	prune := time.NewTicker(time.Minute)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-n.transport.Events():
			if !ok {
				return
			}
			n.handleTransportEvent(ev)
		case <-heartbeat.C:
			n.broadcastHeartbeat()
		case <-prune.C:
			n.engine.PruneSeenMessages(cfg.SeenTTLSecs)
			n.registry.RemoveStalePeers(cfg.StalePeerTimeoutSecs)
		}
	}
}

func (n *node) handleTransportEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventConnectionEstablished:
		n.mu.Lock()
		n.conns = append(n.conns, ev.Conn)
		n.mu.Unlock()
	case transport.EventConnectionLost:
		n.mu.Lock()
		for i, id := range n.conns {
			if id == ev.Conn {
				n.conns = append(n.conns[:i], n.conns[i+1:]...)
				break
			}
		}
		n.mu.Unlock()
	case transport.EventMessageReceived:
		msg, err := protocol.Decode(ev.Payload)
		if err != nil {
			return
		}
		for _, outEv := range n.engine.ProcessMessage(msg) {
			n.handleGossipEvent(outEv)
		}
	}
}

func (n *node) handleGossipEvent(ev gossip.Event) {
	switch ev.Kind {
	case gossip.EventForward:
		n.broadcast(ev.ForwardMsg)
	case gossip.EventRequestSync:
		n.broadcast(n.engine.GenerateSyncRequest())
	case gossip.EventNewIOU, gossip.EventStateUpdated:
		// state already mutated in place by the engine; nothing further to
		// do here beyond the persistence pass handled at shutdown.
	}
}

func (n *node) broadcastHeartbeat() {
	n.broadcast(n.engine.GenerateHeartbeat())
	for _, msg := range n.engine.CollectOutgoingMessages() {
		n.broadcast(msg)
	}
}

func (n *node) broadcast(msg protocol.Message) {
	payload, err := protocol.Encode(msg)
	if err != nil {
		return
	}
	n.mu.Lock()
	conns := append([]transport.ConnectionID(nil), n.conns...)
	n.mu.Unlock()
	for _, id := range conns {
		_ = n.transport.Send(id, payload)
	}
}

func (n *node) close(lg *logrus.Logger) {
	log := obslog.WithComponent(lg, "shutdown")
	_ = n.transport.Stop()

	if raw, err := n.vlt.ToBytes(); err == nil {
		_ = n.store.Put(storage.KeyVaultState, raw)
	} else {
		log.Warnf("vault serialize failed: %v", err)
	}
	if raw, err := n.state.ToBytes(); err == nil {
		_ = n.store.Put(storage.KeyLedgerMeshState, raw)
	} else {
		log.Warnf("mesh state serialize failed: %v", err)
	}
	if raw, err := n.registry.ToBytes(); err == nil {
		_ = n.store.Put(keyPeerRegistry, raw)
	} else {
		log.Warnf("peer registry serialize failed: %v", err)
	}
	if raw, err := n.detector.ToBytes(); err == nil {
		_ = n.store.Put(keyConflictDetector, raw)
	} else {
		log.Warnf("conflict detector serialize failed: %v", err)
	}

	if err := n.store.Flush(); err != nil {
		log.Warnf("store flush failed: %v", err)
	}
	if err := n.store.Close(); err != nil {
		log.Warnf("store close failed: %v", err)
	}
}

func printConfig(w io.Writer, cfg config.Config) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
