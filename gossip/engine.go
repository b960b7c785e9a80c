// Package gossip implements the dedup, hop-limited forwarding, and
// anti-entropy engine that propagates IOUs and mesh state across peers.
package gossip

import (
	"sort"
	"time"

	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
	"meshledger.dev/node/mesh"
	"meshledger.dev/node/protocol"
)

// Engine is a single-writer state machine: every exported method here
// assumes serial invocation from one logical task per node. Embedders that
// need concurrent access must wrap the engine in their own mutex.
type Engine struct {
	nodeID identity.NodeID
	state  *mesh.MeshState
	config Config
	stats  Stats

	seenMessages map[[32]byte]uint64 // message id -> first-seen ms
	seenOrder    []seenRecord         // insertion order, for age-based pruning

	pendingAnnouncements []protocol.IOUAnnouncement

	now func() time.Time
}

type seenRecord struct {
	id      [32]byte
	atMs    uint64
}

// New creates a gossip engine bound to state, using config's tunables.
func New(nodeID identity.NodeID, state *mesh.MeshState, config Config) *Engine {
	return &Engine{
		nodeID:       nodeID,
		state:        state,
		config:       config,
		seenMessages: make(map[[32]byte]uint64),
		now:          time.Now,
	}
}

// WithClock overrides the wall clock used for seen-message timestamps and
// generated Heartbeat timestamps; intended for deterministic tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) nowMs() uint64 { return uint64(e.now().UnixMilli()) }

// Stats returns a snapshot of the engine's lifetime counters.
func (e *Engine) Stats() Stats { return e.stats }

func (e *Engine) markSeen(id [32]byte) {
	at := e.nowMs()
	e.seenMessages[id] = at
	e.seenOrder = append(e.seenOrder, seenRecord{id: id, atMs: at})
}

func (e *Engine) hasSeen(id [32]byte) bool {
	_, ok := e.seenMessages[id]
	return ok
}

// AnnounceIOU wraps signed in a fresh IOUAnnouncement at hop 0 and enqueues
// it for outgoing delivery, unless an announcement for the same underlying
// IOU has already been seen.
func (e *Engine) AnnounceIOU(signed iou.SignedIOU, senderPubkey identity.PublicKey) {
	ann := protocol.IOUAnnouncement{
		Signed:       signed,
		SenderPubkey: senderPubkey,
		Hops:         0,
		MaxHops:      e.config.MaxHops,
	}
	id := ann.ID()
	if e.hasSeen(id) {
		return
	}
	e.markSeen(id)
	e.pendingAnnouncements = append(e.pendingAnnouncements, ann)
}

// ProcessMessage dedups msg against the seen-message table, dispatches it
// by variant, and returns the events the embedder should act on. Messages
// that fail to deserialize upstream never reach this method; messages that
// fail local validation are silently dropped here and counted in Stats,
// never returned as an error.
func (e *Engine) ProcessMessage(msg protocol.Message) []Event {
	e.stats.MessagesProcessed++

	id := msg.ID()
	if e.hasSeen(id) {
		return nil
	}
	e.markSeen(id)

	switch m := msg.(type) {
	case protocol.IOUAnnouncement:
		return e.processIOUAnnouncement(m)
	case protocol.Heartbeat:
		return e.processHeartbeat(m)
	case protocol.SyncRequest:
		return e.processSyncRequest(m)
	case protocol.SyncResponse:
		return e.processSyncResponse(m)
	case protocol.PeerAnnouncement:
		return []Event{forwardEvent(m)}
	default:
		return nil
	}
}

func (e *Engine) processIOUAnnouncement(a protocol.IOUAnnouncement) []Event {
	err := e.state.AddIOU(a.Signed, a.SenderPubkey)
	if err != nil {
		e.stats.IOUsRejected++
		return nil
	}
	if a.ShouldStopPropagation() {
		return []Event{newIOUEvent(a.Signed)}
	}
	hopped := a.IncrementHop()
	e.stats.MessagesForwarded++
	return []Event{forwardEvent(hopped), newIOUEvent(a.Signed)}
}

func (e *Engine) processHeartbeat(h protocol.Heartbeat) []Event {
	if h.Version > e.state.Version() {
		e.stats.SyncsInitiated++
		return []Event{requestSyncEvent(h.Sender)}
	}
	return nil
}

func (e *Engine) processSyncRequest(r protocol.SyncRequest) []Event {
	resp := protocol.SyncResponse{
		Sender:         e.nodeID,
		CurrentVersion: e.state.Version(),
		Entries:        e.state.AllEntries(),
	}
	return []Event{forwardEvent(resp)}
}

func (e *Engine) processSyncResponse(r protocol.SyncResponse) []Event {
	temp := mesh.New(e.nodeID)
	for _, entry := range r.Entries {
		// Failures are silently skipped: invalid entries from a peer must
		// never corrupt local state.
		_ = temp.AddIOU(entry.Signed, entry.SenderPubkey)
	}
	result := e.state.Merge(temp)
	if result.NewEntries > 0 {
		e.stats.SyncsCompleted++
		return []Event{stateUpdatedEvent(result)}
	}
	return nil
}

// CollectOutgoingMessages drains the pending announcement queue in FIFO
// order, wrapping each as a Message for the transport adapter to send.
func (e *Engine) CollectOutgoingMessages() []protocol.Message {
	out := make([]protocol.Message, 0, len(e.pendingAnnouncements))
	for _, ann := range e.pendingAnnouncements {
		out = append(out, ann)
	}
	e.pendingAnnouncements = nil
	return out
}

// PruneSeenMessages removes seen-message entries older than maxAgeSecs
// relative to the engine's clock. If the table still exceeds
// config.MaxSeenMessages afterward, the oldest remaining entries are
// dropped by timestamp until the table is within the configured limit.
// Returns the total number of entries removed by either step.
func (e *Engine) PruneSeenMessages(maxAgeSecs uint64) int {
	cutoff := e.nowMs() - maxAgeSecs*1000
	removed := 0

	kept := e.seenOrder[:0]
	for _, rec := range e.seenOrder {
		if rec.atMs < cutoff {
			delete(e.seenMessages, rec.id)
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	e.seenOrder = kept

	if len(e.seenOrder) > e.config.MaxSeenMessages {
		sort.Slice(e.seenOrder, func(i, j int) bool { return e.seenOrder[i].atMs < e.seenOrder[j].atMs })
		overflow := len(e.seenOrder) - e.config.MaxSeenMessages
		for i := 0; i < overflow; i++ {
			delete(e.seenMessages, e.seenOrder[i].id)
		}
		e.seenOrder = e.seenOrder[overflow:]
		removed += overflow
	}
	return removed
}

// GenerateHeartbeat builds this node's current Heartbeat message.
func (e *Engine) GenerateHeartbeat() protocol.Heartbeat {
	return protocol.Heartbeat{Sender: e.nodeID, Version: e.state.Version(), TimestampMs: e.nowMs()}
}

// GenerateSyncRequest builds this node's current SyncRequest message.
func (e *Engine) GenerateSyncRequest() protocol.SyncRequest {
	return protocol.SyncRequest{Sender: e.nodeID, KnownVersion: e.state.Version()}
}
