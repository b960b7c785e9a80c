package gossip

import (
	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
	"meshledger.dev/node/mesh"
	"meshledger.dev/node/protocol"
)

// EventKind tags the concrete variant of an Event.
type EventKind uint8

const (
	EventForward EventKind = iota
	EventRequestSync
	EventNewIOU
	EventStateUpdated
)

// Event is something the engine wants the embedder to act on: send a
// message over the transport, kick off a sync, or notice local state
// changed. Only the field matching Kind is populated.
type Event struct {
	Kind         EventKind
	ForwardMsg   protocol.Message
	SyncTarget   identity.NodeID
	NewIOUSigned iou.SignedIOU
	MergeResult  mesh.MergeResult
}

func forwardEvent(msg protocol.Message) Event {
	return Event{Kind: EventForward, ForwardMsg: msg}
}

func requestSyncEvent(target identity.NodeID) Event {
	return Event{Kind: EventRequestSync, SyncTarget: target}
}

func newIOUEvent(signed iou.SignedIOU) Event {
	return Event{Kind: EventNewIOU, NewIOUSigned: signed}
}

func stateUpdatedEvent(result mesh.MergeResult) Event {
	return Event{Kind: EventStateUpdated, MergeResult: result}
}
