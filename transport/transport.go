// Package transport defines the connection-oriented byte channel the core
// depends on. Address variants include IP+port, BLE peripheral id, and LoRa
// peer address; framing (one Message blob per receive event) is the
// adapter's responsibility, not this interface's.
package transport

import "github.com/google/uuid"

// ConnectionID identifies one established connection.
type ConnectionID string

// NewConnectionID mints a fresh random connection id.
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// EventKind tags the concrete variant of an Event.
type EventKind uint8

const (
	EventConnectionEstablished EventKind = iota
	EventMessageReceived
	EventConnectionLost
)

// Event is something the transport reports back to its embedder.
type Event struct {
	Kind    EventKind
	Conn    ConnectionID
	Address string
	Payload []byte
	Err     error
}

// Transport is a connection-oriented byte channel. The core uses only this
// surface: start/stop the adapter, connect/disconnect by address, send a
// blob to an established connection, and drain an event stream.
type Transport interface {
	Start() error
	Stop() error
	Connect(address string) (ConnectionID, error)
	Disconnect(id ConnectionID) error
	Send(id ConnectionID, payload []byte) error
	Events() <-chan Event
}
