package storage

import "meshledger.dev/node/identity"

// LoadOrCreateNodeID returns the NodeId persisted at KeyNodeID, drawing a
// fresh one from the CSPRNG and persisting it on first access.
func LoadOrCreateNodeID(s Store) (identity.NodeID, error) {
	raw, found, err := s.Get(KeyNodeID)
	if err != nil {
		return identity.NodeID{}, err
	}
	if found {
		return identity.NodeIDFromBytes(raw)
	}
	id, err := identity.RandomNodeID()
	if err != nil {
		return identity.NodeID{}, err
	}
	if err := s.Put(KeyNodeID, id.Bytes()); err != nil {
		return identity.NodeID{}, err
	}
	return id, nil
}
