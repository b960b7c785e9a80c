package vault

import (
	"encoding/json"

	"meshledger.dev/node/identity"
)

// snapshot is the JSON-serializable form persisted at the storage key
// "vault:state". Field order is fixed by the struct declaration; the order of
// elements within UTXOs, Spent and Reservations follows map iteration and is
// not fixed, so two encodings of the same vault can differ byte for byte.
type snapshot struct {
	Owner             identity.PublicKey     `json:"owner"`
	UTXOs             []UTXO                 `json:"utxos"`
	Spent             []SpentOutput          `json:"spent"`
	ProcessedIOUs     map[string]uint64      `json:"processed_ious"`
	History           []TransactionRecord    `json:"history"`
	Reservations      []Reservation          `json:"reservations"`
	NextReservationID uint64                 `json:"next_reservation_id"`
	LockTimeouts      map[string]LockInfo    `json:"lock_timeouts"`
}

// ToBytes serializes the vault's full state: UTXOs, spent set, replay
// table, history, reservations, and lock timeouts.
func (v *Vault) ToBytes() ([]byte, error) {
	s := snapshot{
		Owner:             v.owner,
		ProcessedIOUs:     make(map[string]uint64, len(v.processedIOUs)),
		Reservations:      make([]Reservation, 0, len(v.reservations)),
		NextReservationID: v.nextReservationID,
		LockTimeouts:      make(map[string]LockInfo, len(v.lockTimeouts)),
	}
	for _, u := range v.utxos {
		s.UTXOs = append(s.UTXOs, u)
	}
	for _, so := range v.spent {
		s.Spent = append(s.Spent, so)
	}
	for id, at := range v.processedIOUs {
		s.ProcessedIOUs[id.String()] = at
	}
	s.History = append(s.History, v.history...)
	for _, r := range v.reservations {
		s.Reservations = append(s.Reservations, r)
	}
	for id, info := range v.lockTimeouts {
		s.LockTimeouts[id.String()] = info
	}
	return json.Marshal(s)
}

// FromBytes rebuilds a Vault from the format produced by ToBytes.
func FromBytes(b []byte) (*Vault, error) {
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, vaultErrWrap(ErrStateImportMismatch, "decode vault snapshot", err)
	}
	v := New(s.Owner)
	for _, u := range s.UTXOs {
		v.utxos[u.ID] = u
	}
	for _, so := range s.Spent {
		v.spent[so.UTXOID] = so
	}
	for idHex, at := range s.ProcessedIOUs {
		id, err := iouIDFromHex(idHex)
		if err != nil {
			return nil, vaultErrWrap(ErrStateImportMismatch, "decode processed iou id", err)
		}
		v.processedIOUs[id] = at
	}
	v.history = append(v.history, s.History...)
	for _, r := range s.Reservations {
		v.reservations[r.ID] = r
	}
	v.nextReservationID = s.NextReservationID
	for idHex, info := range s.LockTimeouts {
		id, err := utxoIDFromHex(idHex)
		if err != nil {
			return nil, vaultErrWrap(ErrStateImportMismatch, "decode lock timeout utxo id", err)
		}
		v.lockTimeouts[id] = info
	}
	return v, nil
}
