package vault

import "sort"

// MemoryStats summarizes the size of a vault's in-memory bookkeeping
// tables, for diagnostics and prune-threshold decisions.
type MemoryStats struct {
	ProcessedIOUCount int
	UTXOCount         int
	SpentOutputCount  int
	TransactionCount  int
	LockCount         int
	EstimatedBytes    int
}

// Rough per-entry size estimates used by MemoryStats. These are deliberately
// approximate; the figure is for capacity planning, not accounting.
const (
	sizeIOUIDEntry           = 32 + 8
	sizeUTXOEntry            = 32 + 32 + 8 + 32 + 1 + 1
	sizeSpentOutputEntry     = 32 + 32 + 8
	sizeTransactionRecordApprox = 200
	sizeLockInfoEntry        = 16
)

// MemoryStats reports the size of every bookkeeping table the vault holds.
func (v *Vault) MemoryStats() MemoryStats {
	s := MemoryStats{
		ProcessedIOUCount: len(v.processedIOUs),
		UTXOCount:         len(v.utxos),
		SpentOutputCount:  len(v.spent),
		TransactionCount:  len(v.history),
		LockCount:         len(v.lockTimeouts),
	}
	s.EstimatedBytes = s.ProcessedIOUCount*sizeIOUIDEntry +
		s.UTXOCount*sizeUTXOEntry +
		s.SpentOutputCount*sizeSpentOutputEntry +
		s.TransactionCount*sizeTransactionRecordApprox +
		s.LockCount*sizeLockInfoEntry
	return s
}

// CanAfford reports whether AvailableBalance covers amount.
func (v *Vault) CanAfford(amount uint64) bool {
	return v.AvailableBalance() >= amount
}

// UTXOSetSortedByAmount returns owned UTXOs ordered smallest amount first.
func (v *Vault) UTXOSetSortedByAmount() []UTXO {
	out := make([]UTXO, 0, len(v.utxos))
	for _, u := range v.utxos {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out
}

// GetUTXO looks up a single owned, unspent UTXO by id.
func (v *Vault) GetUTXO(id UTXOID) (UTXO, bool) {
	u, ok := v.utxos[id]
	return u, ok
}

// IsUTXOSpent reports whether id appears in the spent-output set.
func (v *Vault) IsUTXOSpent(id UTXOID) bool {
	_, ok := v.spent[id]
	return ok
}

// WouldBeDoubleSpend is an alias for IsUTXOSpent: spending an already-spent
// UTXO is exactly what the spent-output set exists to catch.
func (v *Vault) WouldBeDoubleSpend(id UTXOID) bool {
	return v.IsUTXOSpent(id)
}

// EstimateUTXOsNeeded reports how many unlocked UTXOs selectUTXOs would
// need to cover amount, without mutating vault state. The second return
// value is false if amount cannot be covered by the current unlocked set.
func (v *Vault) EstimateUTXOsNeeded(amount uint64) (int, bool) {
	selected, _, err := v.selectUTXOs(amount)
	if err != nil {
		return 0, false
	}
	return len(selected), true
}

// SpentOutputs returns a snapshot of every recorded spent output.
func (v *Vault) SpentOutputs() []SpentOutput {
	out := make([]SpentOutput, 0, len(v.spent))
	for _, so := range v.spent {
		out = append(out, so)
	}
	return out
}

// GetSpentOutput looks up the spend record for a previously-spent UTXO id.
func (v *Vault) GetSpentOutput(id UTXOID) (SpentOutput, bool) {
	so, ok := v.spent[id]
	return so, ok
}

// GetLockInfo returns the expiry record for a locked UTXO, if any.
func (v *Vault) GetLockInfo(id UTXOID) (LockInfo, bool) {
	info, ok := v.lockTimeouts[id]
	return info, ok
}

// ActiveLockCount returns the number of UTXOs with a tracked lock expiry.
func (v *Vault) ActiveLockCount() int {
	return len(v.lockTimeouts)
}

// ReceivedTransactions filters History to Received-direction entries.
func (v *Vault) ReceivedTransactions() []TransactionRecord {
	return v.filterHistory(DirectionReceived)
}

// SentTransactions filters History to Sent-direction entries.
func (v *Vault) SentTransactions() []TransactionRecord {
	return v.filterHistory(DirectionSent)
}

func (v *Vault) filterHistory(dir TransactionDirection) []TransactionRecord {
	out := make([]TransactionRecord, 0, len(v.history))
	for _, rec := range v.history {
		if rec.Direction == dir {
			out = append(out, rec)
		}
	}
	return out
}
