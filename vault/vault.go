package vault

import (
	"sort"
	"time"

	"meshledger.dev/node/identity"
	"meshledger.dev/node/iou"
)

// Vault is the per-owner aggregate of UTXOs, spent outputs, replay
// suppression, history, reservations, and locks described in spec.md §3-§4.3.
type Vault struct {
	owner            identity.PublicKey
	utxos            map[UTXOID]UTXO
	spent            map[UTXOID]SpentOutput
	processedIOUs    map[iou.ID]uint64 // iou id -> processed_at_secs
	history          []TransactionRecord
	reservations     map[uint64]Reservation
	nextReservationID uint64
	lockTimeouts     map[UTXOID]LockInfo

	validator *iou.Validator
	now       func() time.Time
}

// New creates an empty vault for owner.
func New(owner identity.PublicKey) *Vault {
	return &Vault{
		owner:         owner,
		utxos:         make(map[UTXOID]UTXO),
		spent:         make(map[UTXOID]SpentOutput),
		processedIOUs: make(map[iou.ID]uint64),
		reservations:  make(map[uint64]Reservation),
		lockTimeouts:  make(map[UTXOID]LockInfo),
		validator:     iou.NewValidator(),
		now:           time.Now,
	}
}

// WithClock overrides the wall clock used for processed_at/spent_at/lock
// timestamps; intended for deterministic tests.
func (v *Vault) WithClock(now func() time.Time) *Vault {
	v.now = now
	return v
}

func (v *Vault) nowSecs() uint64 { return uint64(v.now().Unix()) }
func (v *Vault) nowMs() uint64   { return uint64(v.now().UnixMilli()) }

// Owner returns the vault's owning public key.
func (v *Vault) Owner() identity.PublicKey { return v.owner }

// Balance returns the total value of all owned UTXOs.
func (v *Vault) Balance() uint64 {
	var total uint64
	for _, u := range v.utxos {
		total += u.Amount
	}
	return total
}

// AvailableBalance is the unlocked UTXO value minus outstanding
// reservations, saturating at 0.
func (v *Vault) AvailableBalance() uint64 {
	var unlocked uint64
	for _, u := range v.utxos {
		if !u.Locked {
			unlocked += u.Amount
		}
	}
	var reserved uint64
	for _, r := range v.reservations {
		reserved += r.Amount
	}
	if reserved >= unlocked {
		return 0
	}
	return unlocked - reserved
}

// UTXOs returns a snapshot copy of owned, unspent outputs.
func (v *Vault) UTXOs() map[UTXOID]UTXO {
	out := make(map[UTXOID]UTXO, len(v.utxos))
	for k, val := range v.utxos {
		out[k] = val
	}
	return out
}

// History returns the append-only transaction history in recording order.
func (v *Vault) History() []TransactionRecord {
	out := make([]TransactionRecord, len(v.history))
	copy(out, v.history)
	return out
}

// BalanceFromSender sums the amounts of Received-direction history entries
// whose counterparty is sender.
func (v *Vault) BalanceFromSender(sender identity.DID) uint64 {
	var total uint64
	for _, rec := range v.history {
		if rec.Direction == DirectionReceived && rec.Counterparty.Equal(sender) {
			total += rec.Amount
		}
	}
	return total
}

// ReceiveIOU applies an incoming signed IOU: validates it, credits a new
// Received UTXO, and marks the IOU processed (replay suppression).
func (v *Vault) ReceiveIOU(signed iou.SignedIOU, senderPubkey identity.PublicKey) error {
	id := signed.ID()
	if _, ok := v.processedIOUs[id]; ok {
		return vaultErr(ErrDuplicateTransaction, "iou already processed")
	}

	recipientKey, err := signed.IOU.Recipient.PublicKey()
	if err != nil || recipientKey != v.owner {
		return vaultErr(ErrRecipientMismatch, "recipient does not match vault owner")
	}

	if err := v.validator.Validate(signed, senderPubkey); err != nil {
		return vaultErrWrap(ErrValidationFailed, "iou failed validation", err)
	}

	if v.Balance() > ^uint64(0)-signed.IOU.Amount {
		return vaultErr(ErrBalanceOverflow, "receiving this iou would overflow balance")
	}

	u := newUTXO(v.owner, signed.IOU.Amount, id, KindReceived)
	v.utxos[u.ID] = u

	now := v.nowSecs()
	v.processedIOUs[id] = now
	v.history = append(v.history, TransactionRecord{
		Direction:    DirectionReceived,
		IOUID:        id,
		Counterparty: signed.IOU.Sender,
		Amount:       signed.IOU.Amount,
		AtSecs:       now,
	})
	return nil
}

// RecordSentIOU spends automatically-selected UTXOs to cover signed, which
// must have been signed by this vault's owner.
func (v *Vault) RecordSentIOU(signed iou.SignedIOU) error {
	senderKey, err := signed.IOU.Sender.PublicKey()
	if err != nil || senderKey != v.owner {
		return vaultErr(ErrNotOwner, "signed iou sender does not match vault owner")
	}

	available := v.AvailableBalance()
	if signed.IOU.Amount > available {
		return &InsufficientBalanceError{Available: available, Required: signed.IOU.Amount}
	}

	selected, change, err := v.selectUTXOs(signed.IOU.Amount)
	if err != nil {
		return err
	}
	v.applySpend(selected, change, signed)
	return nil
}

// SpendWithUTXOs spends the explicitly named UTXOs to cover signed.
func (v *Vault) SpendWithUTXOs(signed iou.SignedIOU, utxoIDs []UTXOID) error {
	var selected []UTXO
	var sum uint64
	for _, id := range utxoIDs {
		u, ok := v.utxos[id]
		if !ok {
			return vaultErr(ErrUTXONotFound, "utxo "+id.String()+" not found")
		}
		selected = append(selected, u)
		sum += u.Amount
	}
	if sum < signed.IOU.Amount {
		return vaultErr(ErrInsufficientUTXOs, "selected utxos do not cover amount")
	}
	change := sum - signed.IOU.Amount
	v.applySpend(selected, change, signed)
	return nil
}

func (v *Vault) applySpend(selected []UTXO, change uint64, signed iou.SignedIOU) {
	now := v.nowSecs()
	id := signed.ID()
	for _, u := range selected {
		v.spent[u.ID] = SpentOutput{UTXOID: u.ID, SpendingIOUID: id, SpentAtSecs: now}
		delete(v.utxos, u.ID)
	}
	if change > 0 {
		cu := newUTXO(v.owner, change, id, KindChange)
		v.utxos[cu.ID] = cu
	}
	v.history = append(v.history, TransactionRecord{
		Direction:    DirectionSent,
		IOUID:        id,
		Counterparty: signed.IOU.Recipient,
		Amount:       signed.IOU.Amount,
		AtSecs:       now,
	})
}

// selectUTXOs implements spec.md §4.3's selection algorithm: prefer an
// exact-amount unlocked UTXO; otherwise take unlocked UTXOs largest-first
// until the sum covers required.
func (v *Vault) selectUTXOs(required uint64) ([]UTXO, uint64, error) {
	var unlocked []UTXO
	for _, u := range v.utxos {
		if !u.Locked {
			if u.Amount == required {
				return []UTXO{u}, 0, nil
			}
			unlocked = append(unlocked, u)
		}
	}

	sort.Slice(unlocked, func(i, j int) bool { return unlocked[i].Amount > unlocked[j].Amount })

	var sum uint64
	var selected []UTXO
	for _, u := range unlocked {
		if sum >= required {
			break
		}
		selected = append(selected, u)
		sum += u.Amount
	}
	if sum < required {
		return nil, 0, &InsufficientBalanceError{Available: sum, Required: required}
	}
	return selected, sum - required, nil
}

// PruneProcessedIOUsBefore drops replay-suppression entries processed
// strictly before cutoffSecs. Returns the count dropped.
func (v *Vault) PruneProcessedIOUsBefore(cutoffSecs uint64) int {
	n := 0
	for id, at := range v.processedIOUs {
		if at < cutoffSecs {
			delete(v.processedIOUs, id)
			n++
		}
	}
	return n
}

// PruneProcessedIOUsToMax keeps only the max most recently processed
// entries, dropping the oldest. Returns the count dropped.
func (v *Vault) PruneProcessedIOUsToMax(max int) int {
	if max < 0 {
		max = 0
	}
	if len(v.processedIOUs) <= max {
		return 0
	}
	type entry struct {
		id iou.ID
		at uint64
	}
	entries := make([]entry, 0, len(v.processedIOUs))
	for id, at := range v.processedIOUs {
		entries = append(entries, entry{id, at})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at < entries[j].at })
	drop := len(entries) - max
	for i := 0; i < drop; i++ {
		delete(v.processedIOUs, entries[i].id)
	}
	return drop
}

// ProcessedAt reports whether id has been processed and, if so, when.
func (v *Vault) ProcessedAt(id iou.ID) (uint64, bool) {
	at, ok := v.processedIOUs[id]
	return at, ok
}
