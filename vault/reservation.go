package vault

// ReserveBalance allocates a new reservation of amount against available
// balance. Reservations reduce AvailableBalance but do not remove UTXOs.
func (v *Vault) ReserveBalance(amount uint64) (uint64, error) {
	available := v.AvailableBalance()
	if amount > available {
		return 0, &InsufficientBalanceError{Available: available, Required: amount}
	}
	id := v.nextReservationID
	v.nextReservationID++
	v.reservations[id] = Reservation{ID: id, Amount: amount}
	return id, nil
}

// ReleaseReservation frees a reservation without spending anything.
func (v *Vault) ReleaseReservation(id uint64) error {
	if _, ok := v.reservations[id]; !ok {
		return vaultErr(ErrReservationNotFound, "reservation not found")
	}
	delete(v.reservations, id)
	return nil
}

// CommitReservation removes the bookkeeping entry for id. The actual spend
// happens through a separate RecordSentIOU/SpendWithUTXOs call; see
// spec.md §9 Open Question 2.
func (v *Vault) CommitReservation(id uint64) error {
	if _, ok := v.reservations[id]; !ok {
		return vaultErr(ErrReservationNotFound, "reservation not found")
	}
	delete(v.reservations, id)
	return nil
}

// Reservations returns a snapshot of outstanding reservations.
func (v *Vault) Reservations() map[uint64]Reservation {
	out := make(map[uint64]Reservation, len(v.reservations))
	for k, val := range v.reservations {
		out[k] = val
	}
	return out
}
