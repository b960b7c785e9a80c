package vault

// LockUTXO excludes a UTXO from selection and from available balance.
func (v *Vault) LockUTXO(id UTXOID) error {
	u, ok := v.utxos[id]
	if !ok {
		return vaultErr(ErrUTXONotFound, "utxo not found")
	}
	u.Locked = true
	v.utxos[id] = u
	return nil
}

// UnlockUTXO clears the lock flag set by LockUTXO / LockUTXOWithTimeout.
func (v *Vault) UnlockUTXO(id UTXOID) error {
	u, ok := v.utxos[id]
	if !ok {
		return vaultErr(ErrUTXONotFound, "utxo not found")
	}
	u.Locked = false
	v.utxos[id] = u
	delete(v.lockTimeouts, id)
	return nil
}

// LockUTXOWithTimeout locks id and additionally records an expiry, observed
// only when CleanupExpiredLocks is called (locks are opportunistic, not
// driven by a timer internal to the vault).
func (v *Vault) LockUTXOWithTimeout(id UTXOID, expiresAtMs uint64, reason string) error {
	if err := v.LockUTXO(id); err != nil {
		return err
	}
	v.lockTimeouts[id] = LockInfo{ExpiresAtMs: expiresAtMs, Reason: reason}
	return nil
}

// CleanupExpiredLocks unlocks every UTXO whose recorded expiry has passed
// and returns the count cleaned.
func (v *Vault) CleanupExpiredLocks() int {
	now := v.nowMs()
	n := 0
	for id, info := range v.lockTimeouts {
		if info.ExpiresAtMs <= now {
			delete(v.lockTimeouts, id)
			if u, ok := v.utxos[id]; ok {
				u.Locked = false
				v.utxos[id] = u
			}
			n++
		}
	}
	return n
}

// LockTimeouts returns a snapshot of the active lock-expiry table.
func (v *Vault) LockTimeouts() map[UTXOID]LockInfo {
	out := make(map[UTXOID]LockInfo, len(v.lockTimeouts))
	for k, val := range v.lockTimeouts {
		out[k] = val
	}
	return out
}
