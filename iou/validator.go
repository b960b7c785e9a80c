package iou

import (
	"time"

	"meshledger.dev/node/identity"
)

// Validator enforces the structural and cryptographic invariants of a
// SignedIOU. The time-aware checks (future timestamp / expiry) are opt-in
// via WithClockTolerance / WithMaxAge so that a caller who doesn't care
// about wall-clock skew gets the pure signature/shape checks only.
type Validator struct {
	tolerance time.Duration
	hasTolerance bool
	maxAge    time.Duration
	hasMaxAge bool
	now       func() time.Time
}

// NewValidator returns a Validator performing only the time-independent
// checks: sender/DID match, signature, self-payment, non-zero amount.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// WithClockTolerance enables the FutureTimestamp check: reject IOUs whose
// timestamp is more than tolerance ahead of now.
func (v *Validator) WithClockTolerance(tolerance time.Duration) *Validator {
	v.tolerance = tolerance
	v.hasTolerance = true
	return v
}

// WithMaxAge enables the Expired check: reject IOUs older than maxAge.
func (v *Validator) WithMaxAge(maxAge time.Duration) *Validator {
	v.maxAge = maxAge
	v.hasMaxAge = true
	return v
}

// WithClock overrides the wall clock; intended for deterministic tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate enforces, in order: sender DID matches senderPubkey, signature
// verifies, sender != recipient, amount != 0, then (if configured) the
// time-aware checks.
func (v *Validator) Validate(signed SignedIOU, senderPubkey identity.PublicKey) error {
	expectedSender := identity.FromPublicKey(senderPubkey)
	if !signed.IOU.Sender.Equal(expectedSender) {
		return iouErr(ErrSenderMismatch, "sender DID does not match sender_pubkey")
	}

	if !identity.Verify(senderPubkey, signed.IOU.SigningBytes(), signed.Signature) {
		return iouErr(ErrInvalidSignature, "signature does not verify")
	}

	if signed.IOU.Sender.Equal(signed.IOU.Recipient) {
		return iouErr(ErrSelfPayment, "sender and recipient must differ")
	}

	if signed.IOU.Amount == 0 {
		return iouErr(ErrInvalidAmount, "amount must be non-zero")
	}

	now := v.now()
	if v.hasTolerance {
		limit := now.Add(v.tolerance).Unix()
		if limit >= 0 && signed.IOU.TimestampSecs > uint64(limit) {
			return iouErr(ErrFutureTimestamp, "iou timestamp is too far in the future")
		}
	}
	if v.hasMaxAge {
		cutoff := now.Add(-v.maxAge).Unix()
		if cutoff > 0 && signed.IOU.TimestampSecs < uint64(cutoff) {
			return iouErr(ErrExpired, "iou timestamp exceeds max age")
		}
	}

	return nil
}
