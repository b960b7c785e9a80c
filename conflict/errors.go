package conflict

import (
	"fmt"

	"meshledger.dev/node/vault"
)

// ErrorCode tags the failure mode of a conflict-detector operation,
// mirroring the teacher repo's ErrorCode/txerr taxonomy (consensus/errors.go).
type ErrorCode string

const (
	ErrDoubleSpend           ErrorCode = "CONFLICT_ERR_DOUBLE_SPEND"
	ErrDeserializationFailed ErrorCode = "CONFLICT_ERR_DESERIALIZATION_FAILED"
)

// DoubleSpendType distinguishes the shape of a conflicting claim. Only one
// variant exists today; the type tag is carried to leave room for future
// discrimination without changing the shape of DoubleSpendError.
type DoubleSpendType string

const (
	SameUTXODifferentRecipient DoubleSpendType = "SAME_UTXO_DIFFERENT_RECIPIENT"
)

// DoubleSpendError reports that two distinct IOUs both claim the same UTXO.
// The claim is retained on both sides so downstream resolution can operate
// on the full pair; registering a conflicting claim is not fatal.
type DoubleSpendError struct {
	UTXOID      vault.UTXOID
	Type        DoubleSpendType
	FirstClaim  SpendingClaim
	SecondClaim SpendingClaim
}

func (e *DoubleSpendError) Error() string {
	return fmt.Sprintf("%s: utxo=%s type=%s", ErrDoubleSpend, e.UTXOID, e.Type)
}

func (e *DoubleSpendError) Code() ErrorCode { return ErrDoubleSpend }

// Error carries a code plus context for non-double-spend failures
// (currently only deserialization).
type Error struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func conflictErrWrap(code ErrorCode, msg string, cause error) error {
	return &Error{Code: code, Msg: msg, Err: cause}
}
