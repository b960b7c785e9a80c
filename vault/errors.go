package vault

import "fmt"

// ErrorCode tags the failure mode of a vault operation, mirroring the
// teacher repo's ErrorCode/txerr taxonomy (consensus/errors.go).
type ErrorCode string

const (
	ErrDuplicateTransaction ErrorCode = "VAULT_ERR_DUPLICATE_TRANSACTION"
	ErrRecipientMismatch    ErrorCode = "VAULT_ERR_RECIPIENT_MISMATCH"
	ErrValidationFailed     ErrorCode = "VAULT_ERR_VALIDATION_FAILED"
	ErrBalanceOverflow      ErrorCode = "VAULT_ERR_BALANCE_OVERFLOW"
	ErrNotOwner             ErrorCode = "VAULT_ERR_NOT_OWNER"
	ErrInsufficientBalance  ErrorCode = "VAULT_ERR_INSUFFICIENT_BALANCE"
	ErrInsufficientUTXOs    ErrorCode = "VAULT_ERR_INSUFFICIENT_UTXOS"
	ErrUTXONotFound         ErrorCode = "VAULT_ERR_UTXO_NOT_FOUND"
	ErrReservationNotFound  ErrorCode = "VAULT_ERR_RESERVATION_NOT_FOUND"
	ErrStateImportMismatch  ErrorCode = "VAULT_ERR_STATE_IMPORT_MISMATCH"
)

// Error carries a code plus context and, for ValidationFailed, the wrapped
// cause from the iou package.
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

func vaultErr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

func vaultErrWrap(code ErrorCode, msg string, cause error) error {
	return &Error{Code: code, Msg: msg, Err: cause}
}

// InsufficientBalanceError carries the available and required amounts
// structurally, per spec.md's InsufficientBalance{available, required}.
type InsufficientBalanceError struct {
	Available uint64
	Required  uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: available=%d required=%d", ErrInsufficientBalance, e.Available, e.Required)
}

func (e *InsufficientBalanceError) Code() ErrorCode { return ErrInsufficientBalance }
