package iou

import "fmt"

// ErrorCode tags the failure mode of a builder, validator, or codec
// operation, mirroring the teacher repo's ErrorCode/txerr taxonomy
// (consensus/errors.go).
type ErrorCode string

const (
	// Builder errors.
	ErrMissingSender    ErrorCode = "IOU_ERR_MISSING_SENDER"
	ErrMissingRecipient ErrorCode = "IOU_ERR_MISSING_RECIPIENT"
	ErrMissingAmount    ErrorCode = "IOU_ERR_MISSING_AMOUNT"
	ErrInvalidAmount    ErrorCode = "IOU_ERR_INVALID_AMOUNT"
	ErrSelfPayment      ErrorCode = "IOU_ERR_SELF_PAYMENT"
	ErrRandSource       ErrorCode = "IOU_ERR_RAND_SOURCE"

	// Validator errors.
	ErrSenderMismatch   ErrorCode = "IOU_ERR_SENDER_MISMATCH"
	ErrInvalidSignature ErrorCode = "IOU_ERR_INVALID_SIGNATURE"
	ErrFutureTimestamp  ErrorCode = "IOU_ERR_FUTURE_TIMESTAMP"
	ErrExpired          ErrorCode = "IOU_ERR_EXPIRED"

	// Codec errors.
	ErrInvalidHex    ErrorCode = "IOU_ERR_INVALID_HEX"
	ErrInvalidBase64 ErrorCode = "IOU_ERR_INVALID_BASE64"
	ErrDecode        ErrorCode = "IOU_ERR_DECODE"
)

// Error is the shared error type across the builder, validator, and codec.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func iouErr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}
