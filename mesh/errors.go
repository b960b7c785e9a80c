package mesh

import "fmt"

// ErrorCode tags the failure mode of a mesh state operation, mirroring the
// teacher repo's ErrorCode/txerr taxonomy (consensus/errors.go).
type ErrorCode string

const (
	ErrDuplicateIOU        ErrorCode = "MESH_ERR_DUPLICATE_IOU"
	ErrValidationFailed    ErrorCode = "MESH_ERR_VALIDATION_FAILED"
	ErrDeserializationFailed ErrorCode = "MESH_ERR_DESERIALIZATION_FAILED"
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

func meshErr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

func meshErrWrap(code ErrorCode, msg string, cause error) error {
	return &Error{Code: code, Msg: msg, Err: cause}
}
