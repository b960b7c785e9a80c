package peer

import "fmt"

// ErrorCode tags the failure mode of a peer registry operation, mirroring
// the teacher repo's ErrorCode/txerr taxonomy (consensus/errors.go).
type ErrorCode string

const (
	ErrCannotAddSelf         ErrorCode = "PEER_ERR_CANNOT_ADD_SELF"
	ErrPeerNotFound          ErrorCode = "PEER_ERR_PEER_NOT_FOUND"
	ErrDeserializationFailed ErrorCode = "PEER_ERR_DESERIALIZATION_FAILED"
)

// Error carries a code plus context for a peer registry failure.
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

func peerErr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

func peerErrWrap(code ErrorCode, msg string, cause error) error {
	return &Error{Code: code, Msg: msg, Err: cause}
}
