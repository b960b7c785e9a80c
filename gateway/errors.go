package gateway

import "fmt"

// ErrorCode tags the failure mode of a gateway operation.
type ErrorCode string

const (
	ErrNilVault     ErrorCode = "GATEWAY_ERR_NIL_VAULT"
	ErrNilMeshState ErrorCode = "GATEWAY_ERR_NIL_MESH_STATE"
)

// Error carries a code plus context for a gateway failure.
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

func gatewayErr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}
