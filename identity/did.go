package identity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const (
	didScheme = "did"
	didMethod = "mesh"
)

// ErrorCode tags the failure mode of a DID parse, mirroring the teacher
// repo's ErrorCode/txerr taxonomy (consensus/errors.go) rather than ad-hoc
// sentinel errors.
type ErrorCode string

const (
	ErrEmpty          ErrorCode = "DID_ERR_EMPTY"
	ErrPartCount      ErrorCode = "DID_ERR_PART_COUNT"
	ErrScheme         ErrorCode = "DID_ERR_SCHEME"
	ErrMethod         ErrorCode = "DID_ERR_METHOD"
	ErrEmptyKeyPart   ErrorCode = "DID_ERR_EMPTY_KEY_PART"
	ErrInvalidBase58  ErrorCode = "DID_ERR_INVALID_BASE58"
	ErrInvalidPubkey  ErrorCode = "DID_ERR_INVALID_PUBKEY"
)

// ParseError carries the failure code plus a human-readable reason.
type ParseError struct {
	Code ErrorCode
	Msg  string
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func didErr(code ErrorCode, msg string) error {
	return &ParseError{Code: code, Msg: msg}
}

// DID is a decentralized identifier addressing an Ed25519 public key:
// "did:mesh:<base58(pubkey32)>". Two DIDs are equal iff their base58 key
// parts are byte-equal (case-sensitive).
type DID struct {
	keyPart string
}

// FromPublicKey builds the canonical DID for a public key.
func FromPublicKey(pub PublicKey) DID {
	return DID{keyPart: base58.Encode(pub.Bytes())}
}

// Parse validates and decodes a DID string.
func Parse(s string) (DID, error) {
	if s == "" {
		return DID{}, didErr(ErrEmpty, "empty DID string")
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return DID{}, didErr(ErrPartCount, fmt.Sprintf("expected 3 colon-separated parts, got %d", len(parts)))
	}
	if parts[0] != didScheme {
		return DID{}, didErr(ErrScheme, fmt.Sprintf("unexpected scheme %q", parts[0]))
	}
	if parts[1] != didMethod {
		return DID{}, didErr(ErrMethod, fmt.Sprintf("unexpected method %q", parts[1]))
	}
	keyPart := parts[2]
	if keyPart == "" {
		return DID{}, didErr(ErrEmptyKeyPart, "empty key part")
	}
	raw, err := base58.Decode(keyPart)
	if err != nil {
		return DID{}, didErr(ErrInvalidBase58, err.Error())
	}
	if _, err := PublicKeyFromBytes(raw); err != nil {
		return DID{}, didErr(ErrInvalidPubkey, err.Error())
	}
	return DID{keyPart: keyPart}, nil
}

// PublicKey decodes the embedded public key. Parse already validated this
// decodes cleanly, so the only realistic failure is on a zero-value DID.
func (d DID) PublicKey() (PublicKey, error) {
	if d.keyPart == "" {
		return PublicKey{}, didErr(ErrEmptyKeyPart, "zero-value DID")
	}
	raw, err := base58.Decode(d.keyPart)
	if err != nil {
		return PublicKey{}, didErr(ErrInvalidBase58, err.Error())
	}
	return PublicKeyFromBytes(raw)
}

// String renders the canonical "did:mesh:<base58>" form.
func (d DID) String() string {
	return didScheme + ":" + didMethod + ":" + d.keyPart
}

// Equal reports whether two DIDs carry byte-identical, case-sensitive key
// parts.
func (d DID) Equal(other DID) bool {
	return d.keyPart == other.keyPart
}

// IsZero reports whether d is the zero-value DID.
func (d DID) IsZero() bool {
	return d.keyPart == ""
}

// MarshalJSON encodes a DID as its canonical string form.
func (d DID) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a DID from its canonical string form.
func (d *DID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = DID{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
