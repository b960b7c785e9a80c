// Package identity implements the node's cryptographic identity: Ed25519
// keypairs and the DID encoding used to address them on the mesh.
package identity

import (
	"bytes"
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// PublicKeySize is the length of a raw Ed25519 verifying key.
	PublicKeySize = ed25519.PublicKeySize
	// SecretKeySize is the length of a raw 32-byte Ed25519 seed (not the
	// 64-byte expanded private key that ed25519.PrivateKey stores).
	SecretKeySize = ed25519.SeedSize
	// SignatureSize is the length of an Ed25519 signature.
	SignatureSize = ed25519.SignatureSize
)

// PublicKey is a 32-byte Ed25519 verifying key.
type PublicKey [PublicKeySize]byte

// Signature is a 64-byte Ed25519 signature.
type Signature [SignatureSize]byte

// Keypair is an Ed25519 identity: a 32-byte seed plus its derived public key.
type Keypair struct {
	seed [SecretKeySize]byte
	priv ed25519.PrivateKey
	pub  PublicKey
}

// Generate draws a fresh keypair from the process CSPRNG.
func Generate() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(cryptorand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate: %w", err)
	}
	return fromPrivateKey(priv, pub)
}

// FromSeed reconstructs a Keypair from a 32-byte Ed25519 seed. Round-trips
// with Keypair.Seed: FromSeed(kp.Seed()).PublicKey() == kp.PublicKey().
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != SecretKeySize {
		return nil, fmt.Errorf("identity: seed must be %d bytes, got %d", SecretKeySize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return fromPrivateKey(priv, pub)
}

func fromPrivateKey(priv ed25519.PrivateKey, pub ed25519.PublicKey) (*Keypair, error) {
	if len(pub) != PublicKeySize {
		return nil, fmt.Errorf("identity: invalid public key length %d", len(pub))
	}
	kp := &Keypair{priv: priv}
	copy(kp.seed[:], priv.Seed())
	copy(kp.pub[:], pub)
	return kp, nil
}

// Seed returns the 32-byte secret seed. Callers must treat this as sensitive.
func (k *Keypair) Seed() [SecretKeySize]byte {
	return k.seed
}

// PublicKey returns the 32-byte verifying key.
func (k *Keypair) PublicKey() PublicKey {
	return k.pub
}

// Sign signs msg and returns the 64-byte Ed25519 signature. Deterministic:
// for a fixed keypair and message, Sign always returns the same bytes.
func (k *Keypair) Sign(msg []byte) Signature {
	raw := ed25519.Sign(k.priv, msg)
	var sig Signature
	copy(sig[:], raw)
	return sig
}

// Verify checks sig over msg against pub. Never panics on malformed input
// and has no side effects.
func Verify(pub PublicKey, msg []byte, sig Signature) bool {
	return ed25519.Verify(pub[:], msg, sig[:])
}

// PublicKeyFromBytes validates and wraps a raw 32-byte Ed25519 verifying key.
// Beyond the length check, b must decode as a canonical point on the curve:
// SetBytes rejects points not on the curve, and re-encoding the decoded
// point rejects non-canonical encodings (which SetBytes itself accepts), the
// same class of input ed25519.Verify would otherwise silently reject
// signatures against without ever surfacing why.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("identity: public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	pt, err := new(edwards25519.Point).SetBytes(b)
	if err != nil {
		return pk, fmt.Errorf("identity: public key is not a canonical ed25519 point: %w", err)
	}
	if !bytes.Equal(pt.Bytes(), b) {
		return pk, fmt.Errorf("identity: public key is not a canonical ed25519 point encoding")
	}
	copy(pk[:], b)
	return pk, nil
}

// Bytes returns the raw 32-byte encoding.
func (p PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeySize)
	copy(out, p[:])
	return out
}

// SignatureFromBytes validates and wraps a raw 64-byte Ed25519 signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureSize {
		return sig, fmt.Errorf("identity: signature must be %d bytes, got %d", SignatureSize, len(b))
	}
	copy(sig[:], b)
	return sig, nil
}

// Bytes returns the raw 64-byte encoding.
func (s Signature) Bytes() []byte {
	out := make([]byte, SignatureSize)
	copy(out, s[:])
	return out
}

// MarshalJSON encodes a Signature as a lowercase hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(s.Bytes()))
}

// UnmarshalJSON decodes a Signature from a lowercase hex string.
func (s *Signature) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	raw, err := hex.DecodeString(str)
	if err != nil {
		return err
	}
	sig, err := SignatureFromBytes(raw)
	if err != nil {
		return err
	}
	*s = sig
	return nil
}

// MarshalJSON encodes a PublicKey as a lowercase hex string.
func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(p.Bytes()))
}

// UnmarshalJSON decodes a PublicKey from a lowercase hex string.
func (p *PublicKey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	pk, err := PublicKeyFromBytes(raw)
	if err != nil {
		return err
	}
	*p = pk
	return nil
}
