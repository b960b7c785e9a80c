package storage

import (
	"crypto/aes"
	"errors"
)

// SealKeypairSeed and UnsealKeypairSeed wrap the 32-byte identity seed under
// a key-encryption key (kek, 32 bytes, AES-256) before it is written to
// KeyIdentityKeypair, using AES Key Wrap (RFC 3394 / NIST SP 800-38F).
// Sealing is optional: an unsealed deployment stores the raw seed, as
// loadOrCreateKeypair in cmd/meshnode does by default.

var kwDefaultIV = [8]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// SealKeypairSeed wraps seed under kek.
func SealKeypairSeed(kek, seed []byte) ([]byte, error) {
	if len(kek) != 32 {
		return nil, errors.New("storage: kek must be 32 bytes (AES-256)")
	}
	if len(seed) < 16 || len(seed) > 4096 || len(seed)%8 != 0 {
		return nil, errors.New("storage: seed must be 16..4096 bytes and a multiple of 8")
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}

	n := len(seed) / 8
	r := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(r[i][:], seed[i*8:(i+1)*8])
	}
	a := kwDefaultIV

	var b [16]byte
	for j := 0; j < 6; j++ {
		for i := 0; i < n; i++ {
			copy(b[0:8], a[:])
			copy(b[8:16], r[i][:])
			block.Encrypt(b[:], b[:])
			t := uint64(n*j + (i + 1))
			for k := 0; k < 8; k++ {
				a[k] = b[k] ^ byte(t>>(56-8*k))
			}
			copy(r[i][:], b[8:16])
		}
	}

	out := make([]byte, 0, 8+len(seed))
	out = append(out, a[:]...)
	for i := 0; i < n; i++ {
		out = append(out, r[i][:]...)
	}
	return out, nil
}

// UnsealKeypairSeed reverses SealKeypairSeed, rejecting a wrapped blob that
// fails the RFC 3394 integrity check (wrong kek or corrupted storage).
func UnsealKeypairSeed(kek, wrapped []byte) ([]byte, error) {
	if len(kek) != 32 {
		return nil, errors.New("storage: kek must be 32 bytes (AES-256)")
	}
	if len(wrapped) < 24 || len(wrapped) > 4104 || len(wrapped)%8 != 0 {
		return nil, errors.New("storage: wrapped seed must be 24..4104 bytes and a multiple of 8")
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}

	n := (len(wrapped) / 8) - 1
	var a [8]byte
	copy(a[:], wrapped[0:8])
	r := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(r[i][:], wrapped[(i+1)*8:(i+2)*8])
	}

	var b [16]byte
	for j := 5; j >= 0; j-- {
		for i := n - 1; i >= 0; i-- {
			t := uint64(n*j + (i + 1))
			var aXor [8]byte
			copy(aXor[:], a[:])
			for k := 0; k < 8; k++ {
				aXor[k] ^= byte(t >> (56 - 8*k))
			}
			copy(b[0:8], aXor[:])
			copy(b[8:16], r[i][:])
			block.Decrypt(b[:], b[:])
			copy(a[:], b[0:8])
			copy(r[i][:], b[8:16])
		}
	}

	if a != kwDefaultIV {
		return nil, errors.New("storage: seed unwrap integrity check failed")
	}

	out := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		out = append(out, r[i][:]...)
	}
	return out, nil
}
