package iou

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"

	"meshledger.dev/node/identity"
)

// EncodeBinary produces a compact, length-prefixed encoding of a SignedIOU:
//
//	u32 LE len(sender_str)    || sender_str bytes
//	u32 LE len(recipient_str) || recipient_str bytes
//	u64 LE amount
//	u64 LE nonce
//	u64 LE timestamp_secs
//	64 bytes signature
//
// The first five fields are exactly IOU.SigningBytes(); the signature is
// appended so decode can recover the full SignedIOU without re-deriving it.
func EncodeBinary(signed SignedIOU) []byte {
	body := signed.IOU.SigningBytes()
	out := make([]byte, 0, len(body)+len(signed.Signature))
	out = append(out, body...)
	out = append(out, signed.Signature.Bytes()...)
	return out
}

// DecodeBinary parses the format produced by EncodeBinary.
func DecodeBinary(b []byte) (SignedIOU, error) {
	off := 0

	senderStr, err := readLenPrefixedString(b, &off)
	if err != nil {
		return SignedIOU{}, err
	}
	recipientStr, err := readLenPrefixedString(b, &off)
	if err != nil {
		return SignedIOU{}, err
	}
	amount, err := readU64le(b, &off)
	if err != nil {
		return SignedIOU{}, err
	}
	nonce, err := readU64le(b, &off)
	if err != nil {
		return SignedIOU{}, err
	}
	timestamp, err := readU64le(b, &off)
	if err != nil {
		return SignedIOU{}, err
	}
	sigBytes, err := readBytes(b, &off, identity.SignatureSize)
	if err != nil {
		return SignedIOU{}, err
	}
	if off != len(b) {
		return SignedIOU{}, iouErr(ErrDecode, "trailing bytes after signed iou")
	}

	sender, err := identity.Parse(senderStr)
	if err != nil {
		return SignedIOU{}, iouErr(ErrDecode, "sender: "+err.Error())
	}
	recipient, err := identity.Parse(recipientStr)
	if err != nil {
		return SignedIOU{}, iouErr(ErrDecode, "recipient: "+err.Error())
	}
	sig, err := identity.SignatureFromBytes(sigBytes)
	if err != nil {
		return SignedIOU{}, iouErr(ErrDecode, err.Error())
	}

	return SignedIOU{
		IOU: IOU{
			Sender:        sender,
			Recipient:     recipient,
			Amount:        amount,
			Nonce:         nonce,
			TimestampSecs: timestamp,
		},
		Signature: sig,
	}, nil
}

// EncodeHex is a byte-exact hex layer over EncodeBinary.
func EncodeHex(signed SignedIOU) string {
	return hex.EncodeToString(EncodeBinary(signed))
}

// DecodeHex decodes the format produced by EncodeHex.
func DecodeHex(s string) (SignedIOU, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return SignedIOU{}, iouErr(ErrInvalidHex, err.Error())
	}
	return DecodeBinary(b)
}

var base64Codec = base64.RawURLEncoding

// EncodeBase64 is a byte-exact URL-safe, unpadded base64 layer over
// EncodeBinary.
func EncodeBase64(signed SignedIOU) string {
	return base64Codec.EncodeToString(EncodeBinary(signed))
}

// DecodeBase64 decodes the format produced by EncodeBase64.
func DecodeBase64(s string) (SignedIOU, error) {
	b, err := base64Codec.DecodeString(s)
	if err != nil {
		return SignedIOU{}, iouErr(ErrInvalidBase64, err.Error())
	}
	return DecodeBinary(b)
}

func readU32le(b []byte, off *int) (uint32, error) {
	if *off+4 > len(b) {
		return 0, iouErr(ErrDecode, "unexpected EOF (u32le)")
	}
	v := binary.LittleEndian.Uint32(b[*off : *off+4])
	*off += 4
	return v, nil
}

func readU64le(b []byte, off *int) (uint64, error) {
	if *off+8 > len(b) {
		return 0, iouErr(ErrDecode, "unexpected EOF (u64le)")
	}
	v := binary.LittleEndian.Uint64(b[*off : *off+8])
	*off += 8
	return v, nil
}

func readBytes(b []byte, off *int, n int) ([]byte, error) {
	if n < 0 || *off+n > len(b) {
		return nil, iouErr(ErrDecode, "unexpected EOF (bytes)")
	}
	v := b[*off : *off+n]
	*off += n
	return v, nil
}

func readLenPrefixedString(b []byte, off *int) (string, error) {
	n, err := readU32le(b, off)
	if err != nil {
		return "", err
	}
	raw, err := readBytes(b, off, int(n))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
