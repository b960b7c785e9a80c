package protocol

import (
	"encoding/json"
)

// tag is the one-byte wire discriminant prefixed to every encoded Message,
// framing the variant the way the teacher's consensus wire format frames a
// transaction/block type before its body.
type tag byte

const (
	tagSyncRequest tag = iota + 1
	tagSyncResponse
	tagIOUAnnouncement
	tagPeerAnnouncement
	tagHeartbeat
)

func tagFor(v Variant) (tag, bool) {
	switch v {
	case VariantSyncRequest:
		return tagSyncRequest, true
	case VariantSyncResponse:
		return tagSyncResponse, true
	case VariantIOUAnnouncement:
		return tagIOUAnnouncement, true
	case VariantPeerAnnouncement:
		return tagPeerAnnouncement, true
	case VariantHeartbeat:
		return tagHeartbeat, true
	default:
		return 0, false
	}
}

// maxMessageBytes bounds a single decoded message body, guarding the
// transport adapter against an oversized frame.
const maxMessageBytes = 4 << 20 // 4 MiB

// Encode produces the wire form of msg: a one-byte variant tag followed by
// the JSON encoding of its variant-specific body.
func Encode(msg Message) ([]byte, error) {
	t, ok := tagFor(msg.Variant())
	if !ok {
		return nil, protoErr(ErrInvalidFormat, "unknown message variant")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, protoErrWrap(ErrInvalidFormat, "encode message body", err)
	}
	out := make([]byte, 0, 1+len(body))
	out = append(out, byte(t))
	out = append(out, body...)
	return out, nil
}

// Decode parses the wire form produced by Encode back into a Message.
func Decode(b []byte) (Message, error) {
	if len(b) > maxMessageBytes {
		return nil, protoErr(ErrTooLarge, "message exceeds maximum size")
	}
	if len(b) < 1 {
		return nil, protoErr(ErrDeserializationFailed, "empty message")
	}
	body := b[1:]
	switch tag(b[0]) {
	case tagSyncRequest:
		var m SyncRequest
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, protoErrWrap(ErrDeserializationFailed, "decode sync_request", err)
		}
		return m, nil
	case tagSyncResponse:
		var m SyncResponse
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, protoErrWrap(ErrDeserializationFailed, "decode sync_response", err)
		}
		return m, nil
	case tagIOUAnnouncement:
		var m IOUAnnouncement
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, protoErrWrap(ErrDeserializationFailed, "decode iou_announcement", err)
		}
		return m, nil
	case tagPeerAnnouncement:
		var m PeerAnnouncement
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, protoErrWrap(ErrDeserializationFailed, "decode peer_announcement", err)
		}
		return m, nil
	case tagHeartbeat:
		var m Heartbeat
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, protoErrWrap(ErrDeserializationFailed, "decode heartbeat", err)
		}
		return m, nil
	default:
		return nil, protoErr(ErrInvalidFormat, "unknown variant tag")
	}
}
