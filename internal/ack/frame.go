package ack

import "fmt"

// EncodeCommand builds the wire frame for a command: the acknowledgment
// id in byte 0, followed by the command body. The body is opaque here;
// only the id byte belongs to the correlation engine.
func EncodeCommand(id byte, body []byte) []byte {
	frame := make([]byte, 0, len(body)+1)
	frame = append(frame, id)
	return append(frame, body...)
}

// DecodeAck extracts the acknowledgment id from an inbound ack frame.
// Byte 0 is the id; controllers may append further bytes, which are
// ignored. An empty payload is malformed.
func DecodeAck(payload []byte) (byte, error) {
	if len(payload) == 0 {
		return 0, fmt.Errorf("%w: empty payload", errMalformedFrame)
	}
	return payload[0], nil
}
