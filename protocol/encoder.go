// File: protocol/encoder.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pure, total encoding of server-to-client wire bytes. Server frames are
// never masked per RFC 6455. Every function returns exactly one complete
// byte sequence for a valid input; there are no partial outputs.

package protocol

import (
	"encoding/binary"
	"fmt"
)

// EncodeFrame serializes one unmasked frame with the narrowest length
// encoding that fits the payload.
func EncodeFrame(opcode byte, fin bool, payload []byte) []byte {
	b0 := opcode & 0x0F
	if fin {
		b0 |= FinBit
	}
	plen := len(payload)

	var out []byte
	switch {
	case plen <= 125:
		out = make([]byte, 2+plen)
		out[0] = b0
		out[1] = byte(plen)
		copy(out[2:], payload)
	case plen <= 0xFFFF:
		out = make([]byte, 4+plen)
		out[0] = b0
		out[1] = 126
		binary.BigEndian.PutUint16(out[2:], uint16(plen))
		copy(out[4:], payload)
	default:
		out = make([]byte, 10+plen)
		out[0] = b0
		out[1] = 127
		binary.BigEndian.PutUint64(out[2:], uint64(plen))
		copy(out[10:], payload)
	}
	return out
}

// EncodeClose serializes a close frame carrying a status code and an
// optional reason, truncated to the control-frame payload cap.
func EncodeClose(code uint16, reason string) []byte {
	if len(reason) > MaxControlPayloadLen-2 {
		reason = reason[:MaxControlPayloadLen-2]
	}
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, code)
	copy(payload[2:], reason)
	return EncodeFrame(OpcodeClose, true, payload)
}

// EncodeMaskedFrame serializes a client-to-server frame with the given
// mask key applied to the payload. Used by test clients.
func EncodeMaskedFrame(opcode byte, fin bool, key [4]byte, payload []byte) []byte {
	masked := make([]byte, len(payload))
	copy(masked, payload)
	ApplyMask(key, masked)

	raw := EncodeFrame(opcode, fin, masked)
	hdrLen := len(raw) - len(masked)
	out := make([]byte, len(raw)+4)
	copy(out, raw[:hdrLen])
	out[1] |= MaskBit
	copy(out[hdrLen:], key[:])
	copy(out[hdrLen+4:], masked)
	return out
}

// HandshakeResponse builds the fixed 101 Switching Protocols response
// for a validated upgrade, with the computed accept key.
func HandshakeResponse(acceptKey string) []byte {
	return []byte(fmt.Sprintf(
		"HTTP/1.1 101 Switching Protocols\r\n"+
			"Upgrade: websocket\r\n"+
			"Connection: Upgrade\r\n"+
			"Sec-WebSocket-Accept: %s\r\n\r\n", acceptKey))
}

// FallbackResponse builds the fixed keep-alive response served to plain
// HTTP requests that arrive on the WebSocket port.
func FallbackResponse(body []byte) []byte {
	head := fmt.Sprintf(
		"HTTP/1.1 200 OK\r\n"+
			"Content-Type: text/html\r\n"+
			"Connection: keep-alive\r\n"+
			"Content-Length: %d\r\n\r\n", len(body))
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	return append(out, body...)
}

// ErrorResponse builds a closing error response for a failed handshake.
func ErrorResponse(status int, reason string) []byte {
	return []byte(fmt.Sprintf(
		"HTTP/1.1 %d %s\r\n"+
			"Connection: close\r\n"+
			"Content-Length: 0\r\n\r\n", status, reason))
}
