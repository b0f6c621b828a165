// File: protocol/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WebSocket frame unit and its incremental decoder. The header is parsed
// once through the combinator pipeline and cached while the decoder waits
// for the payload, so a frame spanning many reads is never re-parsed.

package protocol

import "fmt"

// Frame is one decoded WebSocket frame. Payload is unmasked and owned by
// the receiver: the decoder copies it out of the read buffer, so it is
// safe to transfer across workers as a message payload.
type Frame struct {
	Fin     bool
	Opcode  byte
	Masked  bool
	MaskKey [4]byte
	Payload []byte
}

// IsControl reports whether the opcode names a control frame.
func (f *Frame) IsControl() bool { return f.Opcode&0x8 != 0 }

// IsFragment reports whether the frame is part of a fragmented message
// and requires reassembly before it can surface as an actor message.
func (f *Frame) IsFragment() bool {
	return !f.Fin || f.Opcode == OpcodeContinuation
}

type frameHeader struct {
	fin     bool
	opcode  byte
	masked  bool
	length  int64
	maskKey [4]byte
}

// payloadLenParser selects the 7-bit inline, 16-bit or 64-bit extended
// length encoding based on the low seven bits of the second header byte.
func payloadLenParser(low7 byte) parser[int64] {
	switch low7 {
	case 126:
		return pmap(pu16be(), func(v uint16) int64 { return int64(v) })
	case 127:
		return pguard(
			pmap(pu64be(), func(v uint64) int64 { return int64(v) }),
			func(v int64) bool { return v >= 0 },
			"negative 64-bit payload length",
		)
	default:
		return pure(int64(low7))
	}
}

// maskKeyParser reads the 32-bit masking key when the mask bit is set.
func maskKeyParser(masked bool) parser[[4]byte] {
	if !masked {
		return pure([4]byte{})
	}
	return pmap(ptake(4), func(b []byte) [4]byte {
		var k [4]byte
		copy(k[:], b)
		return k
	})
}

// frameHeaderParser decodes the full frame header: two fixed bytes, the
// extended length and the optional mask key, with the RSV-bit and
// control-frame rules enforced inline.
var frameHeaderParser parser[frameHeader] = pbind(
	pguard(pu8(), func(b0 byte) bool { return b0&RsvBits == 0 }, "reserved bits set"),
	func(b0 byte) parser[frameHeader] {
		return pbind(pu8(), func(b1 byte) parser[frameHeader] {
			masked := b1&MaskBit != 0
			return pguard(
				pseq(payloadLenParser(b1&0x7F), maskKeyParser(masked),
					func(length int64, key [4]byte) frameHeader {
						return frameHeader{
							fin:     b0&FinBit != 0,
							opcode:  b0 & 0x0F,
							masked:  masked,
							length:  length,
							maskKey: key,
						}
					}),
				func(h frameHeader) bool {
					if h.opcode&0x8 == 0 {
						return true
					}
					return h.fin && h.length <= MaxControlPayloadLen
				},
				"fragmented or oversized control frame",
			)
		})
	},
)

// FrameDecoder incrementally decodes WebSocket frames out of a growing
// byte buffer. Zero value is ready to use with the default payload cap.
type FrameDecoder struct {
	// MaxPayload bounds a single frame's payload; 0 means
	// DefaultMaxFramePayload.
	MaxPayload int64

	hdr    *frameHeader
	hdrLen int
}

func (d *FrameDecoder) maxPayload() int64 {
	if d.MaxPayload > 0 {
		return d.MaxPayload
	}
	return DefaultMaxFramePayload
}

// Feed attempts to decode one frame from buf. buf must start at the first
// unconsumed byte of the stream and must be retained by the caller across
// Incomplete results.
func (d *FrameDecoder) Feed(buf []byte) ParseResult {
	if d.hdr == nil {
		cur := NewCursor(buf, 0, 0)
		hdr, err := frameHeaderParser(cur)
		switch {
		case err == errNeedMore:
			return incompleteResult()
		case err != nil:
			return invalidResult(err)
		}
		if hdr.length > d.maxPayload() {
			return invalidResult(invalid(fmt.Sprintf("frame payload %d exceeds limit %d", hdr.length, d.maxPayload())))
		}
		d.hdr = &hdr
		d.hdrLen = cur.Pos()
	}

	total := d.hdrLen + int(d.hdr.length)
	if len(buf) < total {
		return incompleteResult()
	}

	payload := make([]byte, d.hdr.length)
	copy(payload, buf[d.hdrLen:total])
	if d.hdr.masked {
		ApplyMask(d.hdr.maskKey, payload)
	}

	frame := &Frame{
		Fin:     d.hdr.fin,
		Opcode:  d.hdr.opcode,
		Masked:  d.hdr.masked,
		MaskKey: d.hdr.maskKey,
		Payload: payload,
	}
	d.hdr = nil
	d.hdrLen = 0
	return doneResult(frame, total)
}

// ApplyMask XORs p in place with the rolling 4-byte mask key. Applying it
// twice restores the original bytes, so the same routine masks and unmasks.
func ApplyMask(key [4]byte, p []byte) {
	for i := range p {
		p[i] ^= key[i&3]
	}
}
