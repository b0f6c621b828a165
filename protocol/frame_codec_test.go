// File: protocol/frame_codec_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol_test

import (
	"bytes"
	"testing"

	"github.com/momentics/actorws/protocol"
)

// collect runs a byte stream through a FrameDecoder the way a connection
// does: accumulate, feed, discard consumed on completion.
func collect(t *testing.T, stream []byte, chunk int) []*protocol.Frame {
	t.Helper()
	dec := &protocol.FrameDecoder{MaxPayload: 1 << 20}
	var buf []byte
	var frames []*protocol.Frame

	feed := func() {
		for {
			res := dec.Feed(buf)
			switch res.Status {
			case protocol.Done:
				frames = append(frames, res.Unit.(*protocol.Frame))
				buf = buf[res.Consumed:]
			case protocol.Incomplete:
				return
			case protocol.Invalid:
				t.Fatalf("unexpected invalid: %v", res.Reason)
			}
		}
	}

	for off := 0; off < len(stream); off += chunk {
		end := off + chunk
		if end > len(stream) {
			end = len(stream)
		}
		buf = append(buf, stream[off:end]...)
		feed()
	}
	if len(stream) == 0 {
		feed()
	}
	return frames
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	// Sizes straddle every length-field boundary.
	for _, size := range []int{0, 125, 126, 65535, 65536} {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i)
		}
		raw := protocol.EncodeFrame(protocol.OpcodeBinary, true, payload)

		dec := &protocol.FrameDecoder{}
		res := dec.Feed(raw)
		if res.Status != protocol.Done {
			t.Fatalf("size %d: status %v", size, res.Status)
		}
		if res.Consumed != len(raw) {
			t.Fatalf("size %d: consumed %d of %d", size, res.Consumed, len(raw))
		}
		frame := res.Unit.(*protocol.Frame)
		if frame.Opcode != protocol.OpcodeBinary || !frame.Fin {
			t.Fatalf("size %d: opcode/fin mismatch", size)
		}
		if !bytes.Equal(frame.Payload, payload) {
			t.Fatalf("size %d: payload mismatch", size)
		}
	}
}

func TestChunkBoundaryInvariance(t *testing.T) {
	var stream []byte
	payloads := [][]byte{
		[]byte("alpha"),
		bytes.Repeat([]byte("b"), 200),
		bytes.Repeat([]byte("c"), 70000),
		{},
	}
	for _, p := range payloads {
		stream = append(stream, protocol.EncodeFrame(protocol.OpcodeText, true, p)...)
	}

	whole := collect(t, stream, len(stream))
	for _, chunk := range []int{1, 2, 3, 7, 1024} {
		split := collect(t, stream, chunk)
		if len(split) != len(whole) {
			t.Fatalf("chunk %d: got %d frames, want %d", chunk, len(split), len(whole))
		}
		for i := range whole {
			if !bytes.Equal(split[i].Payload, whole[i].Payload) {
				t.Fatalf("chunk %d: frame %d payload differs", chunk, i)
			}
			if split[i].Opcode != whole[i].Opcode {
				t.Fatalf("chunk %d: frame %d opcode differs", chunk, i)
			}
		}
	}
}

func TestDecodeMaskedFrame(t *testing.T) {
	payload := []byte("masked payload")
	key := [4]byte{0xA1, 0xB2, 0xC3, 0xD4}
	raw := protocol.EncodeMaskedFrame(protocol.OpcodeText, true, key, payload)

	dec := &protocol.FrameDecoder{}
	res := dec.Feed(raw)
	if res.Status != protocol.Done {
		t.Fatalf("status %v", res.Status)
	}
	frame := res.Unit.(*protocol.Frame)
	if !frame.Masked {
		t.Fatal("mask flag lost")
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("unmasked payload mismatch: %q", frame.Payload)
	}
}

func TestFragmentMarking(t *testing.T) {
	first := protocol.EncodeFrame(protocol.OpcodeText, false, []byte("hel"))
	last := protocol.EncodeFrame(protocol.OpcodeContinuation, true, []byte("lo"))

	dec := &protocol.FrameDecoder{}
	res := dec.Feed(first)
	if res.Status != protocol.Done {
		t.Fatalf("status %v", res.Status)
	}
	if f := res.Unit.(*protocol.Frame); !f.IsFragment() {
		t.Fatal("non-final frame not marked as fragment")
	}
	res = dec.Feed(last)
	if res.Status != protocol.Done {
		t.Fatalf("status %v", res.Status)
	}
	if f := res.Unit.(*protocol.Frame); !f.IsFragment() {
		t.Fatal("continuation frame not marked as fragment")
	}
}

func TestRejectReservedBits(t *testing.T) {
	raw := protocol.EncodeFrame(protocol.OpcodeText, true, []byte("x"))
	raw[0] |= 0x40 // RSV1

	dec := &protocol.FrameDecoder{}
	if res := dec.Feed(raw); res.Status != protocol.Invalid {
		t.Fatalf("reserved bits accepted: %v", res.Status)
	}
}

func TestRejectFragmentedControlFrame(t *testing.T) {
	raw := protocol.EncodeFrame(protocol.OpcodePing, false, []byte("x"))

	dec := &protocol.FrameDecoder{}
	if res := dec.Feed(raw); res.Status != protocol.Invalid {
		t.Fatalf("fragmented ping accepted: %v", res.Status)
	}
}

func TestRejectOversizedFrame(t *testing.T) {
	raw := protocol.EncodeFrame(protocol.OpcodeBinary, true, make([]byte, 2048))

	dec := &protocol.FrameDecoder{MaxPayload: 1024}
	if res := dec.Feed(raw); res.Status != protocol.Invalid {
		t.Fatalf("oversized frame accepted: %v", res.Status)
	}
}

func TestHeaderParsedOnceAcrossFeeds(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 300)
	raw := protocol.EncodeFrame(protocol.OpcodeBinary, true, payload)

	dec := &protocol.FrameDecoder{}
	// Header complete, payload missing: decoder must suspend.
	if res := dec.Feed(raw[:10]); res.Status != protocol.Incomplete {
		t.Fatalf("status %v", res.Status)
	}
	// Full buffer on the next feed completes the frame.
	res := dec.Feed(raw)
	if res.Status != protocol.Done {
		t.Fatalf("status %v", res.Status)
	}
	if !bytes.Equal(res.Unit.(*protocol.Frame).Payload, payload) {
		t.Fatal("payload mismatch after suspended header")
	}
}
