// File: conn/conn_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package conn

import (
	"bytes"
	"strings"
	"testing"

	"github.com/momentics/actorws/api"
	"github.com/momentics/actorws/protocol"
)

const upgradeRequest = "GET /chat HTTP/1.1\r\n" +
	"Host: example.com\r\n" +
	"Upgrade: websocket\r\n" +
	"Connection: Upgrade\r\n" +
	"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
	"Sec-WebSocket-Version: 13\r\n" +
	"\r\n"

// fakeSock scripts reads and captures writes.
type fakeSock struct {
	reads       [][]byte
	eof         bool
	writes      bytes.Buffer
	blockWrites bool
	closed      bool
}

func (f *fakeSock) Read(fd int, p []byte) (int, error) {
	if len(f.reads) == 0 {
		if f.eof {
			return 0, nil
		}
		return 0, api.ErrWouldBlock
	}
	chunk := f.reads[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		f.reads[0] = chunk[n:]
	} else {
		f.reads = f.reads[1:]
	}
	return n, nil
}

func (f *fakeSock) Write(fd int, p []byte) (int, error) {
	if f.blockWrites {
		return 0, api.ErrWouldBlock
	}
	f.writes.Write(p)
	return len(p), nil
}

func (f *fakeSock) Close(fd int) error {
	f.closed = true
	return nil
}

// fakePoller records the last interest per descriptor.
type fakePoller struct {
	interest     map[int]api.Interest
	deregistered bool
}

func newFakePoller() *fakePoller {
	return &fakePoller{interest: make(map[int]api.Interest)}
}

func (f *fakePoller) Register(fd int, i api.Interest) error   { f.interest[fd] = i; return nil }
func (f *fakePoller) Reregister(fd int, i api.Interest) error { f.interest[fd] = i; return nil }
func (f *fakePoller) Deregister(fd int) error                 { f.deregistered = true; return nil }
func (f *fakePoller) Wait([]api.Event, int) (int, error)      { return 0, nil }
func (f *fakePoller) Close() error                            { return nil }

type harness struct {
	sock     *fakeSock
	poller   *fakePoller
	conn     *Conn
	messages []struct {
		opcode  byte
		payload []byte
	}
	closed  bool
	sawOpen bool
	scratch []byte
}

func newHarness(t *testing.T, reads ...[]byte) *harness {
	t.Helper()
	h := &harness{
		sock:    &fakeSock{reads: reads},
		poller:  newFakePoller(),
		scratch: make([]byte, 4096),
	}
	h.conn = New(1, h.sock, h.poller,
		WithMessageHandler(func(_ *Conn, opcode byte, payload []byte) {
			cp := append([]byte(nil), payload...)
			h.messages = append(h.messages, struct {
				opcode  byte
				payload []byte
			}{opcode, cp})
		}),
		WithCloseHandler(func(_ *Conn) { h.closed = true }),
	)
	if err := h.conn.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	return h
}

func (h *harness) readable() {
	h.conn.OnReadable(h.scratch)
	if h.conn.Phase() == Open {
		h.sawOpen = true
	}
}

func TestHandshakeReachesOpen(t *testing.T) {
	h := newHarness(t, []byte(upgradeRequest))
	h.readable()

	if h.conn.Phase() != Open {
		t.Fatalf("phase %v", h.conn.Phase())
	}
	out := h.sock.writes.String()
	if !strings.Contains(out, "101 Switching Protocols") {
		t.Fatalf("no 101 in response: %q", out)
	}
	if !strings.Contains(out, "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=") {
		t.Fatalf("wrong accept value: %q", out)
	}
}

func TestHandshakeSplitAcrossReads(t *testing.T) {
	mid := len(upgradeRequest) / 2
	h := newHarness(t, []byte(upgradeRequest[:mid]))
	h.readable()
	if h.conn.Phase() != HandshakePending {
		t.Fatalf("phase %v before full request", h.conn.Phase())
	}
	h.sock.reads = append(h.sock.reads, []byte(upgradeRequest[mid:]))
	h.readable()
	if h.conn.Phase() != Open {
		t.Fatalf("phase %v after full request", h.conn.Phase())
	}
}

func TestMissingKeyNeverOpens(t *testing.T) {
	bad := strings.Replace(upgradeRequest, "Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n", "", 1)
	h := newHarness(t, []byte(bad))
	h.readable()

	if h.sawOpen {
		t.Fatal("connection entered Open with invalid handshake")
	}
	if h.conn.Phase() != Closed {
		t.Fatalf("phase %v, want Closed", h.conn.Phase())
	}
	if !h.closed {
		t.Fatal("close handler not invoked")
	}
	if !strings.Contains(h.sock.writes.String(), "400") {
		t.Fatalf("no error response: %q", h.sock.writes.String())
	}
}

func TestPlainHTTPFallback(t *testing.T) {
	h := newHarness(t, []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	h.readable()

	out := h.sock.writes.String()
	if !strings.Contains(out, "200 OK") || !strings.Contains(out, "hello\n") {
		t.Fatalf("fallback response: %q", out)
	}
	// Keep-alive: the connection survives for the next request.
	if h.conn.Phase() != HandshakePending {
		t.Fatalf("phase %v", h.conn.Phase())
	}
}

func TestMessageDelivery(t *testing.T) {
	frame := protocol.EncodeMaskedFrame(protocol.OpcodeText, true, [4]byte{1, 2, 3, 4}, []byte("hi"))
	h := newHarness(t, []byte(upgradeRequest), frame)
	h.readable()
	h.readable()

	if len(h.messages) != 1 {
		t.Fatalf("got %d messages", len(h.messages))
	}
	m := h.messages[0]
	if m.opcode != protocol.OpcodeText || string(m.payload) != "hi" {
		t.Fatalf("message %v %q", m.opcode, m.payload)
	}
}

func TestPipelinedFramesAfterHandshake(t *testing.T) {
	// Frame bytes arriving in the same read as the request tail must be
	// preserved and parsed once the connection opens.
	frame := protocol.EncodeMaskedFrame(protocol.OpcodeBinary, true, [4]byte{9, 9, 9, 9}, []byte("early"))
	combined := append([]byte(upgradeRequest), frame...)
	h := newHarness(t, combined)
	h.readable()

	if len(h.messages) != 1 || string(h.messages[0].payload) != "early" {
		t.Fatalf("pipelined frame lost: %v", h.messages)
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	ping := protocol.EncodeMaskedFrame(protocol.OpcodePing, true, [4]byte{5, 6, 7, 8}, []byte("tick"))
	h := newHarness(t, []byte(upgradeRequest), ping)
	h.readable()
	h.sock.writes.Reset()
	h.readable()

	want := protocol.EncodeFrame(protocol.OpcodePong, true, []byte("tick"))
	if !bytes.Equal(h.sock.writes.Bytes(), want) {
		t.Fatalf("pong bytes %v, want %v", h.sock.writes.Bytes(), want)
	}
	if len(h.messages) != 0 {
		t.Fatal("ping surfaced as a message")
	}
}

func TestCloseFrameEchoedAndClosed(t *testing.T) {
	closeFrame := protocol.EncodeMaskedFrame(protocol.OpcodeClose, true, [4]byte{1, 1, 1, 1}, []byte{0x03, 0xE8})
	h := newHarness(t, []byte(upgradeRequest), closeFrame)
	h.readable()
	h.readable()

	if h.conn.Phase() != Closed {
		t.Fatalf("phase %v", h.conn.Phase())
	}
	if !h.closed || !h.sock.closed || !h.poller.deregistered {
		t.Fatal("teardown incomplete")
	}
}

func TestFragmentReassembly(t *testing.T) {
	k := [4]byte{2, 4, 6, 8}
	first := protocol.EncodeMaskedFrame(protocol.OpcodeText, false, k, []byte("hel"))
	last := protocol.EncodeMaskedFrame(protocol.OpcodeContinuation, true, k, []byte("lo"))
	h := newHarness(t, []byte(upgradeRequest), first, last)
	h.readable()
	h.readable()
	h.readable()

	if len(h.messages) != 1 {
		t.Fatalf("got %d messages, want 1 reassembled", len(h.messages))
	}
	m := h.messages[0]
	if m.opcode != protocol.OpcodeText || string(m.payload) != "hello" {
		t.Fatalf("reassembled %v %q", m.opcode, m.payload)
	}
}

func TestCloseMidFragmentDiscardsState(t *testing.T) {
	k := [4]byte{3, 3, 3, 3}
	first := protocol.EncodeMaskedFrame(protocol.OpcodeText, false, k, []byte("partial"))
	h := newHarness(t, []byte(upgradeRequest), first)
	h.readable()
	h.readable()

	h.conn.CloseNow()
	if h.conn.frag != nil || h.conn.fragActive {
		t.Fatal("fragment state leaked past close")
	}
	if len(h.messages) != 0 {
		t.Fatal("partial fragment surfaced as a message")
	}
}

func TestInterleavedDataFrameIsProtocolError(t *testing.T) {
	k := [4]byte{7, 7, 7, 7}
	first := protocol.EncodeMaskedFrame(protocol.OpcodeText, false, k, []byte("frag"))
	rogue := protocol.EncodeMaskedFrame(protocol.OpcodeText, true, k, []byte("rogue"))
	h := newHarness(t, []byte(upgradeRequest), first, rogue)
	h.readable()
	h.readable()
	h.readable()

	if h.conn.Phase() != Closed && h.conn.Phase() != Closing {
		t.Fatalf("phase %v", h.conn.Phase())
	}
	if len(h.messages) != 0 {
		t.Fatal("interleaved frame surfaced")
	}
}

func TestStrayContinuationIsProtocolError(t *testing.T) {
	stray := protocol.EncodeMaskedFrame(protocol.OpcodeContinuation, true, [4]byte{}, []byte("x"))
	h := newHarness(t, []byte(upgradeRequest), stray)
	h.readable()
	h.readable()

	if h.conn.Phase() != Closed && h.conn.Phase() != Closing {
		t.Fatalf("phase %v", h.conn.Phase())
	}
}

func TestBlockedWriteRearmsWritable(t *testing.T) {
	h := newHarness(t, []byte(upgradeRequest))
	h.sock.blockWrites = true
	h.readable()

	if got := h.poller.interest[1]; !got.Writable {
		t.Fatalf("writable interest not armed: %+v", got)
	}

	h.sock.blockWrites = false
	h.conn.OnWritable()
	if got := h.poller.interest[1]; got.Writable {
		t.Fatalf("writable interest not dropped after flush: %+v", got)
	}
	if !strings.Contains(h.sock.writes.String(), "101") {
		t.Fatal("handshake response never flushed")
	}
}

func TestPeerEOFClosesConnection(t *testing.T) {
	h := newHarness(t, []byte(upgradeRequest))
	h.readable()
	h.sock.eof = true
	h.readable()

	if h.conn.Phase() != Closed {
		t.Fatalf("phase %v", h.conn.Phase())
	}
	if !h.closed {
		t.Fatal("close handler not invoked")
	}
}

func TestQueueFrameFromEgress(t *testing.T) {
	h := newHarness(t, []byte(upgradeRequest))
	h.readable()
	h.sock.writes.Reset()

	h.conn.QueueFrame(protocol.OpcodeText, []byte("pushed"))
	want := protocol.EncodeFrame(protocol.OpcodeText, true, []byte("pushed"))
	if !bytes.Equal(h.sock.writes.Bytes(), want) {
		t.Fatalf("egress frame %v, want %v", h.sock.writes.Bytes(), want)
	}
}

func TestCloseWithFlushesAndCloses(t *testing.T) {
	h := newHarness(t, []byte(upgradeRequest))
	h.readable()

	h.conn.CloseWith(protocol.CloseGoingAway, "bye")
	if h.conn.Phase() != Closed {
		t.Fatalf("phase %v", h.conn.Phase())
	}
	if !bytes.Contains(h.sock.writes.Bytes(), []byte("bye")) {
		t.Fatal("close reason not written")
	}
}
