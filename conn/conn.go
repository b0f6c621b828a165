// File: conn/conn.go
// Package conn implements the per-socket state machine driving the
// incremental decoders off readiness events.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Conn is exclusively owned by the worker its descriptor is assigned
// to; nothing here is safe for concurrent use and nothing here blocks.
// Reads and writes are attempted opportunistically after a readiness
// signal and a would-block outcome re-arms interest and yields.

package conn

import (
	"log"

	"github.com/momentics/actorws/actor"
	"github.com/momentics/actorws/api"
	"github.com/momentics/actorws/protocol"
)

// Phase is the connection lifecycle state.
type Phase int32

const (
	Accepted Phase = iota
	HandshakePending
	Open
	Closing
	Closed
)

func (p Phase) String() string {
	switch p {
	case Accepted:
		return "accepted"
	case HandshakePending:
		return "handshake-pending"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// MessageHandler receives each complete, reassembled inbound message.
type MessageHandler func(c *Conn, opcode byte, payload []byte)

// CloseHandler fires exactly once when the connection reaches Closed.
type CloseHandler func(c *Conn)

// Conn is one accepted socket: buffers, protocol phase, decoder cursors
// and the addresses of the two actors serving it.
type Conn struct {
	fd     int
	sock   api.Sock
	poller api.Poller

	readLimit  int
	writeLimit int
	fallback   []byte

	phase Phase
	rbuf  []byte
	wbuf  []byte

	reqDec   protocol.RequestDecoder
	frameDec protocol.FrameDecoder

	fragActive bool
	fragOp     byte
	frag       []byte

	interest api.Interest

	// App is the application actor processing inbound messages; Egress
	// is the actor whose mailbox feeds this connection's write buffer.
	App    actor.Address
	Egress actor.Address

	onMessage MessageHandler
	onClosed  CloseHandler
}

// Option customizes a Conn at construction.
type Option func(*Conn)

// WithBufferLimits caps the read and write buffers.
func WithBufferLimits(read, write int) Option {
	return func(c *Conn) {
		c.readLimit = read
		c.writeLimit = write
	}
}

// WithMaxFramePayload caps a single inbound frame.
func WithMaxFramePayload(n int64) Option {
	return func(c *Conn) { c.frameDec.MaxPayload = n }
}

// WithFallbackBody sets the plain-HTTP fallback response body.
func WithFallbackBody(body []byte) Option {
	return func(c *Conn) { c.fallback = body }
}

// WithMessageHandler sets the complete-message callback.
func WithMessageHandler(h MessageHandler) Option {
	return func(c *Conn) { c.onMessage = h }
}

// WithCloseHandler sets the teardown callback.
func WithCloseHandler(h CloseHandler) Option {
	return func(c *Conn) { c.onClosed = h }
}

// New creates a connection state machine for an accepted descriptor.
func New(fd int, sock api.Sock, poller api.Poller, opts ...Option) *Conn {
	c := &Conn{
		fd:         fd,
		sock:       sock,
		poller:     poller,
		readLimit:  1 << 22,
		writeLimit: 1 << 22,
		fallback:   []byte("hello\n"),
		phase:      Accepted,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fd returns the descriptor.
func (c *Conn) Fd() int { return c.fd }

// Phase returns the current lifecycle phase.
func (c *Conn) Phase() Phase { return c.phase }

// Register arms the descriptor for readability with the multiplexer.
func (c *Conn) Register() error {
	c.interest = api.Interest{Readable: true}
	return c.poller.Register(c.fd, c.interest)
}

// OnReadable drains the socket into the read buffer until it would
// block, then advances the decoders. scratch is a reusable read chunk.
func (c *Conn) OnReadable(scratch []byte) {
	if c.phase == Closed {
		return
	}
	if c.phase == Accepted {
		c.phase = HandshakePending
	}

	peerClosed := false
	for {
		n, err := c.sock.Read(c.fd, scratch)
		if err == api.ErrWouldBlock {
			break
		}
		if err != nil {
			c.CloseNow()
			return
		}
		if n == 0 {
			peerClosed = true
			break
		}
		if len(c.rbuf)+n > c.readLimit {
			c.failCapacity("read buffer", c.readLimit)
			return
		}
		c.rbuf = append(c.rbuf, scratch[:n]...)
	}

	c.advance()
	if peerClosed && c.phase != Closed {
		c.CloseNow()
	}
}

// OnWritable flushes pending outbound bytes.
func (c *Conn) OnWritable() {
	if c.phase == Closed {
		return
	}
	c.flush()
}

// OnError handles a descriptor-level error event: immediate teardown.
func (c *Conn) OnError() {
	c.CloseNow()
}

// advance feeds buffered input through the decoder for the current
// phase until it suspends, then flushes whatever output got queued.
func (c *Conn) advance() {
	for c.phase == HandshakePending && len(c.rbuf) > 0 {
		res := c.reqDec.Feed(c.rbuf)
		if res.Status == protocol.Incomplete {
			break
		}
		if res.Status == protocol.Invalid {
			c.queueWrite(protocol.ErrorResponse(400, "Bad Request"))
			c.phase = Closing
			break
		}
		c.discard(res.Consumed)
		c.handleRequest(res.Unit.(*protocol.Request))
	}

	for c.phase == Open && len(c.rbuf) > 0 {
		res := c.frameDec.Feed(c.rbuf)
		if res.Status == protocol.Incomplete {
			break
		}
		if res.Status == protocol.Invalid {
			c.queueWrite(protocol.EncodeClose(protocol.CloseProtocolError, ""))
			c.phase = Closing
			break
		}
		c.discard(res.Consumed)
		c.handleFrame(res.Unit.(*protocol.Frame))
	}

	c.flush()
}

// handleRequest resolves one decoded HTTP request: upgrade to WebSocket,
// serve the plain fallback, or reject.
func (c *Conn) handleRequest(req *protocol.Request) {
	if !protocol.IsUpgrade(req) {
		// Keep-alive: the connection stays in HandshakePending awaiting
		// either another plain request or an upgrade.
		c.queueWrite(protocol.FallbackResponse(c.fallback))
		return
	}
	accept, err := protocol.ValidateUpgrade(req)
	if err != nil {
		c.queueWrite(protocol.ErrorResponse(400, "Bad Request"))
		c.phase = Closing
		return
	}
	c.queueWrite(protocol.HandshakeResponse(accept))
	c.phase = Open
}

// handleFrame applies WebSocket opcode semantics and fragment
// reassembly. Only complete messages surface to the actor layer.
func (c *Conn) handleFrame(f *protocol.Frame) {
	switch f.Opcode {
	case protocol.OpcodePing:
		c.queueWrite(protocol.EncodeFrame(protocol.OpcodePong, true, f.Payload))
	case protocol.OpcodePong:
		// Unsolicited pongs are permitted noise.
	case protocol.OpcodeClose:
		c.queueWrite(protocol.EncodeFrame(protocol.OpcodeClose, true, f.Payload))
		c.phase = Closing
	case protocol.OpcodeText, protocol.OpcodeBinary:
		if c.fragActive {
			// A new data frame may not interleave with an unfinished
			// fragmented message.
			c.failProtocol()
			return
		}
		if !f.Fin {
			c.fragActive = true
			c.fragOp = f.Opcode
			c.frag = append(c.frag[:0], f.Payload...)
			return
		}
		c.deliver(f.Opcode, f.Payload)
	case protocol.OpcodeContinuation:
		if !c.fragActive {
			c.failProtocol()
			return
		}
		if len(c.frag)+len(f.Payload) > c.readLimit {
			c.failCapacity("message reassembly", c.readLimit)
			return
		}
		c.frag = append(c.frag, f.Payload...)
		if f.Fin {
			msg := c.frag
			c.frag = nil
			c.fragActive = false
			c.deliver(c.fragOp, msg)
		}
	default:
		c.failProtocol()
	}
}

// discard drops n consumed bytes from the front of the read buffer,
// keeping the backing array for the remainder.
func (c *Conn) discard(n int) {
	c.rbuf = append(c.rbuf[:0], c.rbuf[n:]...)
}

func (c *Conn) deliver(opcode byte, payload []byte) {
	if c.onMessage != nil {
		c.onMessage(c, opcode, payload)
	}
}

// QueueFrame encodes and queues one outbound frame, then flushes
// opportunistically. Called by the connection's egress actor, which runs
// on the owning worker.
func (c *Conn) QueueFrame(opcode byte, payload []byte) {
	if c.phase != Open && c.phase != Closing {
		return
	}
	c.queueWrite(protocol.EncodeFrame(opcode, true, payload))
	if opcode == protocol.OpcodeClose {
		c.phase = Closing
	}
	c.flush()
}

// CloseWith queues a close frame with the given status and starts the
// Closing flush.
func (c *Conn) CloseWith(code uint16, reason string) {
	if c.phase != Open {
		return
	}
	c.queueWrite(protocol.EncodeClose(code, reason))
	c.phase = Closing
	c.flush()
}

func (c *Conn) queueWrite(b []byte) {
	if c.phase == Closed {
		return
	}
	if len(c.wbuf)+len(b) > c.writeLimit {
		c.failCapacity("write buffer", c.writeLimit)
		return
	}
	c.wbuf = append(c.wbuf, b...)
}

// flush writes as much of the pending buffer as the socket accepts,
// re-arms interest to match what is left, and completes a close once
// the buffer drains.
func (c *Conn) flush() {
	if c.phase == Closed {
		return
	}
	for len(c.wbuf) > 0 {
		n, err := c.sock.Write(c.fd, c.wbuf)
		if err == api.ErrWouldBlock {
			break
		}
		if err != nil {
			c.CloseNow()
			return
		}
		c.wbuf = append(c.wbuf[:0], c.wbuf[n:]...)
	}

	if c.phase == Closing && len(c.wbuf) == 0 {
		c.CloseNow()
		return
	}
	c.updateInterest()
}

func (c *Conn) updateInterest() {
	want := api.Interest{
		Readable: c.phase == Accepted || c.phase == HandshakePending || c.phase == Open,
		Writable: len(c.wbuf) > 0,
	}
	if want != c.interest {
		c.interest = want
		if err := c.poller.Reregister(c.fd, want); err != nil {
			c.CloseNow()
		}
	}
}

func (c *Conn) failProtocol() {
	c.queueWrite(protocol.EncodeClose(protocol.CloseProtocolError, ""))
	c.phase = Closing
}

func (c *Conn) failCapacity(kind string, limit int) {
	err := &api.CapacityError{Kind: kind, Limit: limit}
	log.Printf("[conn %d] %v", c.fd, err)
	if c.phase == Open {
		c.queueWrite(protocol.EncodeClose(protocol.CloseMessageTooBig, ""))
	}
	c.phase = Closing
	c.flush()
}

// CloseNow deregisters, closes the descriptor and discards all buffered
// state, including any partial fragment reassembly. Idempotent.
func (c *Conn) CloseNow() {
	if c.phase == Closed {
		return
	}
	c.phase = Closed
	_ = c.poller.Deregister(c.fd)
	_ = c.sock.Close(c.fd)
	c.rbuf = nil
	c.wbuf = nil
	c.frag = nil
	c.fragActive = false
	if c.onClosed != nil {
		c.onClosed(c)
	}
}
