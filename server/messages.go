// File: server/messages.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The message protocol between a connection and its actors. Payloads are
// owned by the receiver: the decoder copies them out of connection
// buffers before they are sent, so no mutable aliasing crosses workers.

package server

import "github.com/momentics/actorws/actor"

// Inbound is delivered to a connection's application actor for every
// complete (reassembled) WebSocket message.
type Inbound struct {
	// From is the connection's egress address; replying to it writes
	// back to the peer.
	From    actor.Address
	Opcode  byte
	Payload []byte
}

// Outbound is accepted by a connection's egress actor: the payload is
// framed and queued on the connection's write buffer.
type Outbound struct {
	Opcode  byte
	Payload []byte
}

// CloseRequest asks the egress actor to close the connection with a
// status code after flushing pending writes.
type CloseRequest struct {
	Code   uint16
	Reason string
}
