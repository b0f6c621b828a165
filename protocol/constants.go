// File: protocol/constants.go
// Author: momentics <momentics@gmail.com>
//
// WebSocket wire protocol constants.

package protocol

const (
	OpcodeContinuation = 0x0
	OpcodeText         = 0x1
	OpcodeBinary       = 0x2
	OpcodeClose        = 0x8
	OpcodePing         = 0x9
	OpcodePong         = 0xA

	// Control frames may not exceed 125 payload bytes and may not fragment.
	MaxControlPayloadLen = 125
	MaxFrameHeaderLen    = 14

	FinBit  = 0x80
	RsvBits = 0x70
	MaskBit = 0x80

	// DefaultMaxFramePayload bounds a single frame's payload unless the
	// decoder is configured otherwise.
	DefaultMaxFramePayload = 1 << 20 // 1 MiB

	CloseNormalClosure   = 1000
	CloseGoingAway       = 1001
	CloseProtocolError   = 1002
	CloseUnsupportedData = 1003
	CloseMessageTooBig   = 1009
	CloseInternalErr     = 1011
)
