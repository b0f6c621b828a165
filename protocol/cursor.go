// File: protocol/cursor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cursor is the shared input window the parser primitives consume from.
// A primitive that runs out of input fails with errNeedMore; the decoder
// driving the cursor rewinds to its last commit point and suspends, so a
// later Feed resumes exactly where validated input ended.

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// errNeedMore suspends parsing: the buffered bytes end mid-unit.
var errNeedMore = errors.New("need more input")

var crlf = []byte{'\r', '\n'}

// Cursor tracks a parse position over the caller-retained buffer.
//
// scanned records how far the CRLF search has already looked, so a
// suspended line parse never re-scans bytes it has inspected before.
type Cursor struct {
	buf     []byte
	pos     int
	scanned int
}

// NewCursor positions a cursor at pos within buf, carrying over the
// scan high-water mark from a previous suspension.
func NewCursor(buf []byte, pos, scanned int) *Cursor {
	if scanned < pos {
		scanned = pos
	}
	return &Cursor{buf: buf, pos: pos, scanned: scanned}
}

// Pos returns the current consume offset.
func (c *Cursor) Pos() int { return c.pos }

// Scanned returns the CRLF-search high-water mark.
func (c *Cursor) Scanned() int { return c.scanned }

// Rewind moves the consume offset back to a previous commit point.
func (c *Cursor) Rewind(pos int) { c.pos = pos }

// Remaining reports how many unconsumed bytes the window holds.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

func (c *Cursor) take(n int) ([]byte, error) {
	if c.pos+n > len(c.buf) {
		return nil, errNeedMore
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *Cursor) u8() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) u16be() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *Cursor) u64be() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// line consumes one CRLF-terminated line and returns it without the
// terminator. The search resumes from the high-water mark, stepping one
// byte back so a CRLF split across two feeds is still found.
func (c *Cursor) line() ([]byte, error) {
	from := c.pos
	if c.scanned > from {
		from = c.scanned - 1
	}
	idx := bytes.Index(c.buf[from:], crlf)
	if idx < 0 {
		c.scanned = len(c.buf)
		return nil, errNeedMore
	}
	end := from + idx
	out := c.buf[c.pos:end]
	c.pos = end + 2
	c.scanned = c.pos
	return out, nil
}
