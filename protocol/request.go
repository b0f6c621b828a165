// File: protocol/request.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Incremental HTTP/1.1 request decoder for the upgrade path. Lines commit
// as they complete: a suspended decode resumes after the last parsed line
// and the CRLF scan never revisits bytes it already inspected.

package protocol

import (
	"fmt"
	"strings"
)

// DefaultMaxHeaderBytes caps the request line plus headers.
const DefaultMaxHeaderBytes = 8192

// Request is a decoded HTTP request head. Header keys are lower-cased;
// repeated headers are comma-joined in arrival order.
type Request struct {
	Method  string
	Target  string
	Proto   string
	Headers map[string]string
}

// Header returns the value for a (case-insensitive) header name.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// HasToken reports whether the named header's comma-separated value list
// contains token, case-insensitively.
func (r *Request) HasToken(name, token string) bool {
	for _, part := range strings.Split(r.Header(name), ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// requestLineParser splits "METHOD target HTTP/x.y" into its three parts.
var requestLineParser parser[[3]string] = pguard(
	pmap(pline(), func(line []byte) [3]string {
		parts := strings.Fields(string(line))
		if len(parts) != 3 {
			return [3]string{}
		}
		return [3]string{parts[0], parts[1], parts[2]}
	}),
	func(p [3]string) bool {
		return p[0] != "" && strings.HasPrefix(p[2], "HTTP/")
	},
	"malformed request line",
)

// headerLineParser yields a key/value pair, or ok=false for the blank
// line that terminates the header block.
type headerLine struct {
	key, value string
	end        bool
}

var headerLineParser parser[headerLine] = pbind(pline(), func(line []byte) parser[headerLine] {
	if len(line) == 0 {
		return pure(headerLine{end: true})
	}
	idx := strings.Index(string(line), ":")
	if idx <= 0 {
		return func(*Cursor) (headerLine, error) {
			return headerLine{}, invalid("malformed header line")
		}
	}
	return pure(headerLine{
		key:   strings.ToLower(strings.TrimSpace(string(line[:idx]))),
		value: strings.TrimSpace(string(line[idx+1:])),
	})
})

// RequestDecoder incrementally decodes one HTTP request head. It resets
// itself after Done so the same instance serves keep-alive connections.
type RequestDecoder struct {
	// MaxHeaderBytes caps the request head; 0 means DefaultMaxHeaderBytes.
	MaxHeaderBytes int

	req       *Request
	committed int
	scanned   int
}

func (d *RequestDecoder) maxHeaderBytes() int {
	if d.MaxHeaderBytes > 0 {
		return d.MaxHeaderBytes
	}
	return DefaultMaxHeaderBytes
}

// Feed attempts to advance the request decode. buf must start at the first
// unconsumed byte of the stream and be retained across Incomplete results.
func (d *RequestDecoder) Feed(buf []byte) ParseResult {
	cur := NewCursor(buf, d.committed, d.scanned)

	if d.req == nil {
		parts, err := requestLineParser(cur)
		switch {
		case err == errNeedMore:
			return d.suspend(cur, buf)
		case err != nil:
			return invalidResult(err)
		}
		d.req = &Request{
			Method:  parts[0],
			Target:  parts[1],
			Proto:   parts[2],
			Headers: make(map[string]string),
		}
		d.commit(cur)
	}

	for {
		if d.committed > d.maxHeaderBytes() {
			return invalidResult(invalid("request head too large"))
		}
		hl, err := headerLineParser(cur)
		switch {
		case err == errNeedMore:
			return d.suspend(cur, buf)
		case err != nil:
			return invalidResult(err)
		}
		d.commit(cur)
		if hl.end {
			req := d.req
			consumed := d.committed
			d.reset()
			return doneResult(req, consumed)
		}
		if prev, ok := d.req.Headers[hl.key]; ok {
			d.req.Headers[hl.key] = prev + ", " + hl.value
		} else {
			d.req.Headers[hl.key] = hl.value
		}
	}
}

func (d *RequestDecoder) suspend(cur *Cursor, buf []byte) ParseResult {
	if len(buf) > d.maxHeaderBytes() {
		return invalidResult(invalid(fmt.Sprintf("request head exceeds %d bytes", d.maxHeaderBytes())))
	}
	d.scanned = cur.Scanned()
	return incompleteResult()
}

func (d *RequestDecoder) commit(cur *Cursor) {
	d.committed = cur.Pos()
	d.scanned = cur.Pos()
}

func (d *RequestDecoder) reset() {
	d.req = nil
	d.committed = 0
	d.scanned = 0
}
