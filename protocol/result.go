// File: protocol/result.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

// ParseStatus is the tri-state outcome of feeding a decoder.
type ParseStatus int

const (
	// Incomplete: the decoder suspended; keep the buffered bytes and feed
	// again once more arrive.
	Incomplete ParseStatus = iota
	// Done: a full unit was decoded; the caller must discard Consumed
	// bytes and keep the remainder for the next unit.
	Done
	// Invalid: malformed input; the connection closes with a protocol error.
	Invalid
)

// ParseResult reports one decoding step. Unit is *Request or *Frame when
// Status is Done; Reason is set when Status is Invalid.
type ParseResult struct {
	Status   ParseStatus
	Unit     any
	Consumed int
	Reason   error
}

func incompleteResult() ParseResult {
	return ParseResult{Status: Incomplete}
}

func doneResult(unit any, consumed int) ParseResult {
	return ParseResult{Status: Done, Unit: unit, Consumed: consumed}
}

func invalidResult(reason error) ParseResult {
	return ParseResult{Status: Invalid, Reason: reason}
}
