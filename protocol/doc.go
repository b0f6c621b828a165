// File: protocol/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package protocol implements the incremental wire-format layer: a
// suspendable parser-combinator decoder for HTTP upgrade requests and
// WebSocket frames, and a pure encoder for outbound frames and handshake
// responses.
//
// Decoders consume whatever bytes the caller has buffered and either
// complete a unit, report malformed input, or suspend until more bytes
// arrive. Suspension never consumes input and never re-scans prefixes
// that were already validated, so decoding stays linear in the total
// stream length regardless of how reads are chunked.
package protocol
