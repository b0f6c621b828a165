// File: protocol/handshake.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RFC 6455 upgrade validation and Sec-WebSocket-Key/Accept negotiation.

package protocol

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
)

const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	HeaderConnection         = "Connection"
	HeaderUpgrade            = "Upgrade"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	RequiredWebSocketVersion = "13"
)

var (
	ErrInvalidUpgradeHeaders = fmt.Errorf("invalid WebSocket upgrade headers")
	ErrMissingWebSocketKey   = fmt.Errorf("missing Sec-WebSocket-Key header")
	ErrBadWebSocketVersion   = fmt.Errorf("unsupported WebSocket version; only '13' is supported")
	ErrNotGet                = fmt.Errorf("upgrade request must use GET")
)

// IsUpgrade reports whether the request asks for a WebSocket upgrade at
// all. Non-upgrade requests get the plain HTTP fallback instead.
func IsUpgrade(req *Request) bool {
	return req.HasToken(HeaderUpgrade, "websocket")
}

// ValidateUpgrade checks the upgrade request and returns the computed
// Sec-WebSocket-Accept value on success.
func ValidateUpgrade(req *Request) (string, error) {
	if req.Method != "GET" {
		return "", ErrNotGet
	}
	if !req.HasToken(HeaderConnection, "Upgrade") || !req.HasToken(HeaderUpgrade, "websocket") {
		return "", ErrInvalidUpgradeHeaders
	}
	if req.Header(HeaderSecWebSocketVer) != RequiredWebSocketVersion {
		return "", ErrBadWebSocketVersion
	}
	key := req.Header(HeaderSecWebSocketKey)
	if key == "" {
		return "", ErrMissingWebSocketKey
	}
	return AcceptKey(key), nil
}

// AcceptKey computes base64(SHA-1(key + GUID)) per RFC 6455 section 4.2.2.
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
