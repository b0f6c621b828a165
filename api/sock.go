// File: api/sock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Sock is the socket collaborator consumed by the connection state machine.
//
// Read and Write never block: when the descriptor has no data or no buffer
// space they return ErrWouldBlock. A Read of (0, nil) means the peer closed
// its end of the stream.
type Sock interface {
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	Close(fd int) error
}
