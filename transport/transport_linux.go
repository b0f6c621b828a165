//go:build linux
// +build linux

// File: transport/transport_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux socket plumbing via golang.org/x/sys/unix. Sockets are created
// with SOCK_NONBLOCK|SOCK_CLOEXEC so no descriptor can ever park a worker.

package transport

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/momentics/actorws/api"
)

const listenBacklog = 1024

func listen(addr string) (*Listener, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("listen addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("listen port %q: %w", portStr, err)
	}
	var ip [4]byte
	if host != "" {
		parsed := net.ParseIP(host)
		if parsed == nil {
			return nil, fmt.Errorf("listen host %q: not an IP address", host)
		}
		v4 := parsed.To4()
		if v4 == nil {
			return nil, fmt.Errorf("listen host %q: IPv4 required", host)
		}
		copy(ip[:], v4)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	actual := addr
	if in4, ok := bound.(*unix.SockaddrInet4); ok {
		actual = net.JoinHostPort(net.IP(in4.Addr[:]).String(), strconv.Itoa(in4.Port))
	}
	return &Listener{fd: fd, addr: actual}, nil
}

// Accept takes one pending connection off the listener, non-blocking.
// TCP_NODELAY is set on the accepted socket.
func (l *Listener) Accept() (int, error) {
	fd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return -1, api.ErrWouldBlock
		}
		return -1, &api.IoError{Fd: l.fd, Op: "accept", Err: err}
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return fd, nil
}

// Close shuts the listening socket down.
func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

type osSock struct{}

func (osSock) Read(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, api.ErrWouldBlock
		}
		return 0, &api.IoError{Fd: fd, Op: "read", Err: err}
	}
	return n, nil
}

func (osSock) Write(fd int, p []byte) (int, error) {
	n, err := unix.Write(fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, api.ErrWouldBlock
		}
		return 0, &api.IoError{Fd: fd, Op: "write", Err: err}
	}
	return n, nil
}

func (osSock) Close(fd int) error {
	return unix.Close(fd)
}
