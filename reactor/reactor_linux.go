//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7)-based readiness multiplexer. Level-triggered: interest
// is re-armed explicitly via Reregister, and wakeups carry no guarantee
// that data is actually present.

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/actorws/api"
)

type epollPoller struct {
	epfd    int
	scratch []unix.EpollEvent
}

func newPoller() (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollPoller{epfd: epfd}, nil
}

// epollMask translates Interest into epoll event bits. EPOLLRDHUP is
// always armed so a peer half-close surfaces as a readable event and the
// subsequent read observes EOF.
func epollMask(interest api.Interest) uint32 {
	var mask uint32 = unix.EPOLLRDHUP
	if interest.Readable {
		mask |= unix.EPOLLIN
	}
	if interest.Writable {
		mask |= unix.EPOLLOUT
	}
	return mask
}

func (p *epollPoller) Register(fd int, interest api.Interest) error {
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Reregister(fd int, interest api.Interest) error {
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Deregister(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd %d: %w", fd, err)
	}
	return nil
}

// Wait fills events with up to len(events) readiness notifications.
// EINTR is retried transparently.
func (p *epollPoller) Wait(events []api.Event, timeoutMs int) (int, error) {
	if len(p.scratch) < len(events) {
		p.scratch = make([]unix.EpollEvent, len(events))
	}
	raw := p.scratch[:len(events)]
	var n int
	var err error
	for {
		n, err = unix.EpollWait(p.epfd, raw, timeoutMs)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		bits := raw[i].Events
		events[i] = api.Event{
			Fd:       int(raw[i].Fd),
			Readable: bits&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			Writable: bits&unix.EPOLLOUT != 0,
			Err:      bits&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
	}
	return n, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
