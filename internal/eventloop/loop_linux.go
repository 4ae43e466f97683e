//go:build linux

package eventloop

import (
	"golang.org/x/sys/unix"
)

// epollPoller implements Poller with epoll, following the
// per-platform file-split pattern of
// pkg/shockwave/socket/tuning_linux.go.
type epollPoller struct {
	epfd int

	// stopFD is an eventfd registered for read interest; Close writes
	// to it so a blocked Wait returns instead of blocking forever.
	stopFD int
}

// NewPoller returns an epoll-backed Poller.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	stopFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	p := &epollPoller{epfd: epfd, stopFD: stopFD}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, stopFD, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(stopFD)}); err != nil {
		unix.Close(stopFD)
		unix.Close(epfd)
		return nil, err
	}
	return p, nil
}

func eventsFor(interest Interest) uint32 {
	var ev uint32
	if interest.Readable {
		ev |= unix.EPOLLIN
	}
	if interest.Writable {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) Add(fd int, interest Interest) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: eventsFor(interest), Fd: int32(fd)})
}

func (p *epollPoller) Modify(fd int, interest Interest) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: eventsFor(interest), Fd: int32(fd)})
}

func (p *epollPoller) Remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *epollPoller) Wait() ([]Event, error) {
	raw := make([]unix.EpollEvent, 128)
	for {
		n, err := unix.EpollWait(p.epfd, raw, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}

		events := make([]Event, 0, n)
		for i := 0; i < n; i++ {
			fd := int(raw[i].Fd)
			if fd == p.stopFD {
				return nil, nil
			}
			events = append(events, Event{
				FD:       fd,
				Readable: raw[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
				Writable: raw[i].Events&unix.EPOLLOUT != 0,
				Hangup:   raw[i].Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
			})
		}
		return events, nil
	}
}

// Close signals a blocked Wait to return by writing to stopFD, then
// closes the epoll fd. stopFD itself is deliberately left open: a
// concurrent Wait may still be inside epoll_wait when Close runs, and
// closing stopFD out from under it would drop the pending
// registration and could block that Wait call forever.
func (p *epollPoller) Close() error {
	var buf [8]byte
	buf[0] = 1
	_, _ = unix.Write(p.stopFD, buf[:])
	return unix.Close(p.epfd)
}
