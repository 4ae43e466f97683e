//go:build !linux

package eventloop

import (
	"sync"

	"golang.org/x/sys/unix"
)

// pollPoller implements Poller with unix.Poll, the portable but
// functionally equivalent fallback to loop_linux.go's epoll
// implementation (SPEC_FULL.md §4.6). It rebuilds the pollfd slice on
// every Wait call since unix.Poll takes no persistent registration.
type pollPoller struct {
	mu        sync.Mutex
	interests map[int]Interest
	stopR     int
	stopW     int
}

// NewPoller returns a unix.Poll-backed Poller.
func NewPoller() (Poller, error) {
	fds, err := unixPipe()
	if err != nil {
		return nil, err
	}
	return &pollPoller{
		interests: make(map[int]Interest),
		stopR:     fds[0],
		stopW:     fds[1],
	}, nil
}

func unixPipe() ([2]int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return [2]int{}, err
	}
	return fds, nil
}

func (p *pollPoller) Add(fd int, interest Interest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interests[fd] = interest
	return nil
}

func (p *pollPoller) Modify(fd int, interest Interest) error {
	return p.Add(fd, interest)
}

func (p *pollPoller) Remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.interests, fd)
	return nil
}

func (p *pollPoller) Wait() ([]Event, error) {
	p.mu.Lock()
	pfds := make([]unix.PollFd, 0, len(p.interests)+1)
	pfds = append(pfds, unix.PollFd{Fd: int32(p.stopR), Events: unix.POLLIN})
	for fd, interest := range p.interests {
		var events int16
		if interest.Readable {
			events |= unix.POLLIN
		}
		if interest.Writable {
			events |= unix.POLLOUT
		}
		pfds = append(pfds, unix.PollFd{Fd: int32(fd), Events: events})
	}
	p.mu.Unlock()

	for {
		_, err := unix.Poll(pfds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	events := make([]Event, 0, len(pfds))
	for _, pfd := range pfds {
		if pfd.Revents == 0 {
			continue
		}
		if int(pfd.Fd) == p.stopR {
			return nil, nil
		}
		events = append(events, Event{
			FD:       int(pfd.Fd),
			Readable: pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0,
			Writable: pfd.Revents&unix.POLLOUT != 0,
			Hangup:   pfd.Revents&unix.POLLHUP != 0,
		})
	}
	return events, nil
}

// Close signals a blocked Wait to return by writing to the stop pipe,
// then closes both pipe ends. Mirrors loop_linux.go's stopFD pattern.
func (p *pollPoller) Close() error {
	var buf [1]byte
	_, _ = unix.Write(p.stopW, buf[:])
	unix.Close(p.stopW)
	return unix.Close(p.stopR)
}
