package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/transport"
	"golang.org/x/sys/unix"
	"time"
)

// Poller waits for readiness with poll(2). The set of connections is passed on every
// call, so connections added or removed between two waits need no registration.
type Poller struct{}

// NewPoller creates a new poll(2) based poller
func NewPoller() *Poller {
	return &Poller{}
}

// Wait implements transport.IPoller
func (p *Poller) Wait(read []transport.IConn, write []transport.IConn, timeout time.Duration) (transport.Readiness, error) {
	fds := make([]unix.PollFd, 0, len(read)+len(write))
	conns := make([]transport.IConn, 0, len(read)+len(write))
	index := make(map[int]int, len(read)+len(write)) // fd -> position in fds

	add := func(c transport.IConn, events int16) {
		fd := c.Fd()
		if i, ok := index[fd]; ok {
			fds[i].Events |= events
			return
		}
		index[fd] = len(fds)
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
		conns = append(conns, c)
	}
	for _, c := range read {
		add(c, unix.POLLIN)
	}
	for _, c := range write {
		add(c, unix.POLLOUT)
	}

	n, err := unix.Poll(fds, pollTimeoutMillis(timeout))
	if errors.Is(err, unix.EINTR) {
		// Interrupted by a signal, the caller simply pumps again
		return transport.Readiness{}, nil
	}
	if err != nil {
		return transport.Readiness{}, fmt.Errorf("transport: poll: %w", err)
	}
	if n == 0 {
		return transport.Readiness{}, nil
	}

	var ready transport.Readiness
	for i, pfd := range fds {
		if pfd.Revents&unix.POLLIN != 0 {
			ready.Readable = append(ready.Readable, conns[i])
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			ready.Writable = append(ready.Writable, conns[i])
		}
		if pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			ready.Failed = append(ready.Failed, conns[i])
		}
	}
	return ready, nil
}
