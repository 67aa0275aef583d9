package base

import (
	"errors"
	"golang.org/x/sys/unix"
	"io"
	"syscall"
	"time"
)

// errWouldBlock signals that the socket has no data to read or no room to write
var errWouldBlock = errors.New("operation would block")

// readNonBlocking performs a single read on the file descriptor of the connection.
// The Go runtime already switched the descriptor to non-blocking mode, so the
// callback returns true to never park on the runtime poller.
// Returns errWouldBlock if nothing is buffered and io.EOF if the peer closed the stream.
func readNonBlocking(raw syscall.RawConn, buf []byte) (int, error) {
	var n int
	var opErr error
	err := raw.Read(func(fd uintptr) bool {
		for {
			n, opErr = unix.Read(int(fd), buf)
			if opErr != unix.EINTR {
				return true
			}
		}
	})
	if err != nil {
		return 0, err
	}

	switch {
	case errors.Is(opErr, unix.EAGAIN), errors.Is(opErr, unix.EWOULDBLOCK):
		return 0, errWouldBlock
	case opErr != nil:
		return 0, opErr
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}

// writeNonBlocking performs a single write on the file descriptor of the connection.
// The number of written bytes may be smaller than len(data).
// Returns errWouldBlock if the socket buffer is full.
func writeNonBlocking(raw syscall.RawConn, data []byte) (int, error) {
	var n int
	var opErr error
	err := raw.Write(func(fd uintptr) bool {
		for {
			n, opErr = unix.Write(int(fd), data)
			if opErr != unix.EINTR {
				return true
			}
		}
	})
	if err != nil {
		return 0, err
	}

	switch {
	case errors.Is(opErr, unix.EAGAIN), errors.Is(opErr, unix.EWOULDBLOCK):
		return 0, errWouldBlock
	case opErr != nil:
		return 0, opErr
	}
	return n, nil
}

// pollTimeoutMillis converts a timeout to the millisecond argument of poll(2).
// Negative timeouts block forever, positive timeouts are rounded up so that short
// waits do not degrade into busy loops.
func pollTimeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout / time.Millisecond
	if timeout%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}
