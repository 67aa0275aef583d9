package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/ValentinKolb/nsqc/rpc/transport"
	"net"
	"sync"
	"syscall"
	"time"
)

const (
	// readChunkSize is the size of a single read syscall
	readChunkSize = 64 * 1024
	// defaultMaxFrameSize is used when no frame size limit is configured
	defaultMaxFrameSize = 1024 * 1024
)

// Conn is a non-blocking connection to a single producer. It never blocks: reads and
// writes are attempted directly on the file descriptor and give up as soon as the
// socket would block. Readiness is determined by a Poller.
type Conn struct {
	endpoint     protocol.Endpoint
	conn         net.Conn
	raw          syscall.RawConn
	fd           int
	origin       *protocol.Origin
	maxFrameSize int

	readBuf []byte // scratch buffer for one read syscall
	inbound []byte // bytes read but not yet decoded (at most one partial frame after a drain)

	mu       sync.Mutex // Protects outbound and closed, acks may come from other goroutines
	outbound []byte     // queued commands
	closed   bool
}

// NewConn wraps an established connection. The protocol magic is queued immediately
// and written on the first flush.
func NewConn(endpoint protocol.Endpoint, conn net.Conn, router protocol.AckRouter, maxFrameSize int) (*Conn, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, fmt.Errorf("%T does not expose a file descriptor", conn)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, err
	}

	// Remember the file descriptor for the poller
	var fd int
	if err := raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return nil, err
	}

	if maxFrameSize <= 0 {
		maxFrameSize = defaultMaxFrameSize
	}

	return &Conn{
		endpoint:     endpoint,
		conn:         conn,
		raw:          raw,
		fd:           fd,
		origin:       &protocol.Origin{Endpoint: endpoint, Router: router},
		maxFrameSize: maxFrameSize,
		readBuf:      make([]byte, readChunkSize),
		outbound:     append([]byte(nil), protocol.MagicV2...),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConn)
// --------------------------------------------------------------------------

func (c *Conn) Endpoint() protocol.Endpoint {
	return c.endpoint
}

func (c *Conn) Fd() int {
	return c.fd
}

func (c *Conn) HasPendingWrites() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && len(c.outbound) > 0
}

func (c *Conn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.connError("write", transport.ErrClosed)
	}
	if len(c.outbound) == 0 {
		return nil
	}

	n, err := writeNonBlocking(c.raw, c.outbound)
	if errors.Is(err, errWouldBlock) {
		// The socket buffer is full, retry on a later pass
		return nil
	}
	if err != nil {
		return c.connError("write", err)
	}

	// Keep the unsent rest (partial writes are expected)
	c.outbound = append(c.outbound[:0], c.outbound[n:]...)
	return nil
}

func (c *Conn) DrainReadable() ([]protocol.Frame, error) {
	if c.isClosed() {
		return nil, c.connError("read", transport.ErrClosed)
	}

	// Read everything the kernel has buffered for us
	readErr := c.fill()

	// Decode all complete frames, even if the read failed
	frames, decodeErrs, splitErr := c.decodeBuffered()

	if splitErr != nil {
		// The stream can not be resynchronized after a broken size prefix
		return frames, c.connError("read", splitErr)
	}
	if readErr != nil {
		if len(decodeErrs) > 0 {
			Logger.Warningf("Dropping %d undecodable frames from failed connection %s: %v",
				len(decodeErrs), c.endpoint, errors.Join(decodeErrs...))
		}
		return frames, c.connError("read", readErr)
	}
	return frames, errors.Join(decodeErrs...)
}

func (c *Conn) Subscribe(topic, channel string) error {
	return c.queue(func(b []byte) []byte { return protocol.AppendSub(b, topic, channel) })
}

func (c *Conn) Ready(count int) error {
	return c.queue(func(b []byte) []byte { return protocol.AppendRdy(b, count) })
}

func (c *Conn) Nop() error {
	return c.queue(protocol.AppendNop)
}

func (c *Conn) Fin(id protocol.MessageID) error {
	return c.queue(func(b []byte) []byte { return protocol.AppendFin(b, id) })
}

func (c *Conn) Req(id protocol.MessageID, delay time.Duration) error {
	return c.queue(func(b []byte) []byte { return protocol.AppendReq(b, id, delay) })
}

func (c *Conn) Touch(id protocol.MessageID) error {
	return c.queue(func(b []byte) []byte { return protocol.AppendTouch(b, id) })
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.outbound = nil
	return c.conn.Close()
}

// String returns the endpoint of the connection
func (c *Conn) String() string {
	return c.endpoint.String()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// queue appends a command to the outbound buffer
func (c *Conn) queue(appendCmd func([]byte) []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.connError("write", transport.ErrClosed)
	}
	c.outbound = appendCmd(c.outbound)
	return nil
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fill reads from the socket until it would block
func (c *Conn) fill() error {
	for {
		n, err := readNonBlocking(c.raw, c.readBuf)
		if errors.Is(err, errWouldBlock) {
			return nil
		}
		if err != nil {
			return err
		}
		c.inbound = append(c.inbound, c.readBuf[:n]...)

		// A short read means the kernel buffer is empty
		if n < len(c.readBuf) {
			return nil
		}
	}
}

// decodeBuffered decodes all complete frames of the inbound buffer
func (c *Conn) decodeBuffered() (frames []protocol.Frame, decodeErrs []error, splitErr error) {
	consumed := 0
	for {
		raw, n, ok, err := protocol.SplitFramed(c.inbound[consumed:], c.maxFrameSize)
		if err != nil {
			splitErr = err
			break
		}
		if !ok {
			break
		}
		consumed += n

		// The inbound buffer is reused, frames get their own copy
		f, err := protocol.Decode(c.origin, append([]byte(nil), raw...))
		if err != nil {
			decodeErrs = append(decodeErrs, err)
			continue
		}

		// Heartbeats are answered right away, the frame is still passed on
		if resp, isResp := f.(*protocol.Response); isResp && resp.IsHeartbeat() {
			Logger.Debugf("Heartbeat from %s", c.endpoint)
			if err := c.Nop(); err != nil {
				Logger.Warningf("Failed to answer heartbeat from %s: %v", c.endpoint, err)
			}
		}
		frames = append(frames, f)
	}

	// Keep only the unconsumed rest
	c.inbound = append(c.inbound[:0], c.inbound[consumed:]...)
	return frames, decodeErrs, splitErr
}

func (c *Conn) connError(op string, err error) error {
	return &transport.ConnError{Endpoint: c.endpoint, Op: op, Err: err}
}
