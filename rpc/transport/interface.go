package transport

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"time"
)

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// IConn is one persistent session to a producer. All methods are non-blocking and are
// called from the goroutine that owns the pool. Commands are only queued, they are
// written by Flush once the connection is writable.
type IConn interface {
	protocol.Acker

	// Endpoint returns the identity of the connection
	Endpoint() protocol.Endpoint
	// Fd returns the pollable file descriptor of the connection
	Fd() int
	// HasPendingWrites reports whether queued outbound bytes are waiting for Flush
	HasPendingWrites() bool
	// Flush writes as much queued data as the socket accepts without blocking
	Flush() error
	// DrainReadable reads all currently buffered bytes and decodes every complete frame.
	// A *ConnError means the connection is unusable. Otherwise a non-nil error joins
	// the *protocol.DecodeError values of frames that could not be decoded.
	DrainReadable() ([]protocol.Frame, error)
	// Subscribe queues a SUB command
	Subscribe(topic, channel string) error
	// Ready queues a RDY command
	Ready(count int) error
	// Nop queues a NOP command
	Nop() error
	// Close closes the connection
	Close() error
}

// IConnector creates connections for endpoints. Messages decoded by a created connection
// route their acknowledgements through router.
type IConnector interface {
	// Connect establishes a connection to the endpoint
	Connect(endpoint protocol.Endpoint, router protocol.AckRouter) (IConn, error)
	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string
}

// --------------------------------------------------------------------------
// Readiness
// --------------------------------------------------------------------------

// Readiness is the result of one readiness wait
type Readiness struct {
	Readable []IConn
	Writable []IConn
	Failed   []IConn
}

// Empty reports whether no connection became ready
func (r Readiness) Empty() bool {
	return len(r.Readable) == 0 && len(r.Writable) == 0 && len(r.Failed) == 0
}

// IPoller waits for readiness of a set of connections
type IPoller interface {
	// Wait blocks until a connection of read is readable or failed, a connection of write
	// is writable, or the timeout elapsed. A negative timeout waits indefinitely.
	Wait(read []IConn, write []IConn, timeout time.Duration) (Readiness, error)
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrClosed is returned when using a connection after Close
	ErrClosed = errors.New("transport: connection closed")
)

// ConnError is a transport failure of a single connection
type ConnError struct {
	Endpoint protocol.Endpoint
	// Op is the failed operation (connect, read, write, close, poll)
	Op  string
	Err error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}
