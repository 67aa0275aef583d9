package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/ValentinKolb/nsqc/rpc/transport"
	"time"
)

var (
	epA = protocol.Endpoint{Host: "10.0.0.1", Port: 4150}
	epB = protocol.Endpoint{Host: "10.0.0.2", Port: 4150}
	epC = protocol.Endpoint{Host: "10.0.0.3", Port: 4150}
)

const testID = "0123456789abcdef"

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

type fakeConn struct {
	endpoint protocol.Endpoint
	fd       int

	pending  bool
	frames   []protocol.Frame
	readErr  error
	flushErr error
	closeErr error

	closed   int
	flushed  int
	drained  int
	commands []string
}

func (c *fakeConn) Endpoint() protocol.Endpoint { return c.endpoint }
func (c *fakeConn) Fd() int                     { return c.fd }
func (c *fakeConn) HasPendingWrites() bool      { return c.pending }

func (c *fakeConn) Flush() error {
	c.flushed++
	if c.flushErr != nil {
		return c.flushErr
	}
	c.pending = false
	return nil
}

func (c *fakeConn) DrainReadable() ([]protocol.Frame, error) {
	c.drained++
	frames := c.frames
	c.frames = nil
	return frames, c.readErr
}

func (c *fakeConn) queue(cmd string) error {
	if c.closed > 0 {
		return transport.ErrClosed
	}
	c.commands = append(c.commands, cmd)
	c.pending = true
	return nil
}

func (c *fakeConn) Subscribe(topic, channel string) error {
	return c.queue(fmt.Sprintf("SUB %s %s", topic, channel))
}
func (c *fakeConn) Ready(count int) error { return c.queue(fmt.Sprintf("RDY %d", count)) }
func (c *fakeConn) Nop() error            { return c.queue("NOP") }
func (c *fakeConn) Fin(id protocol.MessageID) error {
	return c.queue("FIN " + id.String())
}
func (c *fakeConn) Req(id protocol.MessageID, delay time.Duration) error {
	return c.queue(fmt.Sprintf("REQ %s %d", id, delay.Milliseconds()))
}
func (c *fakeConn) Touch(id protocol.MessageID) error { return c.queue("TOUCH " + id.String()) }

func (c *fakeConn) Close() error {
	c.closed++
	return c.closeErr
}

// --------------------------------------------------------------------------
// Connector
// --------------------------------------------------------------------------

type fakeConnector struct {
	conns    map[protocol.Endpoint]*fakeConn
	failures map[protocol.Endpoint]int // number of connect attempts that fail
	attempts int
	nextFd   int
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		conns:    make(map[protocol.Endpoint]*fakeConn),
		failures: make(map[protocol.Endpoint]int),
		nextFd:   100,
	}
}

func (f *fakeConnector) GetName() string { return "fake" }

func (f *fakeConnector) Connect(endpoint protocol.Endpoint, _ protocol.AckRouter) (transport.IConn, error) {
	f.attempts++
	if f.failures[endpoint] > 0 {
		f.failures[endpoint]--
		return nil, &transport.ConnError{Endpoint: endpoint, Op: "connect", Err: errors.New("connection refused")}
	}
	f.nextFd++
	conn := &fakeConn{endpoint: endpoint, fd: f.nextFd}
	f.conns[endpoint] = conn
	return conn, nil
}

// --------------------------------------------------------------------------
// Poller
// --------------------------------------------------------------------------

type fakePoller struct {
	ready func(read, write []transport.IConn) transport.Readiness
	err   error

	lastRead    []transport.IConn
	lastWrite   []transport.IConn
	lastTimeout time.Duration
	calls       int
}

func (p *fakePoller) Wait(read, write []transport.IConn, timeout time.Duration) (transport.Readiness, error) {
	p.calls++
	p.lastRead, p.lastWrite, p.lastTimeout = read, write, timeout
	if p.err != nil {
		return transport.Readiness{}, p.err
	}
	if p.ready == nil {
		return transport.Readiness{}, nil
	}
	return p.ready(read, write), nil
}

// allReadable reports every watched connection readable and every write candidate writable
func allReadable(read, write []transport.IConn) transport.Readiness {
	return transport.Readiness{Readable: read, Writable: write}
}

// --------------------------------------------------------------------------
// Discoverer
// --------------------------------------------------------------------------

type fakeDiscoverer struct {
	endpoints []protocol.Endpoint
	err       error
	calls     int
	closed    bool
}

func (d *fakeDiscoverer) Discover(_ context.Context, _ string) ([]protocol.Endpoint, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.endpoints, nil
}

func (d *fakeDiscoverer) Close() error {
	d.closed = true
	return nil
}

// --------------------------------------------------------------------------
// Observer
// --------------------------------------------------------------------------

type failure struct {
	endpoint protocol.Endpoint
	op       string
	err      error
}

type recordingObserver struct {
	failures []failure
}

func (r *recordingObserver) observe(endpoint protocol.Endpoint, op string, err error) {
	r.failures = append(r.failures, failure{endpoint, op, err})
}

func (r *recordingObserver) ops() []string {
	ops := make([]string, len(r.failures))
	for i, f := range r.failures {
		ops[i] = f.endpoint.String() + " " + f.op
	}
	return ops
}
