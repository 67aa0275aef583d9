package client

import (
	"errors"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/ValentinKolb/nsqc/rpc/transport"
	"time"
)

// errPollFailure is reported for connections the poller flagged as failed
var errPollFailure = errors.New("client: connection reported error or hangup")

// Multiplexer performs readiness driven I/O over all pooled connections
type Multiplexer struct {
	pool    *Pool
	poller  transport.IPoller
	timeout time.Duration
}

// NewMultiplexer creates a multiplexer over the pool. timeout bounds the readiness wait of
// one Pump call, a negative timeout waits until a connection becomes ready.
func NewMultiplexer(pool *Pool, poller transport.IPoller, timeout time.Duration) *Multiplexer {
	return &Multiplexer{
		pool:    pool,
		poller:  poller,
		timeout: timeout,
	}
}

// Pump performs one pass of readiness driven I/O:
//  1. every connection is watched for reading and errors, connections with queued
//     commands also for writing
//  2. readable connections are drained, frames keep their per connection order
//  3. writable connections are flushed
//  4. failed connections are removed from the pool
//
// Transport failures of single connections are reported to the pool's observer and
// never returned. The error is non-nil only if frames could not be decoded (joined
// *protocol.DecodeError values) or the readiness wait itself failed. Frames decoded in
// the same pass are returned in both cases.
func (m *Multiplexer) Pump() ([]protocol.Frame, error) {
	start := time.Now()
	metricPumpPasses.Inc()
	defer metricPumpDuration.UpdateDuration(start)

	conns := m.pool.Connections()
	var writers []transport.IConn
	for _, conn := range conns {
		if conn.HasPendingWrites() {
			writers = append(writers, conn)
		}
	}

	ready, err := m.poller.Wait(conns, writers, m.timeout)
	if err != nil {
		metricPollErrors.Inc()
		return nil, err
	}

	// Drain readable connections
	var frames []protocol.Frame
	var decodeErrs []error
	for _, conn := range ready.Readable {
		got, err := conn.DrainReadable()
		frames = append(frames, got...)
		if err == nil {
			continue
		}
		var connErr *transport.ConnError
		if errors.As(err, &connErr) {
			m.pool.fail(conn, "read", err)
			continue
		}
		metricDecodeErrors.Inc()
		decodeErrs = append(decodeErrs, err)
	}

	// Flush writable connections that survived the read step
	for _, conn := range ready.Writable {
		if current, ok := m.pool.Get(conn.Endpoint()); !ok || current != conn {
			continue
		}
		if err := conn.Flush(); err != nil {
			m.pool.fail(conn, "write", err)
		}
	}

	// Remove failed connections
	for _, conn := range ready.Failed {
		m.pool.fail(conn, "poll", &transport.ConnError{Endpoint: conn.Endpoint(), Op: "poll", Err: errPollFailure})
	}

	countFrames(frames)
	return frames, errors.Join(decodeErrs...)
}
