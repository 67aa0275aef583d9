package client

import (
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/ValentinKolb/nsqc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"sort"
	"sync/atomic"
	"time"
)

var (
	Logger = logger.GetLogger("client")
)

// FailureObserver is notified about connection failures the pool contains instead of
// returning them. op is one of connect, read, write, poll or close.
type FailureObserver func(endpoint protocol.Endpoint, op string, err error)

// LogFailures is the default FailureObserver, it logs every failure
func LogFailures(endpoint protocol.Endpoint, op string, err error) {
	Logger.Warningf("Connection %s: %s failed: %v", endpoint, op, err)
}

// PoolOption configures a Pool
type PoolOption func(*Pool)

// WithFailureObserver replaces the default FailureObserver
func WithFailureObserver(observer FailureObserver) PoolOption {
	return func(p *Pool) {
		if observer != nil {
			p.observer = observer
		}
	}
}

// Pool holds at most one connection per producer endpoint. Membership is only changed
// by Reconcile, Remove and Close.
type Pool struct {
	connector     transport.IConnector
	conns         *xsync.MapOf[protocol.Endpoint, transport.IConn]
	observer      FailureObserver
	lastReconcile atomic.Int64 // unix nanos, 0 if never reconciled
}

// NewPool creates an empty pool that uses connector for new endpoints
func NewPool(connector transport.IConnector, opts ...PoolOption) *Pool {
	p := &Pool{
		connector: connector,
		conns:     xsync.NewMapOf[protocol.Endpoint, transport.IConn](),
		observer:  LogFailures,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reconcile aligns the pool with a discovery result. Connections to endpoints that are no
// longer discovered are removed, new endpoints are connected. Connect failures are reported
// to the observer, the endpoint is tried again on the next reconcile.
// Returns the connections created by this call.
func (p *Pool) Reconcile(discovered []protocol.Endpoint) []transport.IConn {
	wanted := make(map[protocol.Endpoint]struct{}, len(discovered))
	for _, ep := range discovered {
		wanted[ep] = struct{}{}
	}

	// Remove vanished endpoints
	var vanished []transport.IConn
	p.conns.Range(func(ep protocol.Endpoint, conn transport.IConn) bool {
		if _, ok := wanted[ep]; !ok {
			vanished = append(vanished, conn)
		}
		return true
	})
	for _, conn := range vanished {
		if _, ok := p.Remove(conn); ok {
			Logger.Infof("Producer %s vanished, connection closed", conn.Endpoint())
		}
	}

	// Connect new endpoints
	var created []transport.IConn
	for _, ep := range discovered {
		if _, ok := p.conns.Load(ep); ok {
			continue
		}
		conn, err := p.connector.Connect(ep, p)
		if err != nil {
			metricConnectionFailures.Inc()
			p.observer(ep, "connect", err)
			continue
		}
		p.conns.Store(ep, conn)
		metricConnectionsOpened.Inc()
		created = append(created, conn)
	}

	p.lastReconcile.Store(time.Now().UnixNano())
	Logger.Debugf("Reconciled pool: %d connections, %d new, %d removed", p.Len(), len(created), len(vanished))
	return created
}

// Remove evicts the connection of conn's endpoint and closes it. Close failures are
// reported to the observer. Removing an endpoint that is not pooled is a no-op.
func (p *Pool) Remove(conn transport.IConn) (transport.IConn, bool) {
	ep := conn.Endpoint()
	removed, ok := p.conns.LoadAndDelete(ep)
	if !ok {
		return nil, false
	}

	metricConnectionsClosed.Inc()
	if err := removed.Close(); err != nil {
		p.observer(ep, "close", err)
	}
	return removed, true
}

// Get returns the pooled connection of an endpoint
func (p *Pool) Get(endpoint protocol.Endpoint) (transport.IConn, bool) {
	return p.conns.Load(endpoint)
}

// Len returns the number of pooled connections
func (p *Pool) Len() int {
	return p.conns.Size()
}

// Endpoints returns the pooled endpoints in sorted order
func (p *Pool) Endpoints() []protocol.Endpoint {
	endpoints := make([]protocol.Endpoint, 0, p.conns.Size())
	p.conns.Range(func(ep protocol.Endpoint, _ transport.IConn) bool {
		endpoints = append(endpoints, ep)
		return true
	})
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Less(endpoints[j]) })
	return endpoints
}

// Connections returns the pooled connections ordered by endpoint
func (p *Pool) Connections() []transport.IConn {
	conns := make([]transport.IConn, 0, p.conns.Size())
	p.conns.Range(func(_ protocol.Endpoint, conn transport.IConn) bool {
		conns = append(conns, conn)
		return true
	})
	sort.Slice(conns, func(i, j int) bool { return conns[i].Endpoint().Less(conns[j].Endpoint()) })
	return conns
}

// LastReconcile returns the time of the last Reconcile call (zero if none)
func (p *Pool) LastReconcile() time.Time {
	nanos := p.lastReconcile.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Acker implements protocol.AckRouter, messages find their connection through the pool
func (p *Pool) Acker(endpoint protocol.Endpoint) (protocol.Acker, bool) {
	conn, ok := p.conns.Load(endpoint)
	if !ok {
		return nil, false
	}
	return conn, true
}

// Close removes and closes all connections
func (p *Pool) Close() {
	for _, conn := range p.Connections() {
		p.Remove(conn)
	}
}

// fail reports a transport failure of a pooled connection and removes it.
// Connections that are no longer pooled are ignored.
func (p *Pool) fail(conn transport.IConn, op string, err error) {
	if current, ok := p.conns.Load(conn.Endpoint()); !ok || current != conn {
		return
	}
	metricConnectionFailures.Inc()
	p.observer(conn.Endpoint(), op, err)
	p.Remove(conn)
}
