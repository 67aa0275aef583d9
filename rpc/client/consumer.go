package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/common"
	"github.com/ValentinKolb/nsqc/rpc/discovery"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/ValentinKolb/nsqc/rpc/transport"
	gometrics "github.com/rcrowley/go-metrics"
	"time"
)

// Consumer subscribes to a topic on all producers discovered for it. It ties discovery,
// the pool and the multiplexer together and is driven by repeated Poll calls from a
// single goroutine.
type Consumer struct {
	config     common.ClientConfig
	discoverer discovery.IDiscoverer
	pool       *Pool
	mux        *Multiplexer

	lastDiscovery time.Time

	stats        gometrics.Registry
	pumpLatency  gometrics.Histogram // microseconds
	messages     gometrics.Counter
	errorFrames  gometrics.Counter
	discoveryErr gometrics.Counter
}

// NewConsumer creates a consumer for config.Topic on config.Channel. Nothing is connected
// before the first Discover or Poll call.
func NewConsumer(
	config common.ClientConfig,
	discoverer discovery.IDiscoverer,
	connector transport.IConnector,
	poller transport.IPoller,
	opts ...PoolOption,
) (*Consumer, error) {

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	pool := NewPool(connector, opts...)

	c := &Consumer{
		config:       config,
		discoverer:   discoverer,
		pool:         pool,
		mux:          NewMultiplexer(pool, poller, config.PollTimeout()),
		stats:        gometrics.NewRegistry(),
		pumpLatency:  gometrics.NewHistogram(gometrics.NewUniformSample(1028)),
		messages:     gometrics.NewCounter(),
		errorFrames:  gometrics.NewCounter(),
		discoveryErr: gometrics.NewCounter(),
	}

	// Register the per consumer statistics
	for name, metric := range map[string]interface{}{
		"pump.latency.us":  c.pumpLatency,
		"messages":         c.messages,
		"frames.error":     c.errorFrames,
		"discovery.errors": c.discoveryErr,
	} {
		if err := c.stats.Register(name, metric); err != nil {
			return nil, fmt.Errorf("failed to register metric %s: %w", name, err)
		}
	}

	return c, nil
}

// Discover runs discovery and reconciles the pool with the result. New connections are
// subscribed and announce MaxInFlight. Discovery errors are returned, the pool stays as
// it is in that case.
func (c *Consumer) Discover(ctx context.Context) error {
	metricDiscoveryRuns.Inc()

	// The attempt counts as discovery run, a failing lookup is retried after the interval
	c.lastDiscovery = time.Now()

	endpoints, err := c.discoverer.Discover(ctx, c.config.Topic)
	if err != nil {
		metricDiscoveryErrors.Inc()
		c.discoveryErr.Inc(1)
		return err
	}

	for _, conn := range c.pool.Reconcile(endpoints) {
		Logger.Infof("Discovered %s, subscribing to %s/%s", conn.Endpoint(), c.config.Topic, c.config.Channel)
		if err := conn.Subscribe(c.config.Topic, c.config.Channel); err != nil {
			c.pool.fail(conn, "write", err)
			continue
		}
		if err := conn.Ready(c.config.Transport.MaxInFlight); err != nil {
			c.pool.fail(conn, "write", err)
		}
	}
	return nil
}

// Poll re-runs discovery once the discovery interval elapsed and then performs one pump
// pass. Returned are the messages of the pass. Error frames are logged, responses are
// dropped. A failed re-discovery is logged and does not stop the pump.
func (c *Consumer) Poll(ctx context.Context) ([]*protocol.Message, error) {
	if c.discoveryDue() {
		if err := c.Discover(ctx); err != nil {
			Logger.Warningf("Discovery for topic %s failed: %v", c.config.Topic, err)
		}
	}

	start := time.Now()
	frames, err := c.mux.Pump()
	c.pumpLatency.Update(time.Since(start).Microseconds())

	var messages []*protocol.Message
	for _, f := range frames {
		switch frame := f.(type) {
		case *protocol.Message:
			messages = append(messages, frame)
		case *protocol.Error:
			c.errorFrames.Inc(1)
			if brokerErr, lookupErr := frame.BrokerError(); lookupErr == nil {
				Logger.Errorf("Broker error: %v", brokerErr)
			} else {
				Logger.Errorf("Broker error with unknown code: %s", frame)
			}
		case *protocol.Response:
			Logger.Debugf("%s", frame)
		}
	}
	c.messages.Inc(int64(len(messages)))
	return messages, err
}

// Pool returns the connection pool of the consumer
func (c *Consumer) Pool() *Pool {
	return c.pool
}

// Stats returns the statistics registry of the consumer
func (c *Consumer) Stats() gometrics.Registry {
	return c.stats
}

// Close closes all connections and the discoverer
func (c *Consumer) Close() error {
	c.pool.Close()
	return c.discoverer.Close()
}

// discoveryDue reports whether the discovery interval elapsed since the last run
func (c *Consumer) discoveryDue() bool {
	if c.lastDiscovery.IsZero() {
		return true
	}
	interval := c.config.DiscoveryInterval()
	return interval <= 0 || time.Since(c.lastDiscovery) >= interval
}
