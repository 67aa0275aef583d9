// Package client implements the consumer side engine. It keeps one connection per
// discovered producer and multiplexes non-blocking I/O over all of them.
//
// The package focuses on:
//   - Reconciling the connection pool against discovery results
//   - Readiness driven reading and writing without blocking on a single producer
//   - Containing per connection failures so one broken producer never stops the others
//
// Key Components:
//
//   - Pool: Endpoint keyed connection registry (xsync.MapOf). Reconcile connects new
//     producers and closes vanished ones. Remove is idempotent and shared by all
//     cleanup paths. The pool is also the protocol.AckRouter of every message, so a
//     message acknowledges through whatever connection is pooled for its endpoint.
//
//   - Multiplexer: One Pump call waits for readiness (bounded by a timeout), drains
//     readable connections, flushes writable ones and removes failed ones. Transport
//     failures go to the pool's FailureObserver and are never returned.
//
//   - Consumer: Discover, subscribe and pump. Re-discovers when the configured interval
//     elapsed and hands out messages only.
//
// Usage Example:
//
//	conf := common.DefaultClientConfig()
//	conf.Topic = "events"
//
//	disc, _ := discovery.New(conf)
//	consumer, err := client.NewConsumer(conf, disc, tcp.NewTCPConnector(conf), base.NewPoller())
//	if err != nil {
//		return err
//	}
//	defer consumer.Close()
//
//	for {
//		messages, err := consumer.Poll(ctx)
//		if err != nil {
//			log.Printf("undecodable frames: %v", err)
//		}
//		for _, msg := range messages {
//			handle(msg.Body)
//			_ = msg.Fin()
//		}
//	}
//
// Metrics:
//
//	Process wide counters are registered with github.com/VictoriaMetrics/metrics
//	(connections, frames by type, pump passes, failures). Per consumer statistics
//	(pump latency, message count) are kept in a go-metrics registry, see Stats.
//
// Thread Safety:
//
//	Reconcile, Pump and Poll must be called from one goroutine. Acknowledging a
//	message is safe from any goroutine.
package client
