// Package discovery finds the producers of a topic. The client re-runs discovery
// periodically and reconciles its connection pool against the result.
//
// Key Components:
//
//   - HTTPDiscoverer: Queries lookup services with GET /lookup?topic=<topic>. The
//     response must have the shape {"data": {"producers": [{"broadcast_address": ...,
//     "tcp_port": ...}]}}, anything else is rejected. Multiple lookup services are
//     used round robin and failed requests are retried.
//
//   - EtcdDiscoverer: Reads producer registrations (host:port values) from the keys
//     below <prefix>/<topic>/.
//
// Results of both are de-duplicated and sorted by host and port. Every error wraps
// ErrDiscovery.
package discovery
