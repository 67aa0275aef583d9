// Package transport defines the contract between the client core and the
// connections to producers. It lets the pool and the readiness multiplexer work
// against interfaces, so they can be tested without sockets and so other
// transports can be plugged in.
//
// The package focuses on:
//   - The connection contract (IConn) consumed by the pool and the multiplexer
//   - Connection factories (IConnector) used by the pool during reconciliation
//   - Readiness waits over a changing set of connections (IPoller)
//
// Key Components:
//
//   - IConn: One persistent, non-blocking session. Commands (SUB, RDY, FIN, REQ,
//     TOUCH, NOP) are queued and written by Flush when the socket is writable.
//     DrainReadable decodes every complete frame that is currently buffered.
//
//   - IPoller: Waits until connections are readable, writable or failed, bounded
//     by a timeout. A negative timeout waits indefinitely.
//
//   - ConnError: Transport failure of a single connection. The pool contains these
//     failures, they never reach the caller of a pump pass.
//
// Implementations live in the subpackages: base (connection and poller on top of
// raw file descriptors), tcp (TCP dialer) and nsqdtest (an in-process broker used
// by tests).
package transport
