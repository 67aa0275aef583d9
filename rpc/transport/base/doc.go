// Package base provides the socket level building blocks of the client transport,
// independent of the specific network protocol. Protocol packages (tcp) only supply
// a dialer, everything else lives here.
//
// The package focuses on:
//   - Non-blocking connections that never park the calling goroutine
//   - Readiness waits over the raw file descriptors with poll(2)
//   - Incremental framing of the inbound byte stream
//
// Key Components:
//
//   - IClientDialer: Interface for protocol-specific dial and socket tuning. Wrapped
//     by NewBaseConnector into a transport.IConnector.
//
//   - Conn: A transport.IConn on top of syscall.RawConn. Reads and writes go straight
//     to the file descriptor and stop as soon as the kernel reports EAGAIN. Partial
//     frames stay buffered until the rest arrives, partial writes stay queued until
//     the socket becomes writable again. Heartbeats are answered with a NOP.
//
//   - Poller: A transport.IPoller that builds the pollfd set from the connections
//     passed to every Wait call. There is no registration, so the pool can change
//     between two waits without extra bookkeeping.
//
// Thread Safety:
//
//	Queueing commands (including acknowledgements) is safe from any goroutine.
//	DrainReadable and Wait must only be called from the goroutine that pumps.
package base
