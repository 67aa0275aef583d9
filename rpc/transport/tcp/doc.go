// Package tcp implements TCP socket based connections to producers. It provides a
// concrete implementation of the base package's dialer interface.
//
// This package builds on the base package, which supplies the non-blocking
// connection and the poll(2) based readiness wait. See the base package
// documentation for details.
//
// Key Components:
//
//   - clientDialer: TCP specific implementation of base.IClientDialer. Dials with the
//     configured timeout and applies TCPConf and SocketConf options (no delay, keep
//     alive, linger, buffer sizes) to every new connection.
package tcp
