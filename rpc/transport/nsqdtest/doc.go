// Package nsqdtest provides an in-process producer for tests. It speaks just enough of
// the wire protocol to accept a client, record its commands and push frames to it.
package nsqdtest
