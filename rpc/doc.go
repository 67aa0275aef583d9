// Package rpc contains the consumer engine and everything it talks to. It acts as the
// communication layer between an application and the producers of a topic.
//
// The package is organized into several subpackages:
//
//   - protocol: The wire format. Frame decoding (Response, Error, Message), the broker
//     error taxonomy and the encoding of consumer commands.
//
//   - common: Configuration structures and logging shared by all other packages.
//
//   - transport: The connection contract plus the non-blocking TCP implementation and
//     the poll(2) based readiness wait.
//
//   - discovery: Finding producers via HTTP lookup services or etcd.
//
//   - client: Connection pool, readiness multiplexer and the Consumer facade.
//
//   - serializer: Output formats for received messages.
package rpc
