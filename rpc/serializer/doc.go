// Package serializer renders received messages for output, e.g. by nsqc tail. It defines
// a common interface and one implementation per output format.
//
// Key Components:
//
//   - IMessageSerializer: Core interface that all formats must satisfy.
//
//   - bodySerializerImpl: The message body followed by a newline. Useful for piping
//     payloads into other tools.
//
//   - textSerializerImpl: The string form of the frame (timestamp, attempts, id, body).
//
//   - jsonSerializerImpl: One JSON object per line including the producer endpoint.
//     Bodies that are not valid UTF-8 are base64 encoded.
//
//   - binarySerializerImpl: The size prefixed wire frame, so recorded streams can be
//     decoded again with the protocol package.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use.
package serializer
