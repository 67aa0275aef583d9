// Package protocol implements the binary wire format spoken between a consumer and a
// message broker. It decodes raw frames into typed values and encodes the small set of
// consumer commands the client needs.
//
// The package focuses on:
//   - Decoding of size prefixed frames into the closed Frame sum type
//   - A fixed error taxonomy mapping broker error codes to failure kinds
//   - Acknowledgement routing for messages without owning the connection
//
// Key Components:
//
//   - Frame: Interface implemented by exactly three types. *Response is a generic
//     reply (e.g. "OK" or a heartbeat), *Error carries a broker error code and text,
//     *Message carries a delivered message. Decode dispatches on the 4 byte big endian
//     frame type tag and fails with a *DecodeError for any other tag.
//
//   - Message: Payload layout is an 8 byte big endian timestamp, a 2 byte big endian
//     attempt counter, a 16 byte opaque id and the body. A message keeps an Origin
//     (endpoint + AckRouter) so Fin, Req and Touch reach the connection it came from,
//     as long as that connection is still pooled.
//
//   - ErrorKind / BrokerError: Error frames are materialized explicitly with
//     (*Error).BrokerError. Unknown codes fail with ErrUnknownErrorCode instead of
//     being mapped to a generic kind.
//
// Wire Format:
//
//	[4 bytes size][4 bytes frame type][payload ...]
//
// The size covers the frame type and the payload. Decode expects the size prefix to be
// stripped already, SplitFramed does that for a stream buffer.
package protocol
