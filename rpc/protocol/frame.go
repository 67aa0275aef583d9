package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------
// Frame Type Definition
// --------------------------------------------------------------------------

// FrameType is the 4 byte big endian tag at the start of every frame
type FrameType int32

const (
	FrameTypeResponse FrameType = 0 // Generic response (OK, heartbeats, ...)
	FrameTypeError    FrameType = 1 // Broker side error, payload is "<code> <text>"
	FrameTypeMessage  FrameType = 2 // A message delivered to a subscribed consumer
)

// String returns the string representation of a FrameType.
func (t FrameType) String() string {
	switch t {
	case FrameTypeResponse:
		return "response"
	case FrameTypeError:
		return "error"
	case FrameTypeMessage:
		return "message"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

const (
	// frameTypeSize is the size of the frame type tag
	frameTypeSize = 4
	// frameSizeSize is the size of the length prefix in front of every frame on the wire
	frameSizeSize = 4
	// heartbeatPayload is the payload of a response the broker sends to check liveness
	heartbeatPayload = "_heartbeat_"
)

// --------------------------------------------------------------------------
// Frame Sum Type
// --------------------------------------------------------------------------

// Frame is one decoded protocol unit. The set of implementations is closed:
// *Response, *Error and *Message are the only types satisfying it.
type Frame interface {
	// Type returns the frame type tag
	Type() FrameType
	// Data returns the raw payload bytes (everything after the tag)
	Data() []byte
	// String returns the diagnostic representation of the frame
	String() string

	isFrame()
}

// Response is a generic response frame
type Response struct {
	data []byte
}

// NewResponse creates a response frame with the given payload
func NewResponse(data []byte) *Response {
	return &Response{data: data}
}

func (r *Response) Type() FrameType { return FrameTypeResponse }
func (r *Response) Data() []byte    { return r.data }
func (r *Response) String() string  { return "Response - " + string(r.data) }
func (r *Response) isFrame()        {}

// IsHeartbeat reports whether the broker sent this response to check that the client is alive.
// Heartbeats must be answered with a NOP.
func (r *Response) IsHeartbeat() bool {
	return bytes.Equal(r.data, []byte(heartbeatPayload))
}

// --------------------------------------------------------------------------
// Decoding / Encoding
// --------------------------------------------------------------------------

// Decode decodes one frame (size prefix already stripped). The origin is attached to
// message frames so that they can be acknowledged later, it may be nil.
// On failure a *DecodeError is returned and the frame is nil.
func Decode(origin *Origin, raw []byte) (Frame, error) {
	if len(raw) < frameTypeSize {
		return nil, &DecodeError{FrameType: -1, Reason: fmt.Sprintf("frame too short: %d bytes", len(raw))}
	}

	frameType := FrameType(binary.BigEndian.Uint32(raw[:frameTypeSize]))
	payload := raw[frameTypeSize:]

	switch frameType {
	case FrameTypeResponse:
		return &Response{data: payload}, nil
	case FrameTypeError:
		return newError(payload), nil
	case FrameTypeMessage:
		msg, err := decodeMessage(payload)
		if err != nil {
			return nil, err
		}
		msg.origin = origin
		return msg, nil
	default:
		return nil, &DecodeError{FrameType: frameType, Reason: "unknown frame type"}
	}
}

// Encode encodes a frame into its tag and payload (without size prefix).
// Decode(origin, Encode(f)) yields a frame equal to f.
func Encode(f Frame) []byte {
	data := f.Data()
	buf := make([]byte, frameTypeSize+len(data))
	binary.BigEndian.PutUint32(buf[:frameTypeSize], uint32(f.Type()))
	copy(buf[frameTypeSize:], data)
	return buf
}

// AppendFramed appends the frame including its 4 byte size prefix to dst,
// this is the format a broker writes to the socket.
func AppendFramed(dst []byte, f Frame) []byte {
	data := f.Data()
	var header [frameSizeSize + frameTypeSize]byte
	binary.BigEndian.PutUint32(header[:frameSizeSize], uint32(frameTypeSize+len(data)))
	binary.BigEndian.PutUint32(header[frameSizeSize:], uint32(f.Type()))
	dst = append(dst, header[:]...)
	return append(dst, data...)
}

// SplitFramed extracts the next size prefixed frame from buf.
// It returns the frame (without size prefix), the number of consumed bytes and whether a
// complete frame was available. Frames announcing more than maxSize bytes are rejected.
func SplitFramed(buf []byte, maxSize int) (frame []byte, n int, ok bool, err error) {
	if len(buf) < frameSizeSize {
		return nil, 0, false, nil
	}
	size := int(binary.BigEndian.Uint32(buf[:frameSizeSize]))
	if size < frameTypeSize {
		return nil, 0, false, &DecodeError{FrameType: -1, Reason: fmt.Sprintf("invalid frame size %d", size)}
	}
	if maxSize > 0 && size > maxSize {
		return nil, 0, false, &DecodeError{FrameType: -1, Reason: fmt.Sprintf("frame size %d exceeds limit %d", size, maxSize)}
	}
	if len(buf) < frameSizeSize+size {
		return nil, 0, false, nil
	}
	return buf[frameSizeSize : frameSizeSize+size], frameSizeSize + size, true, nil
}
